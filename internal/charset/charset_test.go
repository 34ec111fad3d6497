package charset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbols(t *testing.T) {
	syms := Symbols()
	require.Len(t, syms, 37)
	assert.Equal(t, "A", syms[0])
	assert.Equal(t, "Z", syms[25])
	assert.Equal(t, "0", syms[26])
	assert.Equal(t, "9", syms[35])
	assert.Equal(t, "-", syms[36])

	syms[0] = "mutated"
	assert.Equal(t, "A", Symbols()[0], "callers get a fresh slice")
}

func TestContent(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(string(Content()), "\n"), "\n")
	assert.Equal(t, Symbols(), lines)
	assert.True(t, strings.HasSuffix(string(Content()), "-\n"))
}

func TestForeign(t *testing.T) {
	assert.Empty(t, Foreign("ABC1D23"))
	assert.Empty(t, Foreign("ABC-1234"))
	assert.Equal(t, []rune{'b', ' '}, Foreign("AbC b12"))
	assert.Equal(t, []rune{'Ç'}, Foreign("ÇÇA"))
}

func TestWhitelist(t *testing.T) {
	assert.Equal(t, strings.Join(Symbols(), ""), Whitelist())
	assert.True(t, Contains('-'))
	assert.False(t, Contains('a'))
}
