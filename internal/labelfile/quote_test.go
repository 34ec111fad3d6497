package labelfile

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		style QuoteStyle
		want  string
	}{
		{"plain posix", "/data/ABC1234.png", QuotePOSIX, "/data/ABC1234.png"},
		{"plain windows", `C:\data\ABC1234.png`, QuoteWindows, `C:\data\ABC1234.png`},
		{"space posix", "/my data/a.png", QuotePOSIX, "'/my data/a.png'"},
		{"tab posix", "/my\tdata/a.png", QuotePOSIX, "'/my\tdata/a.png'"},
		{"apostrophe posix", "/it's here/a.png", QuotePOSIX, `'/it'\''s here/a.png'`},
		{"space windows", `C:\my data\a.png`, QuoteWindows, `"C:\my data\a.png"`},
		{"double quote windows", `C:\a"b c.png`, QuoteWindows, `"C:\a""b c.png"`},
		{"leading quote", "'x.png", QuotePOSIX, `''\''x.png'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quote(tt.path, tt.style)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.path, Unquote(got), "round trip")
		})
	}
}

func TestQuote_Auto(t *testing.T) {
	got := Quote("/a b.png", QuoteAuto)
	if runtime.GOOS == "windows" {
		assert.Equal(t, `"/a b.png"`, got)
	} else {
		assert.Equal(t, "'/a b.png'", got)
	}
}

func TestUnquote_Passthrough(t *testing.T) {
	for _, s := range []string{"", "'", `"`, "/a.png", "'/a.png", `/a.png"`} {
		assert.Equal(t, s, Unquote(s))
	}
}

func TestParseQuoteStyle(t *testing.T) {
	for in, want := range map[string]QuoteStyle{
		"":        QuoteAuto,
		"auto":    QuoteAuto,
		"POSIX":   QuotePOSIX,
		"windows": QuoteWindows,
	} {
		got, err := ParseQuoteStyle(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseQuoteStyle("shell")
	assert.Error(t, err)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line, delim string
		path, label string
		ok          bool
	}{
		{"/d/a.png, ABC1234\n", ", ", "/d/a.png", "ABC1234", true},
		{"'/my d/a, b.png', ABC1234\r\n", ", ", "/my d/a, b.png", "ABC1234", true},
		{"/d/a.png\tABC1D23", "\t", "/d/a.png", "ABC1D23", true},
		{"/d/a.png ABC", ", ", "", "", false},
		{"/d/a.png, ", ", ", "/d/a.png", "", true},
	}
	for _, tt := range tests {
		path, label, ok := ParseLine(tt.line, tt.delim)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.path, path, tt.line)
		assert.Equal(t, tt.label, label, tt.line)
	}
}
