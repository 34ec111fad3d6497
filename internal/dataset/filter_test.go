package dataset

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/plate-prep/internal/imaging"
)

// touch creates empty files in dir.
func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0644))
	}
}

// writePNG writes a small valid PNG into dir.
func writePNG(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 4))))
}

func TestFilter_Run(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "antigas_degrade_A.png", "mercosul_degrade_B.png", "C.png")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "D.png"), 0755))

	records := []LabelRecord{
		{Text: "AAA1111", ImagePath: "x/antigas/A.png", Index: 0},
		{Text: "BBB2B22", ImagePath: "x/mercosul/B.png", Index: 1},
		{Text: "CCC3333", ImagePath: "x/other/C.png", Index: 2},
		{Text: "MISSING", ImagePath: "x/antigas/C.png", Index: 3},
		{Text: "DIR4444", ImagePath: "D.png", Index: 4},
		{Text: "NONAME1", ImagePath: "/", Index: 5},
		{Text: "ccc3333", ImagePath: "C.png", Index: 6},
	}

	core, logs := observer.New(zapcore.WarnLevel)
	f := &Filter{Resolver: NewResolver(dir, DefaultRules()), Logger: zap.New(core)}

	kept, stats, err := f.Run(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, kept, 4)
	assert.Equal(t, ResolvedRecord{Path: filepath.Join(dir, "antigas_degrade_A.png"), Label: "AAA1111", Rule: "antigas", Index: 0}, kept[0])
	assert.Equal(t, filepath.Join(dir, "mercosul_degrade_B.png"), kept[1].Path)
	assert.Equal(t, filepath.Join(dir, "C.png"), kept[2].Path)
	assert.Equal(t, 6, kept[3].Index)

	assert.Equal(t, 4, stats.Kept)
	assert.Equal(t, 2, stats.Skipped[ReasonMissingImage])
	assert.Equal(t, 1, stats.Skipped[ReasonInvalidRecord])
	assert.Equal(t, map[string]int{"antigas": 1, "mercosul": 1, DefaultRuleName: 2}, stats.ByRule)
	assert.Equal(t, 1, stats.OffAlphabet)

	missing := logs.FilterMessage("skipping record").All()
	require.Len(t, missing, 3)
	assert.Equal(t, int64(3), missing[0].ContextMap()["index"])
	assert.Equal(t, filepath.Join(dir, "antigas_degrade_C.png"), missing[0].ContextMap()["resolved_path"])
	assert.Equal(t, 1, logs.FilterMessage("label has symbols outside the plate alphabet").Len())
}

func TestFilter_LabelContainsDelimiter(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.png", "c.png")

	core, logs := observer.New(zapcore.WarnLevel)
	f := &Filter{Resolver: NewResolver(dir, nil), Delimiter: ", ", Workers: 2, Logger: zap.New(core)}

	kept, stats, err := f.Run(context.Background(), []LabelRecord{
		{Text: "ABC1234", ImagePath: "a.png", Index: 0},
		{Text: "ABC, 123", ImagePath: "b.png", Index: 1},
		{Text: "ABC,123", ImagePath: "c.png", Index: 2},
	})
	require.NoError(t, err)

	require.Len(t, kept, 2)
	assert.Equal(t, 0, kept[0].Index)
	assert.Equal(t, 2, kept[1].Index)
	assert.Equal(t, 1, stats.Skipped[ReasonInvalidRecord])

	skipped := logs.FilterMessage("skipping record").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, int64(1), skipped[0].ContextMap()["index"])
	assert.Equal(t, ReasonInvalidRecord, skipped[0].ContextMap()["reason"])
}

func TestFilter_NoSurvivors(t *testing.T) {
	f := &Filter{Resolver: NewResolver(t.TempDir(), DefaultRules())}
	_, stats, err := f.Run(context.Background(), []LabelRecord{
		{Text: "AAA1111", ImagePath: "a.png"},
		{Text: "BBB2222", ImagePath: "b.png"},
	})
	require.ErrorIs(t, err, ErrNoValidRecords)
	assert.Equal(t, 2, stats.Skipped[ReasonMissingImage])

	_, _, err = f.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoValidRecords)
}

func TestFilter_PoolMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	var records []LabelRecord
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("P%03d.png", i)
		if i%3 != 0 {
			touch(t, dir, "mercosul_degrade_"+name)
		}
		records = append(records, LabelRecord{
			Text:      fmt.Sprintf("ABC%04d", i),
			ImagePath: "mercosul/" + name,
			Index:     i,
		})
	}

	seq := &Filter{Resolver: NewResolver(dir, DefaultRules()), Workers: 1}
	pool := &Filter{Resolver: NewResolver(dir, DefaultRules()), Workers: 8}

	want, wantStats, err := seq.Run(context.Background(), records)
	require.NoError(t, err)
	got, gotStats, err := pool.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, wantStats, gotStats)
	assert.Len(t, got, 133)
}

func TestFilter_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	touch(t, dir, "a.png")
	records := make([]LabelRecord, 50)
	for i := range records {
		records[i] = LabelRecord{Text: "AAA1111", ImagePath: "a.png", Index: i}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{0, 4} {
		f := &Filter{Resolver: NewResolver(dir, nil), Workers: workers}
		_, _, err := f.Run(ctx, records)
		require.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
	}
}

func TestFilter_VerifyImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "good.png")
	touch(t, dir, "empty.png")

	f := &Filter{
		Resolver: NewResolver(dir, nil),
		Prober:   imaging.NewProber(),
		Workers:  2,
	}
	kept, stats, err := f.Run(context.Background(), []LabelRecord{
		{Text: "AAA1111", ImagePath: "good.png", Index: 0},
		{Text: "BBB2222", ImagePath: "empty.png", Index: 1},
	})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "AAA1111", kept[0].Label)
	assert.Equal(t, 1, stats.Skipped[ReasonUndecodable])
}
