package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/plate-prep/internal/config"
)

// writeInput writes content to dir/train.csv and returns its path.
func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

type failing struct{ err error }

func (f failing) Convert(context.Context, Request) (Result, error) { return Result{}, f.err }

func TestNative_RecFormat(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir,
		"/data/antigas_degrade_ABC1234.png, ABC1234\n"+
			"'/my data/x, y.png', BRA 2E19\n"+
			"\n"+
			"/data/q.png, \"QWE4R56\"\r\n")
	out := filepath.Join(dir, "train.txt")

	res, err := (&Native{Atomic: true}).Convert(context.Background(), Request{Input: in, Output: out, Delimiter: ", "})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Lines)
	assert.False(t, res.FellBack)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t,
		"/data/antigas_degrade_ABC1234.png\tABC1234\n"+
			"/my data/x, y.png\tBRA2E19\n"+
			"/data/q.png\tQWE4R56\n",
		string(got))
}

func TestNative_UnsupportedMode(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "/a.png, A\n")
	_, err := (&Native{}).Convert(context.Background(), Request{Input: in, Output: filepath.Join(dir, "o"), Mode: "det"})
	require.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestNative_MalformedLine(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "/a.png, A\n/b.png B\n")
	out := filepath.Join(dir, "train.txt")
	_, err := (&Native{Atomic: true}).Convert(context.Background(), Request{Input: in, Output: out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "atomic write leaves no partial output")
}

func TestFallback_CopiesVerbatim(t *testing.T) {
	dir := t.TempDir()
	content := "/data/a.png, ABC1234\n/data/b.png, XYZ9876\n"
	in := writeInput(t, dir, content)
	out := filepath.Join(dir, "train.txt")

	core, logs := observer.New(zapcore.WarnLevel)
	c := WithFallback(failing{errors.New("no python")}, zap.New(core))

	res, err := c.Convert(context.Background(), Request{Input: in, Output: out})
	require.NoError(t, err)
	assert.True(t, res.FellBack)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "no python", logs.All()[0].ContextMap()["error"])
}

func TestFallback_CopyFails(t *testing.T) {
	dir := t.TempDir()
	c := WithFallback(failing{errors.New("boom")}, nil)
	_, err := c.Convert(context.Background(), Request{
		Input:  filepath.Join(dir, "missing.csv"),
		Output: filepath.Join(dir, "out.txt"),
	})
	require.ErrorIs(t, err, ErrConverterFailed)
}

func TestFallback_PassesCancellation(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "/a.png, A\n")
	c := WithFallback(failing{context.Canceled}, nil)
	_, err := c.Convert(context.Background(), Request{Input: in, Output: filepath.Join(dir, "o.txt")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFallback_PassesParentDeadline(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "/a.png, A\n")
	out := filepath.Join(dir, "o.txt")
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	c := WithFallback(failing{context.DeadlineExceeded}, nil)
	_, err := c.Convert(ctx, Request{Input: in, Output: out})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoFileExists(t, out)

	_, err = Strict{Inner: failing{context.DeadlineExceeded}}.Convert(ctx, Request{Input: in})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrConverterFailed)
}

func TestFallback_ExecTimeoutFallsBack(t *testing.T) {
	script := writeScript(t, "exec sleep 10\n")
	dir := t.TempDir()
	in := writeInput(t, dir, "/a.png, A\n")
	out := filepath.Join(dir, "o.txt")

	c := WithFallback(&Exec{Python: "sh", Script: script, Timeout: 100 * time.Millisecond}, nil)
	res, err := c.Convert(context.Background(), Request{Input: in, Output: out})
	require.NoError(t, err)
	assert.True(t, res.FellBack)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/a.png, A\n", string(data))
}

func TestStrict(t *testing.T) {
	_, err := Strict{Inner: failing{errors.New("boom")}}.Convert(context.Background(), Request{Input: "x.csv"})
	require.ErrorIs(t, err, ErrConverterFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Converter

	c, err := FromConfig(cfg, true, nil)
	require.NoError(t, err)
	fb, ok := c.(*Fallback)
	require.True(t, ok)
	assert.IsType(t, &Exec{}, fb.Inner)

	cfg.Kind = "native"
	cfg.Fallback = false
	c, err = FromConfig(cfg, true, nil)
	require.NoError(t, err)
	st, ok := c.(Strict)
	require.True(t, ok)
	assert.IsType(t, &Native{}, st.Inner)

	cfg.Kind = "docker"
	_, err = FromConfig(cfg, true, nil)
	assert.Error(t, err)
}

func TestExec_Args(t *testing.T) {
	e := &Exec{Python: "python3", Script: "PaddleOCR/ppocr/utils/gen_label.py"}
	assert.Equal(t, []string{
		"python3",
		"PaddleOCR/ppocr/utils/gen_label.py",
		"--mode=rec",
		"--input_path=/out/train.csv",
		"--output_label=/out/train.txt",
	}, e.Args(Request{Input: "/out/train.csv", Output: "/out/train.txt"}))
}

// writeScript writes a POSIX shell script standing in for gen_label.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts need a POSIX sh")
	}
	p := filepath.Join(t.TempDir(), "gen_label.sh")
	require.NoError(t, os.WriteFile(p, []byte(body), 0755))
	return p
}

func TestExec_RunsScript(t *testing.T) {
	script := writeScript(t, `
for a in "$@"; do
  case "$a" in
    --input_path=*) in="${a#--input_path=}" ;;
    --output_label=*) out="${a#--output_label=}" ;;
    --mode=rec) ;;
    *) echo "bad arg $a" >&2; exit 2 ;;
  esac
done
cp "$in" "$out"
`)
	dir := t.TempDir()
	in := writeInput(t, dir, "/a.png, A\n")
	out := filepath.Join(dir, "train.txt")

	res, err := (&Exec{Python: "sh", Script: script}).Convert(context.Background(), Request{Input: in, Output: out})
	require.NoError(t, err)
	assert.Equal(t, out, res.Output)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/a.png, A\n", string(got))
}

func TestExec_FailureCarriesOutput(t *testing.T) {
	script := writeScript(t, "echo 'No module named paddle' >&2\nexit 3\n")
	dir := t.TempDir()
	_, err := (&Exec{Python: "sh", Script: script}).Convert(context.Background(),
		Request{Input: writeInput(t, dir, ""), Output: filepath.Join(dir, "o.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No module named paddle")
}

func TestExec_NoOutputIsFailure(t *testing.T) {
	script := writeScript(t, "exit 0\n")
	dir := t.TempDir()
	_, err := (&Exec{Python: "sh", Script: script}).Convert(context.Background(),
		Request{Input: writeInput(t, dir, ""), Output: filepath.Join(dir, "o.txt")})
	require.Error(t, err)
}

func TestExec_Timeout(t *testing.T) {
	script := writeScript(t, "exec sleep 10\n")
	dir := t.TempDir()
	start := time.Now()
	_, err := (&Exec{Python: "sh", Script: script, Timeout: 100 * time.Millisecond}).Convert(context.Background(),
		Request{Input: writeInput(t, dir, ""), Output: filepath.Join(dir, "o.txt")})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExec_MissingInterpreter(t *testing.T) {
	dir := t.TempDir()
	_, err := (&Exec{Python: filepath.Join(dir, "no-such-python"), Script: "x.py"}).Convert(context.Background(),
		Request{Input: writeInput(t, dir, ""), Output: filepath.Join(dir, "o.txt")})
	require.Error(t, err)
}
