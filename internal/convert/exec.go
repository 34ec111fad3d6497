package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxOutput caps how much subprocess output is kept in an error.
const maxOutput = 4 << 10

// Exec runs the toolkit's gen_label script.
type Exec struct {
	Python  string
	Script  string
	Timeout time.Duration
}

// Args returns the subprocess argv for req, interpreter first.
func (e *Exec) Args(req Request) []string {
	return []string{
		e.Python,
		e.Script,
		"--mode=" + req.mode(),
		"--input_path=" + req.Input,
		"--output_label=" + req.Output,
	}
}

// Convert runs the script and waits for it. Cancelling ctx or exceeding
// Timeout kills it.
func (e *Exec) Convert(ctx context.Context, req Request) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := e.Args(req)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = time.Second

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%w)", ctxErr, err)
		}
		return Result{}, fmt.Errorf("%s: %w%s", strings.Join(args, " "), err, formatOutput(out))
	}

	if _, err := os.Stat(req.Output); err != nil {
		return Result{}, fmt.Errorf("%s exited cleanly but wrote no output: %w", e.Script, err)
	}
	return Result{Output: req.Output}, nil
}

func formatOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if s == "" {
		return ""
	}
	if len(s) > maxOutput {
		s = "..." + s[len(s)-maxOutput:]
	}
	return "\n" + s
}
