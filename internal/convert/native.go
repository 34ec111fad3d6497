package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ironsheep/plate-prep/internal/labelfile"
)

// Native converts in process. Only rec mode is supported.
//
// Each non-blank input line is split on its last delimiter. The path is
// unquoted, spaces and double quotes are stripped from the label, and the
// pair is written as "path\tlabel".
type Native struct {
	Atomic bool
}

// Convert writes req.Output from req.Input.
func (n *Native) Convert(ctx context.Context, req Request) (Result, error) {
	if req.mode() != ModeRec {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedMode, req.Mode)
	}
	delim := req.Delimiter
	if delim == "" {
		delim = labelfile.DefaultDelimiter
	}

	in, err := os.Open(req.Input)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", req.Input, err)
	}
	defer in.Close()

	lines := 0
	err = labelfile.WriteWith(req.Output, n.Atomic, func(out io.Writer) error {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		lineNo := 0
		for sc.Scan() {
			lineNo++
			if lineNo%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			line := sc.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			path, label, ok := labelfile.ParseLine(line, delim)
			if !ok {
				return fmt.Errorf("%s:%d: no %q delimiter", req.Input, lineNo, delim)
			}
			label = strings.NewReplacer(" ", "", `"`, "").Replace(label)
			if _, err := io.WriteString(out, path+"\t"+label+"\n"); err != nil {
				return err
			}
			lines++
		}
		return sc.Err()
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Output: req.Output, Lines: lines}, nil
}
