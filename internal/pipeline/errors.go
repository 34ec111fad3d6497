package pipeline

import (
	"context"
	"errors"

	"github.com/ironsheep/plate-prep/internal/config"
	"github.com/ironsheep/plate-prep/internal/convert"
	"github.com/ironsheep/plate-prep/internal/dataset"
)

// Fatal conditions of a run, re-exported so callers need one import.
var (
	ErrInputNotFound   = dataset.ErrInputNotFound
	ErrInputCorrupt    = dataset.ErrInputCorrupt
	ErrNoValidRecords  = dataset.ErrNoValidRecords
	ErrTooFewRecords   = dataset.ErrTooFewRecords
	ErrConverterFailed = convert.ErrConverterFailed
)

// Process exit statuses.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitInput     = 3
	ExitNoRecords = 4
	ExitConverter = 5
)

// Class names the failure class of err for logs: "usage", "input",
// "no_records", "converter", "cancelled" or "unknown". nil is "ok".
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, config.ErrInvalid):
		return "usage"
	case errors.Is(err, ErrInputNotFound), errors.Is(err, ErrInputCorrupt):
		return "input"
	case errors.Is(err, ErrNoValidRecords), errors.Is(err, ErrTooFewRecords):
		return "no_records"
	case errors.Is(err, ErrConverterFailed):
		return "converter"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "unknown"
}

// ExitCode maps err onto a process exit status.
func ExitCode(err error) int {
	switch Class(err) {
	case "ok":
		return ExitOK
	case "usage":
		return ExitUsage
	case "input":
		return ExitInput
	case "no_records":
		return ExitNoRecords
	case "converter":
		return ExitConverter
	}
	return ExitFailure
}
