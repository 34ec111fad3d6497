package convert

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-prep/internal/config"
)

// ModeRec is the recognition-label mode, the only one this tool produces.
const ModeRec = "rec"

var (
	// ErrConverterFailed wraps any conversion failure that was not absorbed
	// by a fallback.
	ErrConverterFailed = errors.New("label conversion failed")
	// ErrUnsupportedMode is returned by Native for modes other than rec.
	ErrUnsupportedMode = errors.New("unsupported conversion mode")
)

// Request describes one file conversion.
type Request struct {
	Input  string
	Output string
	// Mode is passed through to the toolkit; empty means rec.
	Mode string
	// Delimiter separates path and label in Input. Native needs it; Exec
	// leaves parsing to the script.
	Delimiter string
}

func (r Request) mode() string {
	if r.Mode == "" {
		return ModeRec
	}
	return r.Mode
}

// Result describes a finished conversion.
type Result struct {
	Output string
	// Lines is the number of records written, when the converter knows it.
	Lines int
	// FellBack is set when the output is a verbatim copy of the input.
	FellBack bool
}

// Converter converts one delimited file into a toolkit label file.
type Converter interface {
	Convert(ctx context.Context, req Request) (Result, error)
}

// FromConfig builds the converter described by cfg, wrapped in a fallback
// when cfg.Fallback is set.
func FromConfig(cfg config.ConverterConfig, atomic bool, logger *zap.Logger) (Converter, error) {
	var inner Converter
	switch cfg.Kind {
	case "exec":
		inner = &Exec{Python: cfg.Python, Script: cfg.Script, Timeout: cfg.Timeout}
	case "native":
		inner = &Native{Atomic: atomic}
	default:
		return nil, fmt.Errorf("unknown converter kind %q", cfg.Kind)
	}
	if !cfg.Fallback {
		return Strict{Inner: inner}, nil
	}
	return &Fallback{Inner: inner, Atomic: atomic, Logger: logger}, nil
}

// Strict marks every inner failure with ErrConverterFailed.
type Strict struct {
	Inner Converter
}

// Convert runs the inner converter.
func (s Strict) Convert(ctx context.Context, req Request) (Result, error) {
	res, err := s.Inner.Convert(ctx, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return res, err
		}
		return res, fmt.Errorf("%w: %s: %w", ErrConverterFailed, req.Input, err)
	}
	return res, nil
}
