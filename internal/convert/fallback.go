package convert

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-prep/internal/labelfile"
)

// Fallback copies the input verbatim when Inner fails.
type Fallback struct {
	Inner  Converter
	Atomic bool
	Logger *zap.Logger
}

// WithFallback wraps inner with an atomic verbatim-copy fallback.
func WithFallback(inner Converter, logger *zap.Logger) *Fallback {
	return &Fallback{Inner: inner, Atomic: true, Logger: logger}
}

// Convert runs Inner. An inner failure is logged and absorbed; only a
// failing copy, or cancellation or deadline of ctx, is returned.
func (f *Fallback) Convert(ctx context.Context, req Request) (Result, error) {
	res, err := f.Inner.Convert(ctx, req)
	if err == nil {
		return res, nil
	}
	// An expired ctx belongs to the caller; Inner's own timeout still
	// falls back.
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return res, err
	}

	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Warn("converter failed, copying input verbatim",
		zap.String("input", req.Input),
		zap.String("output", req.Output),
		zap.Error(err))

	if cerr := labelfile.CopyFile(req.Input, req.Output, f.Atomic); cerr != nil {
		return Result{}, fmt.Errorf("%w: %w (fallback copy: %w)", ErrConverterFailed, err, cerr)
	}
	return Result{Output: req.Output, FellBack: true}, nil
}
