package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-prep/internal/config"
	"github.com/ironsheep/plate-prep/internal/labelfile"
	"github.com/ironsheep/plate-prep/internal/metrics"
	"github.com/ironsheep/plate-prep/internal/ocr"
)

// AuditOptions select what Audit runs over.
type AuditOptions struct {
	// Split is "train", "test" or "eval"; empty means cfg.Audit.Split.
	Split string
	// Limit caps the number of images; 0 audits the whole split.
	Limit int
}

// Audit runs rec over a split written by an earlier Run and scores it
// against the labels.
func Audit(ctx context.Context, cfg config.Config, rec ocr.Recognizer, opts AuditOptions, logger *zap.Logger, m *metrics.Metrics) (*ocr.Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	split := opts.Split
	if split == "" {
		split = cfg.Audit.Split
	}
	switch split {
	case "train", "test", "eval":
	default:
		return nil, fmt.Errorf("%w: unknown split %q", config.ErrInvalid, split)
	}

	path := filepath.Join(cfg.OutputDir, split+labelfile.Ext)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s (run prepare first): %w", ErrInputNotFound, path, err)
	}

	a := &ocr.Auditor{Recognizer: rec, Workers: cfg.Workers, Limit: opts.Limit, Logger: logger}
	rep, err := a.AuditFile(ctx, split, path, cfg.Delimiter)
	if err != nil {
		return nil, err
	}
	logger.Info("audit complete",
		zap.String("split", split),
		zap.Int("total", rep.Total),
		zap.Float64("exact_match", rep.ExactMatch),
		zap.Float64("cer", rep.CER),
		zap.Int("failed", rep.Failed))

	if m != nil {
		m.Audit(split, rep.ExactMatch, rep.CER)
		if cfg.MetricsFile != "" {
			if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
				logger.Warn("failed to write metrics textfile", zap.Error(err))
			}
		}
	}
	return rep, nil
}
