package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/plate-prep/internal/charset"
	"github.com/ironsheep/plate-prep/internal/imaging"
)

// Skip reasons reported in FilterStats and metrics.
const (
	ReasonInvalidRecord = "invalid_record"
	ReasonMissingImage  = "missing_image"
	ReasonUndecodable   = "undecodable"
)

// ImageProber is satisfied by *imaging.Prober.
type ImageProber interface {
	Probe(path string) (*imaging.ImageInfo, error)
}

// FilterStats summarises one Filter.Run.
type FilterStats struct {
	Kept    int
	Skipped map[string]int
	// ByRule counts kept records per resolver rule.
	ByRule map[string]int
	// OffAlphabet counts kept records whose label has symbols outside the
	// plate alphabet.
	OffAlphabet int
}

// Filter resolves records and keeps those whose image is on disk.
type Filter struct {
	Resolver *Resolver
	// Workers <= 1 checks records sequentially.
	Workers int
	// Prober, when set, also requires the file to decode as an image.
	Prober ImageProber
	// Delimiter, when set, rejects labels that contain it; such a row
	// would not split back into path and label.
	Delimiter string
	Logger    *zap.Logger
}

type checkResult struct {
	rec    ResolvedRecord
	reason string
	err    error
}

// Run returns the kept records in input order. Per-record problems are
// logged and counted; only cancellation and an empty result are errors.
func (f *Filter) Run(ctx context.Context, records []LabelRecord) ([]ResolvedRecord, FilterStats, error) {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := FilterStats{Skipped: map[string]int{}, ByRule: map[string]int{}}

	results := make([]checkResult, len(records))
	if err := f.checkAll(ctx, records, results); err != nil {
		return nil, stats, err
	}

	kept := make([]ResolvedRecord, 0, len(records))
	for i, res := range results {
		if res.reason != "" {
			stats.Skipped[res.reason]++
			logger.Warn("skipping record",
				zap.Int("index", records[i].Index),
				zap.String("reason", res.reason),
				zap.String("image_path", records[i].ImagePath),
				zap.String("resolved_path", res.rec.Path),
				zap.Error(res.err))
			continue
		}
		if bad := charset.Foreign(res.rec.Label); len(bad) > 0 {
			stats.OffAlphabet++
			logger.Warn("label has symbols outside the plate alphabet",
				zap.Int("index", res.rec.Index),
				zap.String("label", res.rec.Label),
				zap.String("symbols", string(bad)))
		}
		stats.ByRule[res.rec.Rule]++
		kept = append(kept, res.rec)
	}
	stats.Kept = len(kept)

	if len(kept) == 0 {
		return nil, stats, fmt.Errorf("%w: none of %d records resolved to an image in %s",
			ErrNoValidRecords, len(records), f.Resolver.ImageDir())
	}
	return kept, stats, nil
}

// checkAll fills results[i] for every record, on a bounded pool when
// Workers > 1. Each check only reads the filesystem, so workers share
// nothing but their own slot in results.
func (f *Filter) checkAll(ctx context.Context, records []LabelRecord, results []checkResult) error {
	if f.Workers <= 1 {
		for i := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = f.check(records[i])
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Workers)
	for i := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = f.check(records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (f *Filter) check(rec LabelRecord) checkResult {
	abs, rule, err := f.Resolver.Resolve(rec.ImagePath)
	if err != nil {
		return checkResult{reason: ReasonInvalidRecord, err: err}
	}
	out := ResolvedRecord{Path: abs, Label: rec.Text, Rule: rule, Index: rec.Index}
	if f.Delimiter != "" && strings.Contains(rec.Text, f.Delimiter) {
		return checkResult{rec: out, reason: ReasonInvalidRecord,
			err: fmt.Errorf("label %q contains the delimiter %q", rec.Text, f.Delimiter)}
	}

	st, err := os.Stat(abs)
	if err != nil {
		return checkResult{rec: out, reason: ReasonMissingImage, err: err}
	}
	if !st.Mode().IsRegular() {
		return checkResult{rec: out, reason: ReasonMissingImage, err: errors.New("not a regular file")}
	}

	if f.Prober != nil {
		if _, err := f.Prober.Probe(abs); err != nil {
			return checkResult{rec: out, reason: ReasonUndecodable, err: err}
		}
	}
	return checkResult{rec: out}
}
