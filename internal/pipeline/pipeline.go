package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/plate-prep/internal/config"
	"github.com/ironsheep/plate-prep/internal/convert"
	"github.com/ironsheep/plate-prep/internal/dataset"
	"github.com/ironsheep/plate-prep/internal/imaging"
	"github.com/ironsheep/plate-prep/internal/labelfile"
	"github.com/ironsheep/plate-prep/internal/metrics"
)

// Deps are the collaborators of a run. Zero values are filled in from the
// config.
type Deps struct {
	Logger    *zap.Logger
	Converter convert.Converter
	Prober    dataset.ImageProber
	Metrics   *metrics.Metrics
	// RunID overrides the generated run id.
	RunID string
}

// Report summarises a run.
type Report struct {
	RunID       string         `json:"run_id"`
	DryRun      bool           `json:"dry_run"`
	Loaded      int            `json:"loaded"`
	Invalid     int            `json:"invalid"`
	Transcoded  bool           `json:"transcoded"`
	Skipped     map[string]int `json:"skipped"`
	ByRule      map[string]int `json:"by_rule"`
	OffAlphabet int            `json:"off_alphabet"`
	Kept        int            `json:"kept"`
	Train       int            `json:"train"`
	Test        int            `json:"test"`
	Eval        int            `json:"eval"`
	Files       []string       `json:"files,omitempty"`
	Fallbacks   int            `json:"fallbacks"`
	OutputDir   string         `json:"output_dir"`
	ImageDir    string         `json:"image_dir"`

	// Partition is the split itself, for callers that want the records.
	Partition dataset.Partition `json:"-"`
}

// Run prepares the dataset described by cfg and writes every output file.
func Run(ctx context.Context, cfg config.Config, deps Deps) (*Report, error) {
	return run(ctx, cfg, deps, false)
}

// DryRun loads, filters and splits without writing anything.
func DryRun(ctx context.Context, cfg config.Config, deps Deps) (*Report, error) {
	return run(ctx, cfg, deps, true)
}

func run(ctx context.Context, cfg config.Config, deps Deps, dry bool) (rep *Report, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run_id", runID))
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	rep = &Report{RunID: runID, DryRun: dry}
	defer func() {
		m.Finished(runID, err)
		if cfg.MetricsFile == "" || dry {
			return
		}
		if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Warn("failed to write metrics textfile", zap.Error(werr))
		}
	}()

	imageDir, err := filepath.Abs(cfg.ImageDir)
	if err != nil {
		return rep, fmt.Errorf("%w: image dir %s: %w", ErrInputNotFound, cfg.ImageDir, err)
	}
	rep.ImageDir = imageDir
	if st, err := os.Stat(imageDir); err != nil {
		return rep, fmt.Errorf("%w: image dir: %w", ErrInputNotFound, err)
	} else if !st.IsDir() {
		return rep, fmt.Errorf("%w: image dir %s is not a directory", ErrInputNotFound, imageDir)
	}

	outDir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return rep, fmt.Errorf("output dir %s: %w", cfg.OutputDir, err)
	}
	rep.OutputDir = outDir

	quote, err := labelfile.ParseQuoteStyle(cfg.QuoteStyle)
	if err != nil {
		return rep, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	writer := &labelfile.Writer{Dir: outDir, Delimiter: cfg.Delimiter, Quote: quote, Atomic: cfg.AtomicWrites}
	if !dry {
		if err := writer.EnsureDir(); err != nil {
			return rep, err
		}
	}

	logger.Info("starting run",
		zap.String("labels", cfg.LabelsPath),
		zap.String("image_dir", imageDir),
		zap.String("output_dir", outDir),
		zap.Bool("dry_run", dry))

	// Load
	start := time.Now()
	loaded, err := dataset.Load(cfg.LabelsPath, logger)
	if err != nil {
		return rep, err
	}
	m.ObserveStage("load", start)
	m.Loaded(loaded.Total, loaded.Invalid)
	rep.Loaded, rep.Invalid, rep.Transcoded = loaded.Total, loaded.Invalid, loaded.Transcoded
	if loaded.Transcoded {
		logger.Warn("labels file was not UTF-8 and has been transcoded", zap.String("labels", cfg.LabelsPath))
	}

	// Filter
	start = time.Now()
	prober := deps.Prober
	if prober == nil && cfg.VerifyImages {
		prober = imaging.NewProber()
	}
	filter := &dataset.Filter{
		Resolver:  dataset.NewResolver(imageDir, rulesFromConfig(cfg.Rules)),
		Workers:   cfg.Workers,
		Prober:    prober,
		Delimiter: cfg.Delimiter,
		Logger:    logger,
	}
	kept, stats, err := filter.Run(ctx, loaded.Records)
	rep.Skipped, rep.ByRule, rep.OffAlphabet, rep.Kept = stats.Skipped, stats.ByRule, stats.OffAlphabet, stats.Kept
	m.Filtered(stats.Skipped, stats.ByRule)
	if err != nil {
		if loaded.Invalid > 0 && ctx.Err() == nil {
			err = fmt.Errorf("%w (%d records were also invalid)", err, loaded.Invalid)
		}
		return rep, err
	}
	m.ObserveStage("filter", start)
	logger.Info("filtered records",
		zap.Int("kept", stats.Kept),
		zap.Any("skipped", stats.Skipped),
		zap.Any("by_rule", stats.ByRule))

	// Split
	splitter := dataset.Splitter{
		Seed:            cfg.Split.Seed,
		HoldoutFraction: cfg.Split.HoldoutFraction,
		EvalFraction:    cfg.Split.EvalFraction,
		Stratify:        cfg.Split.Stratify,
	}
	part, err := splitter.Split(kept)
	if err != nil {
		return rep, err
	}
	rep.Partition = part
	rep.Train, rep.Test, rep.Eval = len(part.Train), len(part.Test), len(part.Eval)
	logger.Info("split dataset",
		zap.Uint64("seed", cfg.Split.Seed),
		zap.Int("train", rep.Train),
		zap.Int("test", rep.Test),
		zap.Int("eval", rep.Eval))

	if dry {
		return rep, nil
	}

	conv := deps.Converter
	if conv == nil {
		conv, err = convert.FromConfig(cfg.Converter, cfg.AtomicWrites, logger)
		if err != nil {
			return rep, fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
	}

	// Write and convert
	start = time.Now()
	for _, s := range part.Named() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		csvPath, err := writer.WriteSplit(s.Name, s.Records)
		if err != nil {
			return rep, err
		}
		rep.Files = append(rep.Files, csvPath)
		m.SplitWritten(s.Name, len(s.Records))

		txtPath := filepath.Join(outDir, s.Name+".txt")
		res, err := conv.Convert(ctx, convert.Request{
			Input:     csvPath,
			Output:    txtPath,
			Mode:      cfg.Converter.Mode,
			Delimiter: writer.Delimiter,
		})
		if err != nil {
			return rep, err
		}
		if res.FellBack {
			rep.Fallbacks++
			m.FellBack()
		}
		rep.Files = append(rep.Files, txtPath)
		logger.Info("wrote split",
			zap.String("split", s.Name),
			zap.Int("records", len(s.Records)),
			zap.String("csv", csvPath),
			zap.String("label_file", txtPath),
			zap.Bool("fell_back", res.FellBack))
	}
	m.ObserveStage("write", start)

	charsetPath, err := writer.WriteCharset(cfg.CharsetFile)
	if err != nil {
		return rep, err
	}
	rep.Files = append(rep.Files, charsetPath)

	logger.Info("run complete",
		zap.Int("kept", rep.Kept),
		zap.Int("fallbacks", rep.Fallbacks),
		zap.String("output_dir", outDir))
	return rep, nil
}

func rulesFromConfig(in []config.Rule) []dataset.Rule {
	out := make([]dataset.Rule, len(in))
	for i, r := range in {
		out[i] = dataset.Rule{Name: r.Name, Contains: r.Contains, Prefix: r.Prefix}
	}
	return out
}
