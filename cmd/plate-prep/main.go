package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/plate-prep/internal/charset"
	"github.com/ironsheep/plate-prep/internal/config"
	"github.com/ironsheep/plate-prep/internal/labelfile"
	"github.com/ironsheep/plate-prep/internal/logging"
	"github.com/ironsheep/plate-prep/internal/metrics"
	"github.com/ironsheep/plate-prep/internal/ocr"
	"github.com/ironsheep/plate-prep/internal/pipeline"
	"github.com/ironsheep/plate-prep/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// app carries what the subcommands share once the root has loaded config.
type app struct {
	configPath string
	verbose    bool
	logFormat  string

	labels    string
	imageDir  string
	outputDir string
	workers   int
	seed      uint64
	delimiter string
	converter string

	cfg    config.Config
	logger *zap.Logger

	// newRecognizer is swapped in tests so audit runs without Tesseract.
	newRecognizer func(config.AuditConfig) ocr.Recognizer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&app{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(pipeline.ExitCode(err))
}

func newRootCmd(a *app) *cobra.Command {
	if a.newRecognizer == nil {
		a.newRecognizer = func(c config.AuditConfig) ocr.Recognizer { return ocr.NewTesseract(c) }
	}

	root := &cobra.Command{
		Use:   "plate-prep",
		Short: "Prepare Brazilian licence plate crops for OCR fine-tuning",
		Long: `plate-prep turns a JSON labels file and a flat directory of plate crops
into train/test/eval label files for a recognition toolkit, plus the plate
alphabet file.

Settings come from plate-prep.yaml (or --config), then .env and
PLATE_PREP_* variables, then flags.`,
		Args:          usageArgs(cobra.NoArgs),
		Annotations:   map[string]string{"config": "skip"},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["config"] == "skip" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default plate-prep.yaml, or $PLATE_PREP_CONFIG)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: json or console")
	pf.StringVar(&a.labels, "labels", "", "Labels JSON file")
	pf.StringVar(&a.imageDir, "image-dir", "", "Directory holding the plate crops")
	pf.StringVar(&a.outputDir, "output-dir", "", "Directory receiving the label files")
	pf.IntVar(&a.workers, "workers", 0, "Parallel workers for filtering and auditing")
	pf.Uint64Var(&a.seed, "seed", 0, "Split seed")
	pf.StringVar(&a.delimiter, "delimiter", "", `Label file delimiter ("tab" or "\t" for a tab)`)
	pf.StringVar(&a.converter, "converter", "", "Converter kind: exec or native")

	root.AddCommand(
		newPrepareCmd(a),
		newCharsetCmd(a),
		newResolveCmd(a),
		newAuditCmd(a),
		newMCPCmd(a),
		newInitConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// usageArgs tags argument errors so they map to the usage exit code.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
		return nil
	}
}

// setup resolves configuration in precedence order and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("%w: .env: %v", config.ErrInvalid, err)
	}

	path := a.configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("labels") {
		cfg.LabelsPath = a.labels
	}
	if flags.Changed("image-dir") {
		cfg.ImageDir = a.imageDir
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = a.outputDir
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("seed") {
		cfg.Split.Seed = a.seed
	}
	if flags.Changed("delimiter") {
		cfg.Delimiter = config.ParseDelimiter(a.delimiter)
	}
	if flags.Changed("converter") {
		cfg.Converter.Kind = a.converter
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, a.verbose)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("command", cmd.Name()))
	return nil
}

func newPrepareCmd(a *app) *cobra.Command {
	var dryRun, stratify bool
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Filter, split and write the label files",
		Long: `Loads the labels, keeps records whose image exists, splits them 80/10/10
and writes <split>.csv, <split>.txt and the alphabet file to the output
directory. With --dry-run nothing is written.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("stratify") {
				cfg.Split.Stratify = stratify
			}
			run := pipeline.Run
			if dryRun {
				run = pipeline.DryRun
			}
			rep, err := run(cmd.Context(), cfg, pipeline.Deps{Logger: a.logger, Metrics: metrics.New()})
			if err != nil {
				return err
			}
			printReport(cmd, rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report counts without writing anything")
	cmd.Flags().BoolVar(&stratify, "stratify", false, "Split each plate family separately")
	return cmd
}

func printReport(cmd *cobra.Command, rep *pipeline.Report) {
	out := cmd.OutOrStdout()
	skipped := 0
	for _, n := range rep.Skipped {
		skipped += n
	}
	fmt.Fprintf(out, "Run %s\n", rep.RunID)
	fmt.Fprintf(out, "  records: %d loaded, %d invalid, %d skipped, %d kept\n", rep.Loaded, rep.Invalid, skipped, rep.Kept)
	fmt.Fprintf(out, "  split:   train %d, test %d, eval %d\n", rep.Train, rep.Test, rep.Eval)
	if rep.OffAlphabet > 0 {
		fmt.Fprintf(out, "  warning: %d labels use symbols outside the plate alphabet\n", rep.OffAlphabet)
	}
	if rep.Fallbacks > 0 {
		fmt.Fprintf(out, "  warning: converter failed for %d splits, inputs were copied verbatim\n", rep.Fallbacks)
	}
	fmt.Fprintf(out, "  images:  %s\n", rep.ImageDir)
	if rep.DryRun {
		fmt.Fprintf(out, "  output:  %s (dry run, nothing written)\n", rep.OutputDir)
		return
	}
	fmt.Fprintf(out, "  output:  %s\n", rep.OutputDir)
	for _, f := range rep.Files {
		fmt.Fprintf(out, "    %s\n", f)
	}
}

func newCharsetCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "charset",
		Short: "Write the plate alphabet file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := &labelfile.Writer{Dir: a.cfg.OutputDir, Atomic: a.cfg.AtomicWrites}
			if list {
				path := filepath.Join(w.Dir, a.cfg.CharsetFile)
				fmt.Fprintf(cmd.OutOrStdout(), "%s would contain:\n", path)
				_, err := cmd.OutOrStdout().Write(charset.Content())
				return err
			}
			if err := w.EnsureDir(); err != nil {
				return err
			}
			path, err := w.WriteCharset(a.cfg.CharsetFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "Print the alphabet instead of writing it")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <image_path>...",
		Short: "Show where declared image paths resolve to",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := pipeline.Resolve(a.cfg, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			missing := 0
			for _, r := range results {
				switch {
				case r.Error != "":
					fmt.Fprintf(out, "%s\t-> invalid: %s\n", r.Declared, r.Error)
					missing++
				case r.Exists:
					fmt.Fprintf(out, "%s\t-> %s [%s]\n", r.Declared, r.Path, r.Rule)
				default:
					fmt.Fprintf(out, "%s\t-> %s [%s] (missing)\n", r.Declared, r.Path, r.Rule)
					missing++
				}
			}
			if missing == len(results) {
				return fmt.Errorf("%w: none of %d paths resolved to an existing image", pipeline.ErrInputNotFound, len(results))
			}
			return nil
		},
	}
}

func newAuditCmd(a *app) *cobra.Command {
	var split string
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Score an OCR baseline against a written split",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("%w: --limit %d must not be negative", config.ErrInvalid, limit)
			}
			rec := a.newRecognizer(a.cfg.Audit)
			rep, err := pipeline.Audit(cmd.Context(), a.cfg, rec,
				pipeline.AuditOptions{Split: split, Limit: limit}, a.logger, metrics.New())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d images, exact match %.3f, CER %.3f, %d failed\n",
				rep.Split, rep.Total, rep.ExactMatch, rep.CER, rep.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&split, "split", "", "Split to audit: train, test or eval (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Audit at most this many images (0 for all)")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the dataset tools over MCP on stdin/stdout",
		Long: `Runs an MCP server speaking JSON-RPC over stdin/stdout. Logs go to
stderr. Configure it in your MCP client as a stdio server.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Debug("starting MCP server",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("commit", GitCommit))
			srv := server.New(server.Options{
				Config:     a.cfg,
				Logger:     a.logger,
				Recognizer: a.newRecognizer(a.cfg.Audit),
				Version:    Version,
			})
			err := srv.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newInitConfigCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init-config [path]",
		Short:       "Write the default configuration as YAML",
		Args:        usageArgs(cobra.MaximumNArgs(1)),
		Annotations: map[string]string{"config": "skip"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%w: %s exists (use --force to overwrite)", config.ErrInvalid, path)
			}
			cfg := config.Default()
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{"config": "skip"},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plate-prep %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			info := ocr.GetInfo()
			if info.Available {
				fmt.Fprintf(out, "  Tesseract:  %s\n", info.Version)
			}
		},
	}
}
