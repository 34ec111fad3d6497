// Package config holds the explicit configuration passed into every
// plate-prep component.
//
// Values are layered, lowest precedence first: built-in defaults, a YAML
// file, PLATE_PREP_* environment variables (optionally seeded from a .env
// file), and finally command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/plate-prep/internal/charset"
)

// DefaultFile is read when no config path is given and the file exists.
const DefaultFile = "plate-prep.yaml"

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of knobs for a preparation run.
type Config struct {
	// LabelsPath is the JSON array of {text, image_path} records.
	LabelsPath string `yaml:"labels_path"`
	// ImageDir is the flat directory the resolver looks images up in.
	ImageDir string `yaml:"image_dir"`
	// OutputDir receives the label files and the alphabet file.
	OutputDir string `yaml:"output_dir"`

	// Rules are tried in order; the first whose Contains matches wins.
	Rules []Rule `yaml:"rules"`

	Delimiter    string `yaml:"delimiter"`
	QuoteStyle   string `yaml:"quote_style"`
	AtomicWrites bool   `yaml:"atomic_writes"`
	CharsetFile  string `yaml:"charset_file"`

	// Workers <= 1 filters sequentially.
	Workers      int  `yaml:"workers"`
	VerifyImages bool `yaml:"verify_images"`

	Split     SplitConfig     `yaml:"split"`
	Converter ConverterConfig `yaml:"converter"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`

	// MetricsFile, when set, receives a prometheus textfile after each run.
	MetricsFile string `yaml:"metrics_file"`
}

// Rule maps a substring of the declared image path to a filename prefix.
type Rule struct {
	Name     string `yaml:"name"`
	Contains string `yaml:"contains"`
	Prefix   string `yaml:"prefix"`
}

// SplitConfig configures the train/test/eval partition.
type SplitConfig struct {
	Seed            uint64  `yaml:"seed"`
	HoldoutFraction float64 `yaml:"holdout_fraction"`
	EvalFraction    float64 `yaml:"eval_fraction"`
	Stratify        bool    `yaml:"stratify"`
}

// ConverterConfig selects how delimited files become toolkit label files.
type ConverterConfig struct {
	// Kind is "exec" (toolkit script subprocess) or "native" (in-process).
	Kind     string        `yaml:"kind"`
	Python   string        `yaml:"python"`
	Script   string        `yaml:"script"`
	Mode     string        `yaml:"mode"`
	Timeout  time.Duration `yaml:"timeout"`
	Fallback bool          `yaml:"fallback"`
}

// AuditConfig configures the OCR baseline audit.
type AuditConfig struct {
	Split     string `yaml:"split"`
	Language  string `yaml:"language"`
	MinHeight int    `yaml:"min_height"`
	// Threshold binarizes the image before recognition; 0 disables it.
	Threshold int `yaml:"threshold"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the built-in configuration. Paths follow the dataset/
// layout the labels were originally exported with.
func Default() Config {
	return Config{
		LabelsPath: "dataset/labels.json",
		ImageDir:   "dataset/filter_images",
		OutputDir:  "dataset/finetuning",
		Rules: []Rule{
			{Name: "antigas", Contains: "antigas", Prefix: "antigas_degrade_"},
			{Name: "mercosul", Contains: "mercosul", Prefix: "mercosul_degrade_"},
		},
		Delimiter:    ", ",
		QuoteStyle:   "auto",
		AtomicWrites: true,
		CharsetFile:  charset.FileName,
		Workers:      8,
		Split: SplitConfig{
			Seed:            42,
			HoldoutFraction: 0.2,
			EvalFraction:    0.5,
		},
		Converter: ConverterConfig{
			Kind:     "exec",
			Python:   "python3",
			Script:   "PaddleOCR/ppocr/utils/gen_label.py",
			Mode:     "rec",
			Timeout:  2 * time.Minute,
			Fallback: true,
		},
		Audit: AuditConfig{
			Split:     "eval",
			Language:  "eng",
			MinHeight: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults, unless DefaultFile exists in the working directory. The
// delimiter goes through ParseDelimiter like the env and flag layers.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if _, err := os.Stat(DefaultFile); err != nil {
			return cfg, nil
		}
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: failed to read config %s: %v", ErrInvalid, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: failed to parse config %s: %v", ErrInvalid, path, err)
	}
	cfg.Delimiter = ParseDelimiter(cfg.Delimiter)
	return cfg, nil
}

// Validate reports the first setting that cannot drive a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LabelsPath) == "" {
		return fmt.Errorf("%w: labels_path is empty", ErrInvalid)
	}
	if strings.TrimSpace(c.ImageDir) == "" {
		return fmt.Errorf("%w: image_dir is empty", ErrInvalid)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("%w: output_dir is empty", ErrInvalid)
	}
	if c.Delimiter == "" || strings.ContainsAny(c.Delimiter, "\r\n") {
		return fmt.Errorf("%w: delimiter %q must be non-empty and single-line", ErrInvalid, c.Delimiter)
	}
	switch c.QuoteStyle {
	case "auto", "posix", "windows":
	default:
		return fmt.Errorf("%w: quote_style %q (want auto, posix or windows)", ErrInvalid, c.QuoteStyle)
	}
	if c.CharsetFile == "" || strings.ContainsAny(c.CharsetFile, `/\`) {
		return fmt.Errorf("%w: charset_file %q must be a bare file name", ErrInvalid, c.CharsetFile)
	}
	for i, r := range c.Rules {
		if r.Contains == "" {
			return fmt.Errorf("%w: rules[%d] has an empty contains", ErrInvalid, i)
		}
		if strings.ContainsAny(r.Prefix, `/\`) {
			return fmt.Errorf("%w: rules[%d] prefix %q contains a path separator", ErrInvalid, i, r.Prefix)
		}
	}
	if f := c.Split.HoldoutFraction; f <= 0 || f >= 1 {
		return fmt.Errorf("%w: split.holdout_fraction %v must be in (0, 1)", ErrInvalid, f)
	}
	if f := c.Split.EvalFraction; f <= 0 || f >= 1 {
		return fmt.Errorf("%w: split.eval_fraction %v must be in (0, 1)", ErrInvalid, f)
	}
	switch c.Converter.Kind {
	case "exec":
		if c.Converter.Python == "" || c.Converter.Script == "" {
			return fmt.Errorf("%w: exec converter needs python and script", ErrInvalid)
		}
	case "native":
	default:
		return fmt.Errorf("%w: converter.kind %q (want exec or native)", ErrInvalid, c.Converter.Kind)
	}
	if c.Converter.Mode == "" {
		return fmt.Errorf("%w: converter.mode is empty", ErrInvalid)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format %q (want json or console)", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// Save writes the configuration as YAML, e.g. to seed a new project.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
