package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "PLATE_PREP_"

// LoadDotEnv injects KEY=VALUE pairs from path into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overlays PLATE_PREP_* variables read through lookup onto c.
// Unparseable numeric or boolean values are reported, not ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}

	strs := map[string]*string{
		"LABELS":           &c.LabelsPath,
		"IMAGE_DIR":        &c.ImageDir,
		"OUTPUT_DIR":       &c.OutputDir,
		"QUOTE_STYLE":      &c.QuoteStyle,
		"CONVERTER":        &c.Converter.Kind,
		"PYTHON":           &c.Converter.Python,
		"GEN_LABEL_SCRIPT": &c.Converter.Script,
		"LOG_LEVEL":        &c.Logging.Level,
		"LOG_FORMAT":       &c.Logging.Format,
		"METRICS_FILE":     &c.MetricsFile,
		"AUDIT_LANGUAGE":   &c.Audit.Language,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	// Whitespace is significant in the delimiter.
	if v, ok := lookup(EnvPrefix + "DELIMITER"); ok && v != "" {
		c.Delimiter = ParseDelimiter(v)
	}

	if v, ok := get("WORKERS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sWORKERS=%q: %v", ErrInvalid, EnvPrefix, v, err)
		}
		c.Workers = n
	}
	if v, ok := get("SEED"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sSEED=%q: %v", ErrInvalid, EnvPrefix, v, err)
		}
		c.Split.Seed = n
	}
	if v, ok := get("CONVERTER_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sCONVERTER_TIMEOUT=%q: %v", ErrInvalid, EnvPrefix, v, err)
		}
		c.Converter.Timeout = d
	}

	bools := map[string]*bool{
		"VERIFY_IMAGES":      &c.VerifyImages,
		"ATOMIC_WRITES":      &c.AtomicWrites,
		"STRATIFY":           &c.Split.Stratify,
		"CONVERTER_FALLBACK": &c.Converter.Fallback,
	}
	for key, dst := range bools {
		v, ok := get(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err)
		}
		*dst = b
	}
	return nil
}

// ParseDelimiter accepts the spellings a shell user can actually type for
// a tab ("\t", "tab", "TAB") and returns everything else verbatim.
func ParseDelimiter(s string) string {
	switch s {
	case `\t`, "tab", "TAB":
		return "\t"
	case "comma":
		return ","
	}
	return s
}
