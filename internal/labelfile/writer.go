package labelfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/plate-prep/internal/charset"
	"github.com/ironsheep/plate-prep/internal/dataset"
)

// Ext is the extension of delimited split files.
const Ext = ".csv"

// DefaultDelimiter separates path and label, the form gen_label expects.
const DefaultDelimiter = ", "

// Writer renders partitions into files under Dir.
type Writer struct {
	Dir       string
	Delimiter string
	Quote     QuoteStyle
	Atomic    bool
}

// NewWriter returns an atomic writer with the default delimiter and
// auto quoting.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Delimiter: DefaultDelimiter, Quote: QuoteAuto, Atomic: true}
}

func (w *Writer) delimiter() string {
	if w.Delimiter == "" {
		return DefaultDelimiter
	}
	return w.Delimiter
}

// Path returns the file a split named name is written to.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.Dir, name+Ext)
}

// FormatLine renders one record without the trailing newline.
func (w *Writer) FormatLine(r dataset.ResolvedRecord) string {
	return Quote(r.Path, w.Quote) + w.delimiter() + r.Label
}

// WriteSplit writes records to <Dir>/<name>.csv in the given order and
// returns the file path.
func (w *Writer) WriteSplit(name string, records []dataset.ResolvedRecord) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	for _, r := range records {
		if !filepath.IsAbs(r.Path) {
			return "", fmt.Errorf("record %d: path %q is not absolute", r.Index, r.Path)
		}
		if strings.ContainsAny(r.Label, "\r\n") {
			return "", fmt.Errorf("record %d: label spans multiple lines", r.Index)
		}
		if strings.Contains(r.Label, w.delimiter()) {
			return "", fmt.Errorf("record %d: label %q contains the delimiter %q", r.Index, r.Label, w.delimiter())
		}
	}

	dest := w.Path(name)
	err := WriteWith(dest, w.Atomic, func(out io.Writer) error {
		for _, r := range records {
			if _, err := io.WriteString(out, w.FormatLine(r)+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

// WriteCharset writes the plate alphabet, one symbol per line, to
// <Dir>/<name>. The content never depends on the data.
func (w *Writer) WriteCharset(name string) (string, error) {
	if name == "" {
		name = charset.FileName
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	dest := filepath.Join(w.Dir, name)
	err := WriteWith(dest, w.Atomic, func(out io.Writer) error {
		_, err := out.Write(charset.Content())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

// EnsureDir creates Dir if needed and checks it is a writable directory.
func (w *Writer) EnsureDir() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", w.Dir, err)
	}
	probe, err := os.CreateTemp(w.Dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", w.Dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name %q must be a bare name", name)
	}
	return nil
}
