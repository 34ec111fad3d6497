package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/plate-prep/internal/config"
	"github.com/ironsheep/plate-prep/internal/dataset"
)

// Resolution shows where one declared image path lands.
type Resolution struct {
	Declared  string `json:"declared"`
	Candidate string `json:"candidate"`
	Rule      string `json:"rule"`
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	Error     string `json:"error,omitempty"`
}

// Resolve applies the configured rules to each declared path and checks the
// candidate on disk. Nothing is read from the labels file.
func Resolve(cfg config.Config, declared []string) ([]Resolution, error) {
	imageDir, err := filepath.Abs(cfg.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("%w: image dir %s: %w", ErrInputNotFound, cfg.ImageDir, err)
	}
	r := dataset.NewResolver(imageDir, rulesFromConfig(cfg.Rules))

	out := make([]Resolution, 0, len(declared))
	for _, d := range declared {
		res := Resolution{Declared: d}
		res.Candidate, res.Rule = r.Candidate(d)
		abs, _, err := r.Resolve(d)
		if err != nil {
			res.Error = err.Error()
			out = append(out, res)
			continue
		}
		res.Path = abs
		if st, err := os.Stat(abs); err == nil && st.Mode().IsRegular() {
			res.Exists = true
		}
		out = append(out, res)
	}
	return out, nil
}
