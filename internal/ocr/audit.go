package ocr

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/plate-prep/internal/labelfile"
)

// Item is one image and its expected label.
type Item struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// Sample is the audit outcome for one Item.
type Sample struct {
	Item
	Predicted string `json:"predicted"`
	Distance  int    `json:"distance"`
	Error     string `json:"error,omitempty"`
}

// Report aggregates an audit.
type Report struct {
	Split      string   `json:"split,omitempty"`
	Total      int      `json:"total"`
	Exact      int      `json:"exact"`
	Failed     int      `json:"failed"`
	CharErrors int      `json:"char_errors"`
	Chars      int      `json:"chars"`
	ExactMatch float64  `json:"exact_match"`
	CER        float64  `json:"cer"`
	Samples    []Sample `json:"samples,omitempty"`
}

// Auditor runs a Recognizer over labeled images.
type Auditor struct {
	Recognizer Recognizer
	// Workers <= 1 recognizes sequentially.
	Workers int
	// Limit caps the number of items audited; 0 audits all.
	Limit  int
	Logger *zap.Logger
}

// ReadItems parses a split file written by labelfile.Writer.
func ReadItems(path, delim string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var items []Item
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, label, ok := labelfile.ParseLine(line, delim)
		if !ok {
			return nil, fmt.Errorf("%s:%d: no %q delimiter", path, lineNo, delim)
		}
		items = append(items, Item{Path: p, Label: strings.TrimSpace(label)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return items, nil
}

// AuditFile audits the split file at path.
func (a *Auditor) AuditFile(ctx context.Context, split, path, delim string) (*Report, error) {
	items, err := ReadItems(path, delim)
	if err != nil {
		return nil, err
	}
	rep, err := a.Audit(ctx, items)
	if err != nil {
		return nil, err
	}
	rep.Split = split
	return rep, nil
}

// Audit recognizes every item and scores the readings. Per-image failures
// are recorded in the samples; only cancellation is returned as an error.
func (a *Auditor) Audit(ctx context.Context, items []Item) (*Report, error) {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if a.Limit > 0 && len(items) > a.Limit {
		items = items[:a.Limit]
	}

	samples := make([]Sample, len(items))
	work := func(i int) {
		samples[i] = a.one(ctx, items[i])
	}

	if a.Workers <= 1 {
		for i := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			work(i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.Workers)
		for i := range items {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				work(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	rep := &Report{Total: len(samples), Samples: samples}
	for _, s := range samples {
		want := Normalize(s.Label)
		rep.Chars += utf8.RuneCountInString(want)
		rep.CharErrors += s.Distance
		if s.Error != "" {
			rep.Failed++
			logger.Warn("recognition failed", zap.String("path", s.Path), zap.String("error", s.Error))
			continue
		}
		if s.Predicted == want {
			rep.Exact++
		}
		logger.Debug("recognized plate",
			zap.String("path", s.Path),
			zap.String("label", s.Label),
			zap.String("predicted", s.Predicted),
			zap.Int("distance", s.Distance))
	}
	if rep.Total > 0 {
		rep.ExactMatch = float64(rep.Exact) / float64(rep.Total)
	}
	if rep.Chars > 0 {
		rep.CER = float64(rep.CharErrors) / float64(rep.Chars)
	}
	return rep, nil
}

func (a *Auditor) one(ctx context.Context, it Item) Sample {
	want := Normalize(it.Label)
	s := Sample{Item: it}
	r, err := a.Recognizer.Recognize(ctx, it.Path)
	if err != nil {
		s.Error = err.Error()
		s.Distance = utf8.RuneCountInString(want)
		return s
	}
	s.Predicted = r.Text
	s.Distance = Levenshtein(want, r.Text)
	return s
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
