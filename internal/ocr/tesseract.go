package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/plate-prep/internal/charset"
	"github.com/ironsheep/plate-prep/internal/config"
	"github.com/ironsheep/plate-prep/internal/imaging"
)

// Bounds represents a rectangular bounding box in pixel coordinates of the
// preprocessed image.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Word is one recognized word with its OCR confidence.
type Word struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// Reading is the result of recognizing one plate image.
type Reading struct {
	// Text is Raw normalized to the plate alphabet.
	Text string `json:"text"`

	// Raw is the engine output with surrounding whitespace trimmed.
	Raw string `json:"raw"`

	// Confidence is the mean word confidence, 0 when no word was found.
	Confidence float64 `json:"confidence"`

	// Words may be empty if bounding box extraction fails.
	Words []Word `json:"words"`
}

// Recognizer reads the plate text of a single image file.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (*Reading, error)
}

// Tesseract is a Recognizer backed by gosseract.
//
// A new Tesseract client is created per call, so one Tesseract value can be
// shared by several goroutines.
type Tesseract struct {
	// Language is the Tesseract language code, e.g. "eng".
	Language string

	// TessdataPrefix points at a non-default traineddata directory.
	TessdataPrefix string

	// Whitelist restricts output characters; empty means the plate alphabet.
	Whitelist string

	// Prepare controls preprocessing before recognition.
	Prepare imaging.PrepareOptions
}

// NewTesseract builds a recognizer from the audit configuration.
func NewTesseract(cfg config.AuditConfig) *Tesseract {
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{
		Language: lang,
		Prepare: imaging.PrepareOptions{
			MinHeight: cfg.MinHeight,
			Threshold: cfg.Threshold,
			Padding:   10,
		},
	}
}

func (t *Tesseract) whitelist() string {
	if t.Whitelist != "" {
		return t.Whitelist
	}
	return charset.Whitelist()
}

// Recognize loads the image at path, preprocesses it and runs Tesseract
// in single-line mode.
//
// The engine call itself cannot be interrupted; ctx is checked before it
// starts.
func (t *Tesseract) Recognize(ctx context.Context, path string) (*Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Load(path)
	if err != nil {
		return nil, err
	}
	prepared, err := imaging.PrepareForOCR(img, t.Prepare)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess %s: %w", path, err)
	}
	data, err := imaging.EncodePNG(prepared)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(t.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(t.whitelist()); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed on %s: %w", path, err)
	}

	reading := &Reading{
		Raw:   strings.TrimSpace(text),
		Text:  Normalize(text),
		Words: []Word{},
	}

	// Return just text if boxes fail
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return reading, nil
	}
	var sum float64
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		w := Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		}
		sum += w.Confidence
		reading.Words = append(reading.Words, w)
	}
	if n := len(reading.Words); n > 0 {
		reading.Confidence = sum / float64(n)
	}
	return reading, nil
}

// Info describes the OCR backend.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
}

// GetInfo reports the linked Tesseract version.
func GetInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()
	v := client.Version()
	return Info{Available: v != "", Version: v, Backend: "gosseract"}
}

// Normalize upper-cases s and drops every rune outside the plate alphabet,
// so "abc 1d23\n" becomes "ABC1D23".
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if charset.Contains(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
