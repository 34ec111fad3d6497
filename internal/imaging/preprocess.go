package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// PrepareOptions controls PrepareForOCR.
type PrepareOptions struct {
	// MinHeight upscales images shorter than this many pixels, keeping the
	// aspect ratio. 0 leaves the size alone.
	MinHeight int

	// Threshold binarizes the grayscale image at this level (1-255).
	// 0 keeps the grayscale image.
	Threshold int

	// Padding adds a white border of this many pixels on every side.
	Padding int
}

// PrepareForOCR converts a plate crop into a grayscale image sized and
// padded for a general-purpose OCR engine.
//
// Steps, in order:
//  1. Grayscale conversion
//  2. Lanczos upscale to MinHeight if the image is shorter
//  3. Optional binarization at Threshold
//  4. White padding
func PrepareForOCR(img image.Image, opts PrepareOptions) (image.Image, error) {
	if opts.Threshold < 0 || opts.Threshold > 255 {
		return nil, fmt.Errorf("threshold %d outside 0-255", opts.Threshold)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	var out image.Image = imaging.Grayscale(img)

	if opts.MinHeight > 0 && b.Dy() < opts.MinHeight {
		out = imaging.Resize(out, 0, opts.MinHeight, imaging.Lanczos)
	}

	if opts.Threshold > 0 {
		out = segment.Threshold(out, uint8(opts.Threshold))
	}

	if opts.Padding > 0 {
		ob := out.Bounds()
		bg := imaging.New(ob.Dx()+2*opts.Padding, ob.Dy()+2*opts.Padding, color.White)
		out = imaging.PasteCenter(bg, out)
	}

	return out, nil
}

// EncodePNG encodes img as PNG bytes, the form gosseract accepts in memory.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
