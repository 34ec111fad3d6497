// Package imaging inspects and prepares the plate images referenced by a
// labels file.
//
// Two jobs live here:
//
//   - Probing: reading just enough of an image file to learn its format and
//     dimensions. The dataset filter uses this to reject files that exist but
//     do not decode as images. Results are cached per path.
//   - Preprocessing: turning a plate crop into something a generic OCR engine
//     reads well (grayscale, upscaled to a minimum height, optionally
//     binarized, padded with a white border). The OCR baseline audit uses it.
//
// # Supported Formats
//
// PNG, JPEG and GIF come from the standard library. BMP, TIFF and WebP are
// registered from golang.org/x/image. Format detection is based on file
// contents, not on the extension.
//
// # Thread Safety
//
// Prober is safe for concurrent use; the dataset filter calls it from its
// worker pool. The preprocessing functions are stateless.
//
// # Coordinate System
//
// All images keep the standard Go convention: (0,0) is the top-left corner,
// X increases rightward, and Y increases downward.
package imaging
