package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrNotImage is returned when a file exists but no registered decoder
// recognizes its header.
var ErrNotImage = errors.New("not a decodable image")

// ImageInfo contains header-level metadata about an image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder name: "png", "jpeg", "gif", "bmp", "tiff" or "webp".
	// Detection is based on file contents.
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Prober reads image headers and caches the result per path.
//
// Only the header is decoded (image.DecodeConfig), so probing a dataset of
// thousands of plates costs a few hundred bytes of I/O per file instead of a
// full decode.
//
// Prober is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	p := imaging.NewProber()
//	info, err := p.Probe("/data/plates/ABC1D23.png")
//	if errors.Is(err, imaging.ErrNotImage) {
//	    // skip the record
//	}
type Prober struct {
	mu    sync.RWMutex
	infos map[string]*ImageInfo
}

// NewProber creates an empty prober.
func NewProber() *Prober {
	return &Prober{
		infos: make(map[string]*ImageInfo),
	}
}

// Probe returns the header metadata of the image at path.
//
// The result is cached using the exact path string provided; callers that
// want one entry per file should pass absolute paths.
//
// # Errors
//
//   - Returns the os error if the file cannot be opened or stat'd
//   - Returns an error wrapping ErrNotImage if no decoder accepts the header
func (p *Prober) Probe(path string) (*ImageInfo, error) {
	p.mu.RLock()
	if info, ok := p.infos[path]; ok {
		p.mu.RUnlock()
		return info, nil
	}
	p.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotImage, path, err)
	}

	info := &ImageInfo{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		FileSizeBytes: stat.Size(),
	}

	p.mu.Lock()
	p.infos[path] = info
	p.mu.Unlock()

	return info, nil
}

// Len reports how many paths are cached.
func (p *Prober) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.infos)
}

// Evict removes a path from the cache. Missing paths are ignored.
func (p *Prober) Evict(path string) {
	p.mu.Lock()
	delete(p.infos, path)
	p.mu.Unlock()
}

// Load fully decodes the image at path, applying any EXIF orientation so
// phone-captured plates come out upright.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
