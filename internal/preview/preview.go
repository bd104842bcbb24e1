package preview

import (
	"bytes"
	"fmt"
	"image"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultMaxSide bounds the longest side of a preview, in pixels.
const DefaultMaxSide = 150

// SupportedExtensions lists the raster formats offered by the file pickers.
var SupportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsSupportedExtension checks a filename against SupportedExtensions.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Extensions returns the supported extensions in sorted order.
func Extensions() []string {
	return slices.Sorted(maps.Keys(SupportedExtensions))
}

// Preview is a decoded image's source size plus a bounded thumbnail.
type Preview struct {
	Width  int // source pixels
	Height int
	Thumb  image.Image
	PNG    []byte // Thumb encoded as PNG
}

// ThumbSize returns the thumbnail's pixel dimensions.
func (p *Preview) ThumbSize() (int, int) {
	if p == nil || p.Thumb == nil {
		return 0, 0
	}
	b := p.Thumb.Bounds()
	return b.Dx(), b.Dy()
}

// DecodeError reports a file that could not be decoded as an image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not load image %s: %s", filepath.Base(e.Path), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Load decodes the image at path and builds a preview whose longest side is
// at most maxSide pixels. Smaller images are not upscaled.
func Load(path string, maxSide int) (*Preview, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return fromImage(img, path, maxSide)
}

func fromImage(img image.Image, path string, maxSide int) (*Preview, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("empty image")}
	}
	thumb := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return &Preview{
		Width:  b.Dx(),
		Height: b.Dy(),
		Thumb:  thumb,
		PNG:    buf.Bytes(),
	}, nil
}
