package images

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
)

// Resizer downscales decoded images to a fixed size, the same step an
// inference preprocessor would run right after decoding.
type Resizer struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ParseResizer parses a "WxH" string. An empty string yields a nil Resizer.
//
// Arguments:
//   - s: The size, e.g. "640x640".
//
// Returns:
//   - *Resizer: The resizer, nil when s is empty.
//   - error: If s is malformed or a dimension is not positive.
func ParseResizer(s string) (*Resizer, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid size %q: want WxH", s)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d, height=%d", width, height)
	}

	return &Resizer{Width: width, Height: height}, nil
}

// String returns the "WxH" form.
func (r *Resizer) String() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Apply resizes img with bilinear interpolation.
func (r *Resizer) Apply(img image.Image) image.Image {
	return resize.Resize(uint(r.Width), uint(r.Height), img, resize.Bilinear)
}
