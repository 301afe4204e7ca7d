package images

import (
	"bytes"
	"image/png"

	"github.com/cshum/vipsgen/vips"
	"github.com/pkg/errors"
)

// VipsDecoder decodes with libvips and hands the pixels back to Go through a
// lossless PNG buffer.
type VipsDecoder struct {
	resizer *Resizer
}

// NewVipsDecoder creates a new VipsDecoder.
func NewVipsDecoder(resizer *Resizer) *VipsDecoder {
	return &VipsDecoder{resizer: resizer}
}

// Decode loads data with libvips, optionally thumbnails it, and converts it
// to packed RGB.
func (d *VipsDecoder) Decode(path string, data []byte) (*Decoded, error) {
	format := DetectFormat(data)
	if format == FormatUnknown {
		return nil, ErrUnknownFormat
	}

	img, err := vips.NewImageFromBuffer(data, &vips.LoadOptions{
		Access: vips.AccessSequential,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load image")
	}
	defer img.Close()

	if d.resizer != nil {
		err = img.ThumbnailImage(d.resizer.Width, &vips.ThumbnailImageOptions{
			Height: d.resizer.Height,
			FailOn: vips.FailOnError,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to resize image")
		}
	}

	// Saving forces the whole pixel pipeline to run.
	buf, err := img.PngsaveBuffer(&vips.PngsaveBufferOptions{})
	if err != nil || len(buf) == 0 {
		return nil, errors.Errorf("failed to export %s image", format)
	}

	decoded, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read exported pixels")
	}

	return newDecoded(path, format, decoded), nil
}

// Close is a no-op; images are released per call.
func (d *VipsDecoder) Close() error {
	return nil
}
