package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// ErrUnknownFormat is returned when the bytes match no supported image signature.
var ErrUnknownFormat = errors.New("unknown image format")

// Decoder turns raw file bytes into a Decoded image.
//
// A Decoder is owned by a single goroutine; implementations are not required
// to be safe for concurrent use.
type Decoder interface {
	// Decode decodes data read from path.
	Decode(path string, data []byte) (*Decoded, error)
	// Close releases any native resources held by the decoder.
	Close() error
}

// DecoderFactory builds a fresh Decoder, one per worker.
type DecoderFactory func() (Decoder, error)

// DecoderKind selects the decoding backend.
type DecoderKind string

// DecoderKind constants
const (
	// DecoderStd decodes with image/jpeg, image/png and chai2010/webp.
	DecoderStd DecoderKind = "std"
	// DecoderGoCV decodes with OpenCV through gocv.
	DecoderGoCV DecoderKind = "gocv"
	// DecoderVips decodes with libvips through vipsgen.
	DecoderVips DecoderKind = "vips"
)

// ParseDecoderKind parses a backend name.
func ParseDecoderKind(s string) (DecoderKind, error) {
	switch kind := DecoderKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case DecoderStd, DecoderGoCV, DecoderVips:
		return kind, nil
	case "":
		return DecoderStd, nil
	default:
		return "", errors.Errorf("unknown decoder %q (want std, gocv or vips)", s)
	}
}

// NewDecoderFactory returns a factory for the given backend.
//
// Arguments:
//   - kind: The decoding backend.
//   - resizer: Optional post-decode resize, nil to keep the source dimensions.
//
// Returns:
//   - DecoderFactory: Builds one decoder per call.
//   - error: If the backend is unknown.
func NewDecoderFactory(kind DecoderKind, resizer *Resizer) (DecoderFactory, error) {
	switch kind {
	case DecoderStd, "":
		return func() (Decoder, error) { return NewStdDecoder(resizer), nil }, nil
	case DecoderGoCV:
		return func() (Decoder, error) { return NewGoCVDecoder(resizer), nil }, nil
	case DecoderVips:
		return func() (Decoder, error) { return NewVipsDecoder(resizer), nil }, nil
	default:
		return nil, errors.Errorf("unknown decoder %q", kind)
	}
}

// StdDecoder decodes with the Go image packages plus chai2010/webp.
type StdDecoder struct {
	resizer *Resizer
}

// NewStdDecoder creates a new StdDecoder.
func NewStdDecoder(resizer *Resizer) *StdDecoder {
	return &StdDecoder{resizer: resizer}
}

// Decode decodes a JPEG, PNG or WebP buffer into packed RGB.
func (d *StdDecoder) Decode(path string, data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}

	format := DetectFormat(data)

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case FormatWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", format)
	}

	if d.resizer != nil {
		img = d.resizer.Apply(img)
	}

	return newDecoded(path, format, img), nil
}

// Close is a no-op.
func (d *StdDecoder) Close() error {
	return nil
}
