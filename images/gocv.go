package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// GoCVDecoder decodes with OpenCV's imdecode.
type GoCVDecoder struct {
	resizer *Resizer
}

// NewGoCVDecoder creates a new GoCVDecoder.
func NewGoCVDecoder(resizer *Resizer) *GoCVDecoder {
	return &GoCVDecoder{resizer: resizer}
}

// Decode decodes data into a BGR Mat, optionally resizes it, and converts
// it to packed RGB.
func (d *GoCVDecoder) Decode(path string, data []byte) (*Decoded, error) {
	format := DetectFormat(data)
	if format == FormatUnknown {
		return nil, ErrUnknownFormat
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(err, "imdecode failed")
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, errors.Errorf("imdecode produced an empty %s image", format)
	}

	if d.resizer != nil {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, image.Pt(d.resizer.Width, d.resizer.Height), 0, 0, gocv.InterpolationLinear)
		mat, resized = resized, mat
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	pix := rgb.ToBytes()

	return &Decoded{
		Path:     path,
		Format:   format,
		Width:    rgb.Cols(),
		Height:   rgb.Rows(),
		Channels: 3,
		Pix:      pix,
		Checksum: ComputeChecksum(pix),
	}, nil
}

// Close is a no-op; Mats are released per call.
func (d *GoCVDecoder) Close() error {
	return nil
}
