package images

import (
	"crypto/md5"
	"fmt"
	"image"
	"image/color"
)

// ComputeChecksum generates a deterministic checksum for a pixel buffer so that
// two decodes of the same file can be compared.
//
// Arguments:
// - pix: The pixel buffer to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string, "empty" for an empty buffer.
//
// Example:
//
// ```go
//
//	checksum := ComputeChecksum(decoded.Pix)
//	fmt.Printf("Image checksum: %s\n", checksum)
//
// ```
func ComputeChecksum(pix []byte) string {
	if len(pix) == 0 {
		return "empty"
	}

	hash := md5.New()
	hash.Write(pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// newDecoded packs img into RGB and builds the Decoded record.
func newDecoded(path string, format ImageFormat, img image.Image) *Decoded {
	bounds := img.Bounds()
	pix := toRGB(img)

	return &Decoded{
		Path:     path,
		Format:   format,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: 3,
		Pix:      pix,
		Checksum: ComputeChecksum(pix),
	}
}

// toRGB converts any image into a packed RGB byte slice, dropping alpha.
func toRGB(img image.Image) []byte {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pix := make([]byte, 0, width*height*3)

	switch src := img.(type) {
	case *image.YCbCr:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				yi := src.YOffset(x, y)
				ci := src.COffset(x, y)
				r, g, b := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				pix = append(pix, r, g, b)
			}
		}
	case *image.NRGBA:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, y):src.PixOffset(bounds.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				pix = append(pix, row[i], row[i+1], row[i+2])
			}
		}
	case *image.Gray:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, y):src.PixOffset(bounds.Max.X, y)]
			for _, v := range row {
				pix = append(pix, v, v, v)
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pix = append(pix, c.R, c.G, c.B)
			}
		}
	}

	return pix
}
