// Package images - Image formats, decoders and decoded pixel buffers for the
// load/decode benchmark.
package images

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is returned when the bytes match no supported format.
	FormatUnknown ImageFormat = "unknown"
)

// Decoded is a decoded image: a packed RGB pixel buffer plus its dimensions.
type Decoded struct {
	// The path of the file the image was decoded from.
	Path string `json:"path" yaml:"path"`
	// The format detected from the file contents.
	Format ImageFormat `json:"format" yaml:"format"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
	// Channels is always 3 (R, G, B).
	Channels int `json:"channels" yaml:"channels"`
	// Pix holds Height rows of Width*Channels bytes.
	Pix []byte `json:"-" yaml:"-"`
	// Checksum is the hex md5 of Pix.
	Checksum string `json:"checksum" yaml:"checksum"`
}

// Size returns the number of bytes in the pixel buffer.
func (d *Decoded) Size() int {
	return len(d.Pix)
}
