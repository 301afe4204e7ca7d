package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	return img
}

func getJPEGBytes(t testing.TB) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, getTestImage(64, 48), nil))
	return buf.Bytes()
}

func getPNGBytes(t testing.TB) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, getTestImage(64, 48)))
	return buf.Bytes()
}

func getWebPBytes(t testing.TB) []byte {
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, getTestImage(64, 48), &webp.Options{Lossless: true}))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want ImageFormat
	}{
		{"jpeg", getJPEGBytes(t), FormatJPEG},
		{"png", getPNGBytes(t), FormatPNG},
		{"webp", getWebPBytes(t), FormatWebP},
		{"text", []byte("not an image at all"), FormatUnknown},
		{"empty", nil, FormatUnknown},
		{"riff but not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func TestFormatFromExtension(t *testing.T) {
	assert.Equal(t, FormatJPEG, FormatFromExtension("image1.JPG"))
	assert.Equal(t, FormatJPEG, FormatFromExtension("/tmp/a/image2.jpeg"))
	assert.Equal(t, FormatPNG, FormatFromExtension("x.png"))
	assert.Equal(t, FormatWebP, FormatFromExtension("x.webp"))
	assert.Equal(t, FormatUnknown, FormatFromExtension("notes.txt"))
	assert.True(t, IsSupportedFile("frame-0001.jpg"))
	assert.False(t, IsSupportedFile("frame-0001.bmp"))
}

func TestStdDecoderDecode(t *testing.T) {
	decoder := NewStdDecoder(nil)
	defer decoder.Close()

	for _, tc := range []struct {
		name   string
		data   []byte
		format ImageFormat
	}{
		{"jpeg", getJPEGBytes(t), FormatJPEG},
		{"png", getPNGBytes(t), FormatPNG},
		{"webp", getWebPBytes(t), FormatWebP},
	} {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := decoder.Decode("img."+string(tc.format), tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.format, decoded.Format)
			assert.Equal(t, 64, decoded.Width)
			assert.Equal(t, 48, decoded.Height)
			assert.Equal(t, 3, decoded.Channels)
			assert.Equal(t, 64*48*3, decoded.Size())
			assert.Equal(t, ComputeChecksum(decoded.Pix), decoded.Checksum)
		})
	}
}

func TestStdDecoderLosslessPixels(t *testing.T) {
	decoded, err := NewStdDecoder(nil).Decode("red.png", getPNGBytes(t))
	require.NoError(t, err)

	assert.Equal(t, []byte{255, 0, 0}, decoded.Pix[:3])
	assert.Equal(t, []byte{255, 0, 0}, decoded.Pix[len(decoded.Pix)-3:])
}

func TestStdDecoderDeterministic(t *testing.T) {
	data := getJPEGBytes(t)
	decoder := NewStdDecoder(nil)

	first, err := decoder.Decode("a.jpg", data)
	require.NoError(t, err)
	second, err := decoder.Decode("a.jpg", data)
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
}

func TestStdDecoderErrors(t *testing.T) {
	decoder := NewStdDecoder(nil)

	_, err := decoder.Decode("empty.jpg", nil)
	assert.Error(t, err)

	_, err = decoder.Decode("text.jpg", []byte("not a jpeg"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	// A valid signature followed by garbage fails inside the codec.
	truncated := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x42}, 64)...)
	_, err = decoder.Decode("broken.jpg", truncated)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownFormat))
}

func TestStdDecoderResize(t *testing.T) {
	decoder := NewStdDecoder(&Resizer{Width: 32, Height: 16})

	decoded, err := decoder.Decode("img.png", getPNGBytes(t))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Width)
	assert.Equal(t, 16, decoded.Height)
	assert.Len(t, decoded.Pix, 32*16*3)
}

func TestParseResizer(t *testing.T) {
	r, err := ParseResizer("")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = ParseResizer("640x480")
	require.NoError(t, err)
	assert.Equal(t, &Resizer{Width: 640, Height: 480}, r)
	assert.Equal(t, "640x480", r.String())

	for _, bad := range []string{"640", "ax480", "640xb", "0x10", "10x-1"} {
		_, err := ParseResizer(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDecoderKind(t *testing.T) {
	kind, err := ParseDecoderKind("")
	require.NoError(t, err)
	assert.Equal(t, DecoderStd, kind)

	kind, err = ParseDecoderKind(" GoCV ")
	require.NoError(t, err)
	assert.Equal(t, DecoderGoCV, kind)

	_, err = ParseDecoderKind("pillow")
	assert.Error(t, err)
}

func TestNewDecoderFactory(t *testing.T) {
	factory, err := NewDecoderFactory(DecoderStd, nil)
	require.NoError(t, err)

	first, err := factory()
	require.NoError(t, err)
	second, err := factory()
	require.NoError(t, err)
	assert.NotSame(t, first, second, "each worker gets its own decoder")

	_, err = NewDecoderFactory(DecoderKind("nope"), nil)
	assert.Error(t, err)
}

func TestComputeChecksum(t *testing.T) {
	assert.Equal(t, "empty", ComputeChecksum(nil))
	assert.Equal(t, ComputeChecksum([]byte{1, 2, 3}), ComputeChecksum([]byte{1, 2, 3}))
	assert.NotEqual(t, ComputeChecksum([]byte{1, 2, 3}), ComputeChecksum([]byte{3, 2, 1}))
}

func BenchmarkStdDecoderJPEG(b *testing.B) {
	data := getJPEGBytes(b)
	decoder := NewStdDecoder(nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decoder.Decode("bench.jpg", data); err != nil {
			b.Fatal(err)
		}
	}
}
