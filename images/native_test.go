package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGoCVDecoder requires OpenCV to be installed.
func TestGoCVDecoder(t *testing.T) {
	decoder := NewGoCVDecoder(nil)
	defer decoder.Close()

	decoded, err := decoder.Decode("img.png", getPNGBytes(t))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Width)
	assert.Equal(t, 48, decoded.Height)
	assert.Equal(t, []byte{255, 0, 0}, decoded.Pix[:3], "BGR must be swapped to RGB")

	_, err = decoder.Decode("text.jpg", []byte("not a jpeg"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	resized, err := NewGoCVDecoder(&Resizer{Width: 32, Height: 24}).Decode("img.jpg", getJPEGBytes(t))
	require.NoError(t, err)
	assert.Equal(t, 32, resized.Width)
	assert.Equal(t, 24, resized.Height)
}

// TestVipsDecoder requires libvips to be installed.
func TestVipsDecoder(t *testing.T) {
	decoder := NewVipsDecoder(nil)
	defer decoder.Close()

	decoded, err := decoder.Decode("img.png", getPNGBytes(t))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Width)
	assert.Equal(t, 48, decoded.Height)
	assert.Equal(t, []byte{255, 0, 0}, decoded.Pix[:3])

	_, err = decoder.Decode("text.jpg", []byte("not a jpeg"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
