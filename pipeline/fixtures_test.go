package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFixtures writes valid images named image<N> for N in [0, valid) and
// corrupt files after them, returning every path in enumeration order.
func writeFixtures(t testing.TB, dir string, valid, corrupt int) []string {
	t.Helper()

	var paths []string
	for i := 0; i < valid; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, 32+i, 24))
		for y := 0; y < 24; y++ {
			for x := 0; x < 32+i; x++ {
				img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 9), B: uint8(i * 20), A: 255})
			}
		}

		var buf bytes.Buffer
		name := fmt.Sprintf("image%d.png", i)
		if i%2 == 0 {
			name = fmt.Sprintf("image%d.jpg", i)
			require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
		} else {
			require.NoError(t, png.Encode(&buf, img))
		}

		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
		paths = append(paths, path)
	}

	for i := valid; i < valid+corrupt; i++ {
		path := filepath.Join(dir, fmt.Sprintf("image%d.jpg", i))
		require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0o644))
		paths = append(paths, path)
	}

	return paths
}
