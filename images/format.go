package images

import (
	"bytes"
	"path/filepath"
	"strings"
)

// supportedExtensions maps lower-case file extensions to their format.
var supportedExtensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
}

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
)

// FormatFromExtension returns the format implied by a file name's extension,
// or FormatUnknown.
func FormatFromExtension(name string) ImageFormat {
	if format, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return format
	}
	return FormatUnknown
}

// IsSupportedFile reports whether a file name carries a supported image extension.
func IsSupportedFile(name string) bool {
	return FormatFromExtension(name) != FormatUnknown
}

// DetectFormat sniffs the image format from the leading bytes of data.
//
// Arguments:
//   - data: The raw file contents.
//
// Returns:
//   - ImageFormat: The detected format, FormatUnknown if no signature matches.
func DetectFormat(data []byte) ImageFormat {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return FormatJPEG
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP
	default:
		return FormatUnknown
	}
}
