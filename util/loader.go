package util

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/nvr-ai/go-decodebench/images"
	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Index is the position of the file in the enumerated input.
	Index int
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
}

// IndexRange keeps only files whose numeric name index lies in [Min, Max].
// A zero Max disables filtering.
type IndexRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Enabled reports whether the range filters anything.
func (r IndexRange) Enabled() bool {
	return r.Max > 0
}

// Contains reports whether index lies in the range.
func (r IndexRange) Contains(index int) bool {
	return !r.Enabled() || (index >= r.Min && index <= r.Max)
}

var digits = regexp.MustCompile(`\d+`)

// fileIndex returns the first run of digits in a file name, e.g. 12 for
// "image12.jpg" or "frame-0012.png".
func fileIndex(name string) (int, bool) {
	match := digits.FindString(name)
	if match == "" {
		return 0, false
	}
	index, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return index, true
}

// EnumerateImagePaths lists the image files of a directory.
//
// Files are ordered by the numeric index in their name, then by name, so the
// order is stable across runs.
//
// Arguments:
// - dir: Directory path containing image files.
// - indexRange: Optional index filter.
//
// Returns:
// - []string: The ordered image paths.
// - error: Error if the directory cannot be listed.
func EnumerateImagePaths(dir string, indexRange IndexRange) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	type entry struct {
		name     string
		index    int
		hasIndex bool
	}

	entries := make([]entry, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !images.IsSupportedFile(file.Name()) {
			continue
		}

		index, ok := fileIndex(file.Name())
		if indexRange.Enabled() && (!ok || !indexRange.Contains(index)) {
			continue
		}

		entries = append(entries, entry{name: file.Name(), index: index, hasIndex: ok})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.hasIndex != b.hasIndex {
			return a.hasIndex
		}
		if a.index != b.index {
			return a.index < b.index
		}
		return a.name < b.name
	})

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = filepath.Join(dir, e.name)
	}

	return paths, nil
}

// ReadImageFile reads the full contents of one image file.
func ReadImageFile(index int, path string) (ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageFile{Index: index, Path: path}, err
	}

	return ImageFile{Index: index, Path: path, Data: data}, nil
}
