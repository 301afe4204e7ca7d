package pipeline

import (
	"sort"

	"github.com/nvr-ai/go-decodebench/images"
	"github.com/nvr-ai/go-decodebench/profiler"
)

// Outcome is what one pipeline produced from its input paths.
type Outcome struct {
	Mode      profiler.Mode
	Attempted int
	Loaded    int
	Images    []*images.Decoded
	Failures  []error
}

// Counts summarises the outcome.
func (o *Outcome) Counts() profiler.Counts {
	c := profiler.Counts{
		Attempted: o.Attempted,
		Loaded:    o.Loaded,
		Decoded:   len(o.Images),
	}
	for _, err := range o.Failures {
		switch err.(type) {
		case *IOError:
			c.IOErrors++
		case *DecodeError:
			c.DecodeErrors++
		}
	}
	return c
}

// Checksums maps each decoded path to the checksum of its pixels.
func (o *Outcome) Checksums() map[string]string {
	sums := make(map[string]string, len(o.Images))
	for _, img := range o.Images {
		sums[img.Path] = img.Checksum
	}
	return sums
}

// FailedPaths returns the sorted paths of every failed item.
func (o *Outcome) FailedPaths() []string {
	paths := make([]string, 0, len(o.Failures))
	for _, err := range o.Failures {
		switch e := err.(type) {
		case *IOError:
			paths = append(paths, e.Path)
		case *DecodeError:
			paths = append(paths, e.Path)
		}
	}
	sort.Strings(paths)
	return paths
}
