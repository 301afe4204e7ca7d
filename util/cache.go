package util

import (
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
)

const saturateChunkSize = 1 << 20

// ParseSize parses a human size such as "2GB" or "512MiB" into bytes.
// Units are binary (1GB = 1024^3 bytes).
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	size, err := units.RAMInBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	if size < 0 {
		return 0, errors.Errorf("invalid size %q: negative", s)
	}

	return size, nil
}

// SaturateCache writes and then reads back a temporary file of size bytes so
// that previously read images are pushed out of the page cache before a
// timed run. The temporary file is always removed.
//
// Arguments:
// - dir: Directory for the temporary file, "" for the OS default.
// - size: Number of bytes to write; zero or less is a no-op.
//
// Returns:
// - error: If the file cannot be written or read.
func SaturateCache(dir string, size int64) (err error) {
	if size <= 0 {
		return nil
	}

	file, err := os.CreateTemp(dir, "decodebench-cache-*")
	if err != nil {
		return errors.Wrap(err, "failed to create cache file")
	}
	path := file.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && err == nil {
			err = errors.Wrap(rmErr, "failed to remove cache file")
		}
	}()

	chunk := make([]byte, saturateChunkSize)
	for written := int64(0); written < size; {
		n := int64(len(chunk))
		if remaining := size - written; remaining < n {
			n = remaining
		}
		if _, err := file.Write(chunk[:n]); err != nil {
			file.Close()
			return errors.Wrap(err, "failed to write cache file")
		}
		written += n
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, "failed to close cache file")
	}

	reader, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to reopen cache file")
	}
	defer reader.Close()

	if _, err := io.CopyBuffer(io.Discard, reader, chunk); err != nil {
		return errors.Wrap(err, "failed to read cache file")
	}

	return nil
}
