package maptiles

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
)

// headerSize is the fixed LVGL image header at the start of every tile
// file. The grid engine treats it as opaque and skips it.
const headerSize = 12

// ErrTileNotFound is returned by a Store when no tile exists for the
// requested coordinates.
var ErrTileNotFound = errors.New("maptiles: tile not found")

// Store supplies raw pixel data for tiles addressed by type label, zoom
// level and tile coordinates. Fetch blocks until the read completes or
// fails; there is no internal retry.
type Store interface {
	Fetch(label string, zoom, x, y int) ([]byte, error)
}

// FileStore reads tiles from a directory tree laid out as
// {base}/{label}/{zoom}/{x}/{y}.bin, the layout produced by the
// conversion pipeline.
type FileStore struct {
	Base string
}

// NewFileStore returns a FileStore rooted at base.
func NewFileStore(base string) *FileStore {
	return &FileStore{Base: base}
}

// Fetch implements Store. The 12 byte file header is skipped without
// being validated; everything after it is returned as-is, so a
// truncated file yields a short payload rather than an error.
func (s *FileStore) Fetch(label string, zoom, x, y int) ([]byte, error) {
	path := filepath.Join(s.Base, label, strconv.Itoa(zoom), strconv.Itoa(x), strconv.Itoa(y)+".bin")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTileNotFound
		}
		return nil, err
	}
	defer f.Close()

	var header [headerSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, fmt.Errorf("maptiles: reading %s: %w", path, err)
	}

	b, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("maptiles: reading %s: %w", path, err)
	}

	return b, nil
}
