package maptiles

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// TileDB stores tile pixel data in a single sqlite database instead of
// a directory tree, which suits filesystems where tens of thousands of
// tiny files are expensive. It implements Store.
type TileDB struct {
	db *sql.DB
}

// NewTileDB opens, creating if necessary, a tile database at file.
func NewTileDB(file string) (*TileDB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS tile (type TEXT NOT NULL, zoom INTEGER NOT NULL, x INTEGER NOT NULL, y INTEGER NOT NULL, data BLOB NOT NULL, PRIMARY KEY (type, zoom, x, y))"); err != nil {
		return nil, err
	}

	return &TileDB{
		db: db,
	}, nil
}

// Close closes the underlying database.
func (t *TileDB) Close() error {
	return t.db.Close()
}

// Fetch implements Store. Stored blobs are raw pixel payloads with the
// file header already stripped, so they are returned as-is.
func (t *TileDB) Fetch(label string, zoom, x, y int) ([]byte, error) {
	var data []byte
	switch err := t.db.QueryRow("SELECT data FROM tile WHERE type = ? AND zoom = ? AND x = ? AND y = ?", label, zoom, x, y).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, ErrTileNotFound
	case nil:
		return data, nil
	default:
		return nil, err
	}
}

// Set stores the pixel payload for one tile, replacing any previous
// contents.
func (t *TileDB) Set(label string, zoom, x, y int, data []byte) error {
	if _, err := t.db.Exec("INSERT OR REPLACE INTO tile (type, zoom, x, y, data) VALUES (?, ?, ?, ?, ?)", label, zoom, x, y, data); err != nil {
		return err
	}
	return nil
}

// ImportDirectory ingests a converted {label}/{zoom}/{x}/{y}.bin tree
// rooted at base, stripping each file's header. Files that do not form
// part of a tile pyramid are skipped. It returns the number of tiles
// imported.
func (t *TileDB) ImportDirectory(base string) (int, error) {
	dir, err := filepath.Abs(base)
	if err != nil {
		return 0, err
	}

	count := 0
	err = filepath.Walk(dir, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Ignore any hidden files or directories.
		if info.Name()[0] == '.' {
			if info.Mode().IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || filepath.Ext(file) != ".bin" {
			return nil
		}

		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		label, zoom, x, y, err := parseTilePath(rel)
		if err != nil {
			return nil
		}

		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()

		var header [headerSize]byte
		if _, err := io.ReadFull(f, header[:]); err != nil {
			return fmt.Errorf("maptiles: reading %s: %w", file, err)
		}
		data, err := ioutil.ReadAll(f)
		if err != nil {
			return fmt.Errorf("maptiles: reading %s: %w", file, err)
		}

		if err := t.Set(label, zoom, x, y, data); err != nil {
			return err
		}
		count++

		return nil
	})

	return count, err
}

func parseTilePath(rel string) (label string, zoom, x, y int, err error) {
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	if len(parts) != 2 {
		return "", 0, 0, 0, errors.New("maptiles: not a tile path")
	}
	zoom, x, y, err = parsePyramidPath(parts[1])
	return parts[0], zoom, x, y, err
}
