package maptiles

import (
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/lvnav/maptiles/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	m := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			m.SetRGBA(x, y, color.RGBA{uint8(x * 32), uint8(y * 32), 0, 0xff})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func TestConverterConvert(t *testing.T) {
	src, err := ioutil.TempDir("", "maptiles")
	require.NoError(t, err)
	defer os.RemoveAll(src)
	dest, err := ioutil.TempDir("", "maptiles")
	require.NoError(t, err)
	defer os.RemoveAll(dest)

	writePNG(t, filepath.Join(src, "10", "163", "395.png"))
	writePNG(t, filepath.Join(src, "10", "164", "395.png"))
	writePNG(t, filepath.Join(src, "11", "327", "790.png"))

	// Files outside the pyramid layout are ignored.
	require.NoError(t, ioutil.WriteFile(filepath.Join(src, "notes.txt"), []byte("x"), 0644))
	writePNG(t, filepath.Join(src, "10", "preview.png"))

	c := NewConverter(tile.FormatRGB565, false, discard())
	require.NoError(t, c.Convert(src, dest, 2))

	for _, rel := range []string{"10/163/395.bin", "10/164/395.bin", "11/327/790.bin"} {
		f, err := os.Open(filepath.Join(dest, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		cfg, err := tile.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, rel)
		assert.Equal(t, 8, cfg.Width)
		assert.Equal(t, 8, cfg.Height)
	}

	_, err = os.Stat(filepath.Join(dest, "10", "preview.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestConverterSkipsExisting(t *testing.T) {
	src, err := ioutil.TempDir("", "maptiles")
	require.NoError(t, err)
	defer os.RemoveAll(src)
	dest, err := ioutil.TempDir("", "maptiles")
	require.NoError(t, err)
	defer os.RemoveAll(dest)

	writePNG(t, filepath.Join(src, "10", "163", "395.png"))

	existing := filepath.Join(dest, "10", "163", "395.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, ioutil.WriteFile(existing, []byte("sentinel"), 0644))

	c := NewConverter(tile.FormatRGB565, false, discard())
	require.NoError(t, c.Convert(src, dest, 1))

	b, err := ioutil.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, []byte("sentinel"), b)

	c = NewConverter(tile.FormatRGB565, true, discard())
	require.NoError(t, c.Convert(src, dest, 1))

	f, err := os.Open(existing)
	require.NoError(t, err)
	defer f.Close()
	_, err = tile.DecodeConfig(f)
	assert.NoError(t, err, "force must overwrite the sentinel with a real tile")
}
