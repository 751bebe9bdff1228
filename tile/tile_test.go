package tile

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRGB565(t *testing.T) {
	// Channel extremes survive the 565 round trip exactly.
	colors := []color.RGBA{
		{0x00, 0x00, 0x00, 0xff},
		{0xff, 0xff, 0xff, 0xff},
		{0xff, 0x00, 0x00, 0xff},
		{0x00, 0xff, 0x00, 0xff},
		{0x00, 0x00, 0xff, 0xff},
		{0xff, 0xff, 0x00, 0xff},
	}

	m := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i, c := range colors {
		m.SetRGBA(i%3, i/3, c)
	}

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, FormatRGB565))

	// Header plus two bytes per pixel.
	assert.Equal(t, headerSize+3*2*2, b.Len())

	got, err := Decode(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 3, 2), got.Bounds())

	for i, c := range colors {
		r, g, bl, a := got.At(i%3, i/3).RGBA()
		want := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), uint8(a >> 8)}
		assert.Equal(t, c, want, "pixel %d", i)
	}
}

func TestEncodeDecodeI8(t *testing.T) {
	palette := color.Palette{
		color.RGBA{0x00, 0x00, 0x00, 0xff},
		color.RGBA{0xff, 0x00, 0x00, 0xff},
		color.RGBA{0x00, 0xff, 0x00, 0xff},
	}

	m := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			m.SetColorIndex(x, y, uint8((x+y)%3))
		}
	}

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, FormatI8))

	// Header, full palette, one byte per pixel.
	assert.Equal(t, headerSize+paletteColors*4+4*4, b.Len())

	got, err := Decode(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)

	pm, ok := got.(*image.Paletted)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 4, 4), pm.Bounds())

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, palette[(x+y)%3], pm.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestEncodeI8Quantizes(t *testing.T) {
	// A full RGBA gradient has far more than 256 colors, forcing the
	// quantizer path.
	m := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			m.SetRGBA(x, y, color.RGBA{uint8(x * 8), uint8(y * 8), uint8(x * y % 256), 0xff})
		}
	}

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, FormatI8))

	got, err := Decode(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), got.Bounds())
}

func TestEncodeOffsetImage(t *testing.T) {
	palette := color.Palette{
		color.RGBA{0x00, 0x00, 0x00, 0xff},
		color.RGBA{0xff, 0xff, 0xff, 0xff},
	}

	m := image.NewPaletted(image.Rect(10, 10, 14, 12), palette)
	m.SetColorIndex(10, 10, 1)

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, FormatI8))

	got, err := Decode(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), got.Bounds())
	assert.Equal(t, palette[1], got.At(0, 0))
}

func TestDecodeConfig(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 8, 6))

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, FormatRGB565))

	cfg, err := DecodeConfig(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 6, cfg.Height)
	assert.Equal(t, color.RGBAModel, cfg.ColorModel)

	b.Reset()
	require.NoError(t, Encode(b, m, FormatI8))

	cfg, err = DecodeConfig(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 6, cfg.Height)
	_, ok := cfg.ColorModel.(color.Palette)
	assert.True(t, ok)
}

func TestDecodeErrors(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 2, 2))
	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, FormatRGB565))
	valid := b.Bytes()

	// Bad magic byte.
	bad := append([]byte(nil), valid...)
	bad[0] = 0x00
	_, err := Decode(bytes.NewReader(bad))
	assert.Equal(t, errBadMagic, err)

	// Unknown color format.
	bad = append([]byte(nil), valid...)
	bad[1] = 0x55
	_, err = Decode(bytes.NewReader(bad))
	assert.Equal(t, errBadFormat, err)

	// Truncated header.
	_, err = Decode(bytes.NewReader(valid[:5]))
	assert.Equal(t, errNotEnough, err)

	// Truncated pixel data.
	_, err = Decode(bytes.NewReader(valid[:len(valid)-3]))
	assert.Equal(t, errNotEnough, err)
}

func TestEncodeUnknownFormat(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Error(t, Encode(new(bytes.Buffer), m, 0x55))
}
