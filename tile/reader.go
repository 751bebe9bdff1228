package tile

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
)

var (
	errBadMagic  = errors.New("tile: bad magic byte")
	errBadFormat = errors.New("tile: unsupported color format")
	errNotEnough = errors.New("tile: not enough image data")
	errBadSize   = errors.New("tile: invalid dimensions")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type header struct {
	format byte
	flags  uint16
	width  int
	height int
	stride int
}

type decoder struct {
	r io.Reader
	h header
}

func (d *decoder) readHeader() error {
	var tmp [headerSize]byte
	if err := readFull(d.r, tmp[:]); err != nil {
		return errNotEnough
	}

	if tmp[0] != magic {
		return errBadMagic
	}

	d.h.format = tmp[1]
	d.h.flags = binary.LittleEndian.Uint16(tmp[2:])
	d.h.width = int(binary.LittleEndian.Uint16(tmp[4:]))
	d.h.height = int(binary.LittleEndian.Uint16(tmp[6:]))
	d.h.stride = int(binary.LittleEndian.Uint16(tmp[8:]))

	switch d.h.format {
	case FormatRGB565, FormatI8:
	default:
		return errBadFormat
	}

	if d.h.width < 1 || d.h.height < 1 || d.h.stride < d.h.width*bytesPerPixel(d.h.format) {
		return errBadSize
	}

	return nil
}

func bytesPerPixel(format byte) int {
	if format == FormatRGB565 {
		return 2
	}
	return 1
}

// rgb565Color unpacks a 16-bit RGB565 value, replicating the high bits
// of each channel into the low end.
func rgb565Color(v uint16) color.RGBA {
	r := uint8(v >> 11 & 0x1f)
	g := uint8(v >> 5 & 0x3f)
	b := uint8(v & 0x1f)
	return color.RGBA{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 0xff}
}

func (d *decoder) readPalette() (color.Palette, error) {
	var tmp [paletteColors * 4]byte
	if err := readFull(d.r, tmp[:]); err != nil {
		return nil, errNotEnough
	}

	palette := make(color.Palette, paletteColors)
	for i := range palette {
		// Entries are stored B, G, R, A.
		palette[i] = color.RGBA{tmp[i*4+2], tmp[i*4+1], tmp[i*4], tmp[i*4+3]}
	}
	return palette, nil
}

func (d *decoder) decodeRGB565() (image.Image, error) {
	m := image.NewRGBA(image.Rect(0, 0, d.h.width, d.h.height))
	row := make([]byte, d.h.stride)
	for y := 0; y < d.h.height; y++ {
		if err := readFull(d.r, row); err != nil {
			return nil, errNotEnough
		}
		for x := 0; x < d.h.width; x++ {
			m.SetRGBA(x, y, rgb565Color(binary.LittleEndian.Uint16(row[x*2:])))
		}
	}
	return m, nil
}

func (d *decoder) decodeI8() (image.Image, error) {
	palette, err := d.readPalette()
	if err != nil {
		return nil, err
	}

	m := image.NewPaletted(image.Rect(0, 0, d.h.width, d.h.height), palette)
	row := make([]byte, d.h.stride)
	for y := 0; y < d.h.height; y++ {
		if err := readFull(d.r, row); err != nil {
			return nil, errNotEnough
		}
		copy(m.Pix[y*m.Stride:], row[:d.h.width])
	}
	return m, nil
}

// Decode reads a tile image from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	d := decoder{r: r}
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	if d.h.format == FormatI8 {
		return d.decodeI8()
	}
	return d.decodeRGB565()
}

// DecodeConfig returns the color model and dimensions of a tile image
// without decoding the pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	d := decoder{r: r}
	if err := d.readHeader(); err != nil {
		return image.Config{}, err
	}

	cfg := image.Config{
		ColorModel: color.RGBAModel,
		Width:      d.h.width,
		Height:     d.h.height,
	}

	if d.h.format == FormatI8 {
		palette, err := d.readPalette()
		if err != nil {
			return image.Config{}, err
		}
		cfg.ColorModel = palette
	}

	return cfg, nil
}
