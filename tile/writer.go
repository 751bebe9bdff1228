package tile

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

type encoder struct {
	w io.Writer
	h header
}

func (e *encoder) writeHeader() error {
	var tmp [headerSize]byte
	tmp[0] = magic
	tmp[1] = e.h.format
	binary.LittleEndian.PutUint16(tmp[2:], e.h.flags)
	binary.LittleEndian.PutUint16(tmp[4:], uint16(e.h.width))
	binary.LittleEndian.PutUint16(tmp[6:], uint16(e.h.height))
	binary.LittleEndian.PutUint16(tmp[8:], uint16(e.h.stride))
	_, err := e.w.Write(tmp[:])
	return err
}

func rgb565(c color.Color) uint16 {
	r, g, b, _ := c.RGBA()
	return uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11)
}

func (e *encoder) encodeRGB565(m image.Image) error {
	b := m.Bounds()
	row := make([]byte, e.h.stride)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			binary.LittleEndian.PutUint16(row[(x-b.Min.X)*2:], rgb565(m.At(x, y)))
		}
		if _, err := e.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeI8(m *image.Paletted) error {
	// Palette entries are stored B, G, R, A; unused entries stay zero.
	var palette [paletteColors * 4]byte
	for i, c := range m.Palette {
		r, g, b, a := c.RGBA()
		palette[i*4] = byte(b >> 8)
		palette[i*4+1] = byte(g >> 8)
		palette[i*4+2] = byte(r >> 8)
		palette[i*4+3] = byte(a >> 8)
	}
	if _, err := e.w.Write(palette[:]); err != nil {
		return err
	}

	b := m.Bounds()
	for y := 0; y < b.Dy(); y++ {
		if _, err := e.w.Write(m.Pix[y*m.Stride : y*m.Stride+b.Dx()]); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes the image m to w in the given color format. The format
// carries its own dimensions, so Encode accepts any image size; tiles
// destined for the map grid are expected to be square with a 256 pixel
// edge.
func Encode(w io.Writer, m image.Image, format int) error {
	b := m.Bounds()

	e := encoder{w: w}
	e.h.width = b.Dx()
	e.h.height = b.Dy()

	switch format {
	case FormatRGB565:
		e.h.format = FormatRGB565
		e.h.stride = b.Dx() * 2
		if err := e.writeHeader(); err != nil {
			return err
		}
		return e.encodeRGB565(m)
	case FormatI8:
		pm, _ := m.(*image.Paletted)
		if pm == nil || len(pm.Palette) > paletteColors {
			q := quantize.MedianCutQuantizer{}
			pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, paletteColors), m))
			draw.Draw(pm, b, m, b.Min, draw.Src)
		}

		// Adjust image so that top-left corner is at (0, 0)
		if pm.Rect.Min != (image.Point{}) {
			dup := *pm
			dup.Rect = dup.Rect.Sub(dup.Rect.Min)
			pm = &dup
		}

		e.h.format = FormatI8
		e.h.stride = b.Dx()
		if err := e.writeHeader(); err != nil {
			return err
		}
		return e.encodeI8(pm)
	default:
		return errBadFormat
	}
}
