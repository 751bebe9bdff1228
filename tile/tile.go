/*
Package tile implements the LVGL v9 binary tile image format used on
the device.

Each file is a 12 byte little-endian header (a magic byte, a color
format byte, 16 bits of flags, then width, height, stride and a
reserved word) followed by uncompressed pixel data in row-major order.
Two color formats are supported: RGB565 with two bytes per pixel, and
I8 with a 256 entry ARGB8888 palette followed by one palette index per
pixel.
*/
package tile

const (
	headerSize = 12
	magic      = 0x19

	paletteColors = 256
)

// LVGL v9 color format identifiers.
const (
	FormatI8     = 0x0a
	FormatRGB565 = 0x12
)
