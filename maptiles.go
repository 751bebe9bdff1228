/*
Package maptiles manages a fixed grid of raster map tiles for an
embedded display. It converts GPS coordinates to slippy-map tile
coordinates, loads RGB565 pixel data from a tile store and keeps one
persistent buffer per grid slot for a presentation layer to display.
*/
package maptiles

const (
	// TileSize is the edge length in pixels of every map tile.
	TileSize = 256

	// BytesPerPixel is the size of one RGB565 pixel.
	BytesPerPixel = 2

	// TileBytes is the size of one slot buffer.
	TileBytes = TileSize * TileSize * BytesPerPixel

	// DefaultGridCols and DefaultGridRows are used when a Config
	// carries grid dimensions outside the valid range.
	DefaultGridCols = 5
	DefaultGridRows = 5

	// MaxGridCols and MaxGridRows bound the grid so the worst-case
	// buffer footprint stays fixed.
	MaxGridCols = 9
	MaxGridRows = 9

	// MaxTileTypes is the maximum number of configurable tile types.
	MaxTileTypes = 8

	// ColorFormatRGB565 is the LVGL v9 color format identifier recorded
	// in slot metadata.
	ColorFormatRGB565 = 0x12
)
