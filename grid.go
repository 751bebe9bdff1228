package maptiles

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
)

// Config describes a Grid. It is consumed once by NewGrid; later
// changes to a Config value have no effect on a constructed grid.
type Config struct {
	// TypeLabels names each tile type in order. A label doubles as the
	// directory component used when resolving tiles in the store, e.g.
	// "street" or "satellite". Between 1 and MaxTileTypes labels must
	// be given and each must be unique and non-empty.
	TypeLabels []string

	// Cols and Rows give the grid dimensions in tiles. Values outside
	// [1, MaxGridCols] and [1, MaxGridRows] are replaced with the
	// defaults and logged rather than rejected.
	Cols, Rows int

	// DefaultZoom is the initial zoom level.
	DefaultZoom int

	// DefaultType indexes TypeLabels and selects the initial tile type.
	DefaultType int

	// Alloc, when non-nil, allocates slot buffers. It stands in for a
	// platform allocator hint (for example directing buffers at a
	// high-capacity memory region) and is used untouched. Each slot is
	// allocated at most once, on the first load into it.
	Alloc func(size int) []byte
}

// ImageDescriptor describes the current contents of a slot buffer. It
// is only meaningful for slots whose most recent load succeeded.
type ImageDescriptor struct {
	Width       int
	Height      int
	Stride      int
	ColorFormat int
	DataSize    int
	Data        []byte
}

// Grid is the tile grid engine. It owns the grid geometry, the anchor
// tile coordinate of the top-left slot, the active tile type and zoom,
// and one lazily allocated pixel buffer per slot.
//
// A Grid is not safe for concurrent use; a single caller owns it. All
// methods on a nil or closed Grid fail closed, returning zero values
// rather than panicking.
type Grid struct {
	store  Store
	logger *log.Logger

	labels []string
	cols   int
	rows   int
	count  int
	alloc  func(int) []byte

	zoom     int
	tileType int
	anchorX  int
	anchorY  int
	markerX  int
	markerY  int

	loadingError bool
	initialized  bool

	bufs [][]byte
	imgs []ImageDescriptor
}

// NewGrid constructs a grid engine backed by store. An invalid type
// table or default type index is a hard error; out-of-range grid
// dimensions are clamped to the defaults with a logged warning. A nil
// logger discards all output.
func NewGrid(store Store, config Config, logger *log.Logger) (*Grid, error) {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}

	if store == nil {
		return nil, errors.New("maptiles: nil store")
	}
	if len(config.TypeLabels) < 1 || len(config.TypeLabels) > MaxTileTypes {
		return nil, fmt.Errorf("maptiles: type count %d outside [1, %d]", len(config.TypeLabels), MaxTileTypes)
	}
	seen := make(map[string]bool, len(config.TypeLabels))
	for i, label := range config.TypeLabels {
		if label == "" {
			return nil, fmt.Errorf("maptiles: tile type %d has an empty label", i)
		}
		if seen[label] {
			return nil, fmt.Errorf("maptiles: duplicate tile type label %q", label)
		}
		seen[label] = true
	}
	if config.DefaultType < 0 || config.DefaultType >= len(config.TypeLabels) {
		return nil, fmt.Errorf("maptiles: default type %d outside [0, %d)", config.DefaultType, len(config.TypeLabels))
	}

	cols, rows := config.Cols, config.Rows
	if cols < 1 || cols > MaxGridCols {
		logger.Printf("Invalid grid columns %d, using default %d", cols, DefaultGridCols)
		cols = DefaultGridCols
	}
	if rows < 1 || rows > MaxGridRows {
		logger.Printf("Invalid grid rows %d, using default %d", rows, DefaultGridRows)
		rows = DefaultGridRows
	}

	alloc := config.Alloc
	if alloc == nil {
		alloc = func(size int) []byte { return make([]byte, size) }
	}

	labels := make([]string, len(config.TypeLabels))
	copy(labels, config.TypeLabels)

	g := &Grid{
		store:       store,
		logger:      logger,
		labels:      labels,
		cols:        cols,
		rows:        rows,
		count:       cols * rows,
		alloc:       alloc,
		zoom:        config.DefaultZoom,
		tileType:    config.DefaultType,
		initialized: true,
	}
	g.bufs = make([][]byte, g.count)
	g.imgs = make([]ImageDescriptor, g.count)

	logger.Printf("Grid initialized: %d tile types, current type %q, zoom %d, grid %dx%d",
		len(g.labels), g.labels[g.tileType], g.zoom, g.cols, g.rows)

	return g, nil
}

func (g *Grid) ok() bool {
	return g != nil && g.initialized
}

// Close releases every slot buffer and marks the grid uninitialized;
// every later call fails closed. Close is safe on a partially built
// grid and calling it more than once is a no-op.
func (g *Grid) Close() error {
	if g == nil {
		return nil
	}
	if g.initialized {
		for i := range g.bufs {
			g.bufs[i] = nil
		}
		g.bufs = nil
		g.imgs = nil
		g.initialized = false
		g.logger.Printf("Grid closed")
	}
	return nil
}

// SetZoom sets the zoom level unconditionally. The engine does not know
// which zoom levels the store holds, so bounds are the caller's
// responsibility.
func (g *Grid) SetZoom(zoom int) {
	if !g.ok() {
		return
	}
	g.zoom = zoom
	g.logger.Printf("Zoom level set to %d", zoom)
}

// Zoom returns the current zoom level, or 0 on a closed grid.
func (g *Grid) Zoom() int {
	if !g.ok() {
		return 0
	}
	return g.zoom
}

// SetTileType switches the active tile type. It fails without mutating
// state when the index is out of range. Slots are not reloaded; stale
// buffers remain until the caller reloads them.
func (g *Grid) SetTileType(tileType int) bool {
	if !g.ok() {
		return false
	}
	if tileType < 0 || tileType >= len(g.labels) {
		g.logger.Printf("Invalid tile type %d (valid range 0-%d)", tileType, len(g.labels)-1)
		return false
	}
	g.tileType = tileType
	g.logger.Printf("Tile type set to %d (%s)", tileType, g.labels[tileType])
	return true
}

// TileType returns the active tile type index, or -1 on a closed grid.
func (g *Grid) TileType() int {
	if !g.ok() {
		return -1
	}
	return g.tileType
}

// TileTypeCount returns the number of configured tile types.
func (g *Grid) TileTypeCount() int {
	if !g.ok() {
		return 0
	}
	return len(g.labels)
}

// TileTypeLabel returns the label for a tile type, or "" when the index
// is out of range.
func (g *Grid) TileTypeLabel(tileType int) string {
	if !g.ok() || tileType < 0 || tileType >= len(g.labels) {
		return ""
	}
	return g.labels[tileType]
}

// GridSize returns the grid dimensions in tiles.
func (g *Grid) GridSize() (cols, rows int) {
	if !g.ok() {
		return 0, 0
	}
	return g.cols, g.rows
}

// TileCount returns the total number of slots.
func (g *Grid) TileCount() int {
	if !g.ok() {
		return 0
	}
	return g.count
}

// GPSToTileXY converts a GPS position to fractional tile coordinates at
// the grid's current zoom.
func (g *Grid) GPSToTileXY(lat, lon float64) (x, y float64) {
	if !g.ok() {
		return 0, 0
	}
	return GPSToTileXY(lat, lon, g.zoom)
}

// TileXYToGPS converts fractional tile coordinates to a GPS position at
// the grid's current zoom.
func (g *Grid) TileXYToGPS(x, y float64) (lat, lon float64) {
	if !g.ok() {
		return 0, 0
	}
	return TileXYToGPS(x, y, g.zoom)
}

// SetCenterFromGPS positions the grid so the tile containing the given
// point sits in the middle, and records the point's pixel offset within
// that tile as the marker offset. The offset is relative to the tile
// containing the point, not to the grid's center slot; the two coincide
// only when both grid dimensions are odd.
func (g *Grid) SetCenterFromGPS(lat, lon float64) {
	if !g.ok() {
		return
	}
	x, y := GPSToTileXY(lat, lon, g.zoom)

	g.anchorX = int(x) - g.cols/2
	g.anchorY = int(y) - g.rows/2

	g.markerX = int((x - float64(int(x))) * TileSize)
	g.markerY = int((y - float64(int(y))) * TileSize)

	g.logger.Printf("GPS to tile: anchor=(%d,%d) marker offset=(%d,%d)",
		g.anchorX, g.anchorY, g.markerX, g.markerY)
}

// CenterGPS returns the GPS position of the grid's geometric center,
// anchor plus half the grid size. Note this is a different reference
// point than the marker offset, which tracks the last point passed to
// SetCenterFromGPS.
func (g *Grid) CenterGPS() (lat, lon float64) {
	if !g.ok() {
		return 0, 0
	}
	return TileXYToGPS(float64(g.anchorX)+float64(g.cols)/2, float64(g.anchorY)+float64(g.rows)/2, g.zoom)
}

// IsGPSWithinGrid reports whether the tile containing the given point
// at the current zoom falls inside the grid.
func (g *Grid) IsGPSWithinGrid(lat, lon float64) bool {
	if !g.ok() {
		return false
	}
	x, y := GPSToTileXY(lat, lon, g.zoom)

	tileX, tileY := int(x), int(y)

	return tileX >= g.anchorX && tileX < g.anchorX+g.cols &&
		tileY >= g.anchorY && tileY < g.anchorY+g.rows
}

// SetAnchor sets the tile coordinate of the grid's top-left slot. No
// validation is performed; bounds are the caller's responsibility.
func (g *Grid) SetAnchor(x, y int) {
	if !g.ok() {
		return
	}
	g.anchorX = x
	g.anchorY = y
}

// Anchor returns the tile coordinate of the grid's top-left slot.
func (g *Grid) Anchor() (x, y int) {
	if !g.ok() {
		return 0, 0
	}
	return g.anchorX, g.anchorY
}

// SetMarkerOffset overrides the marker pixel offset.
func (g *Grid) SetMarkerOffset(x, y int) {
	if !g.ok() {
		return
	}
	g.markerX = x
	g.markerY = y
}

// MarkerOffset returns the marker pixel offset within its containing
// tile, as set by the last SetCenterFromGPS or SetMarkerOffset call.
func (g *Grid) MarkerOffset() (x, y int) {
	if !g.ok() {
		return 0, 0
	}
	return g.markerX, g.markerY
}

// LoadTile fetches the tile at (tileX, tileY) for the active type and
// zoom and copies its pixels into the slot's buffer. The buffer is
// allocated on the first load into the slot and reused afterwards. A
// store miss or read failure returns false and leaves the slot's
// previous contents and metadata untouched. A short payload is still a
// successful load; the remainder of the buffer is zeroed.
func (g *Grid) LoadTile(index, tileX, tileY int) bool {
	if !g.ok() {
		return false
	}
	if index < 0 || index >= g.count {
		g.logger.Printf("Invalid tile index %d", index)
		return false
	}

	label := g.labels[g.tileType]
	data, err := g.store.Fetch(label, g.zoom, tileX, tileY)
	if err != nil {
		g.logger.Printf("Tile %s/%d/%d/%d unavailable: %v", label, g.zoom, tileX, tileY, err)
		return false
	}

	buf := g.bufs[index]
	if buf == nil {
		buf = g.alloc(TileBytes)
		g.bufs[index] = buf
	}

	// Zero first so a short read leaves a clean tail.
	for i := range buf {
		buf[i] = 0
	}

	if n := copy(buf, data); n < TileBytes {
		g.logger.Printf("Incomplete tile read: %d bytes", n)
	}

	g.imgs[index] = ImageDescriptor{
		Width:       TileSize,
		Height:      TileSize,
		Stride:      TileSize * BytesPerPixel,
		ColorFormat: ColorFormatRGB565,
		DataSize:    TileBytes,
		Data:        buf,
	}

	g.logger.Printf("Loaded tile %d from %s/%d/%d/%d", index, label, g.zoom, tileX, tileY)
	return true
}

// Image returns the descriptor for a slot's current contents, or nil if
// the slot has never been successfully loaded.
func (g *Grid) Image(index int) *ImageDescriptor {
	if !g.ok() || index < 0 || index >= g.count || g.imgs[index].Data == nil {
		return nil
	}
	return &g.imgs[index]
}

// Buffer returns a slot's pixel buffer, or nil if the slot has never
// been successfully loaded.
func (g *Grid) Buffer(index int) []byte {
	if !g.ok() || index < 0 || index >= g.count {
		return nil
	}
	return g.bufs[index]
}

// SetLoadingError sets or clears the sticky loading-error flag. The
// flag is an explicit signal for higher layers; LoadTile never toggles
// it on its own.
func (g *Grid) SetLoadingError(failed bool) {
	if !g.ok() {
		return
	}
	g.loadingError = failed
}

// HasLoadingError reports the sticky loading-error flag. A closed grid
// reports true.
func (g *Grid) HasLoadingError() bool {
	if !g.ok() {
		return true
	}
	return g.loadingError
}
