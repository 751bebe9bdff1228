package maptiles

import "math"

// GPSToTileXY converts a GPS position to fractional slippy-map tile
// coordinates at the given zoom level. It is defined for latitudes
// strictly between the Web Mercator limits of ±85.05°; beyond them the
// math produces unbounded values rather than an error, so callers
// needing bounded output must clamp first.
func GPSToTileXY(lat, lon float64, zoom int) (x, y float64) {
	latRad := lat * math.Pi / 180
	n := float64(int64(1) << uint(zoom))
	x = (lon + 180) / 360 * n
	y = (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n
	return x, y
}

// TileXYToGPS converts fractional tile coordinates back to a GPS
// position at the given zoom level.
func TileXYToGPS(x, y float64, zoom int) (lat, lon float64) {
	n := float64(int64(1) << uint(zoom))
	lon = x/n*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*y/n))) * 180 / math.Pi
	return lat, lon
}
