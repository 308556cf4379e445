package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used by Haversine.
	EarthRadiusKm = 6371.0
	// AverageSpeedKmh is the fixed travel speed behind ETAMinutes.
	AverageSpeedKmh = 30.0
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Valid reports whether c lies inside the latitude/longitude ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lon)
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// ETAMinutes is a naive drive-time estimate at AverageSpeedKmh, rounded to the nearest minute.
// Traffic and road layout are not considered.
func ETAMinutes(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(math.Round(distanceKm / AverageSpeedKmh * 60))
}

// EarthLink builds a Google Earth deep link centred on c.
func EarthLink(c Coordinates) string {
	const (
		altitude = 100
		rangeM   = 0
		tilt     = 45
		heading  = 0
	)
	return fmt.Sprintf("https://earth.google.com/web/@%v,%v,%da,%dd,%dy,%dh,0t,0r",
		c.Lat, c.Lon, altitude, rangeM, tilt, heading)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
