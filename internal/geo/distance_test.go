package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	chennaiCentral = Coordinates{Lat: 13.0827, Lon: 80.2707}
	guindy         = Coordinates{Lat: 13.0067, Lon: 80.2206}
	london         = Coordinates{Lat: 51.5074, Lon: -0.1278}
)

func TestHaversineSymmetryAndIdentity(t *testing.T) {
	points := []Coordinates{chennaiCentral, guindy, london, {Lat: -33.86, Lon: 151.21}, {Lat: 0, Lon: 0}}
	for _, a := range points {
		assert.Zero(t, Haversine(a, a))
		for _, b := range points {
			assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
		}
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	assert.InDelta(t, 10.04, Haversine(chennaiCentral, guindy), 0.01)
	assert.InDelta(t, 8211, Haversine(chennaiCentral, london), 1)
}

func TestETAMinutes(t *testing.T) {
	tests := []struct {
		km   float64
		want int
	}{
		{0, 0},
		{1, 2},
		{7.5, 15},
		{10, 20},
		{12.3, 25},
		{0.24, 0},
		{0.26, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ETAMinutes(tt.km), "distance %v", tt.km)
	}
}

func TestEarthLink(t *testing.T) {
	link := EarthLink(Coordinates{Lat: 13.0827, Lon: 80.2707})
	assert.Equal(t, "https://earth.google.com/web/@13.0827,80.2707,100a,0d,45y,0h,0t,0r", link)
}

func TestCoordinatesValid(t *testing.T) {
	assert.True(t, chennaiCentral.Valid())
	assert.False(t, Coordinates{Lat: 91}.Valid())
	assert.False(t, Coordinates{Lon: -181}.Valid())
}
