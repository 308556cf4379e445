package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	errx "github.com/HeliosCommand/server/internal/core/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func newTestMaps(t *testing.T, handler http.HandlerFunc) *GoogleMaps {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGoogleMaps("test-key", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return g
}

func TestNewGoogleMapsRequiresKey(t *testing.T) {
	_, err := NewGoogleMaps(" ")
	assert.Equal(t, errx.KindConfig, errx.KindOf(err))
}

func TestGeocode(t *testing.T) {
	g := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "T Nagar, Chennai", r.URL.Query().Get("address"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":13.0418,"lng":80.2341}}}]}`))
	})

	c, err := g.Geocode(context.Background(), "T Nagar, Chennai")
	require.NoError(t, err)
	assert.InDelta(t, 13.0418, c.Lat, 1e-9)
	assert.InDelta(t, 80.2341, c.Lon, 1e-9)
}

func TestGeocodeZeroResults(t *testing.T) {
	g := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	_, err := g.Geocode(context.Background(), "nowhere at all")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoGeocodeResult)
}

func TestGeocodeUpstreamError(t *testing.T) {
	g := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	})

	_, err := g.Geocode(context.Background(), "Adyar")
	require.Error(t, err)
	assert.Equal(t, errx.KindUpstream, errx.KindOf(err))
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestSearchText(t *testing.T) {
	g := newTestMaps(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/textsearch/json", r.URL.Path)
		assert.Equal(t, "pharmacy medical shop drugstore", r.URL.Query().Get("query"))
		assert.Equal(t, "2000", r.URL.Query().Get("radius"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[
			{"name":"Apollo Pharmacy","formatted_address":"12 Usman Rd","geometry":{"location":{"lat":13.04,"lng":80.23}}},
			{"name":"MedPlus","vicinity":"Pondy Bazaar","geometry":{"location":{"lat":13.05,"lng":80.24}}},
			{"name":"Third","geometry":{"location":{"lat":13.06,"lng":80.25}}}
		]}`))
	})

	places, err := g.SearchText(context.Background(), PlaceQuery{
		Text:    "pharmacy medical shop drugstore",
		Near:    Coordinates{Lat: 13.04, Lon: 80.23},
		RadiusM: 2000,
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Apollo Pharmacy", places[0].Name)
	assert.Equal(t, "12 Usman Rd", places[0].Address)
	assert.Equal(t, "Pondy Bazaar", places[1].Address)
}
