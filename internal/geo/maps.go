package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
	"googlemaps.github.io/maps"
)

// ErrNoGeocodeResult is returned when the geocoder knows no place for an address.
var ErrNoGeocodeResult = errors.New("no geocoding result")

// Geocoder turns a free-text address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

// Place is a single places-search candidate.
type Place struct {
	Name        string
	Address     string
	Coordinates Coordinates
}

// PlaceQuery describes a text search biased around a point.
type PlaceQuery struct {
	Text    string
	Near    Coordinates
	RadiusM uint
	OpenNow bool
	Limit   int
}

// PlacesSearcher runs text searches for nearby places.
type PlacesSearcher interface {
	SearchText(ctx context.Context, q PlaceQuery) ([]Place, error)
}

// GoogleMaps implements Geocoder and PlacesSearcher over the Maps web services.
type GoogleMaps struct {
	client *maps.Client
}

// NewGoogleMaps builds a client for apiKey. Extra options (base URL, HTTP client) are mostly for tests.
func NewGoogleMaps(apiKey string, opts ...maps.ClientOption) (*GoogleMaps, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errx.Config("Google Maps API key not set")
	}
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GoogleMaps{client: client}, nil
}

func (g *GoogleMaps) Geocode(ctx context.Context, address string) (Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, fmt.Errorf("geocode: empty address")
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		logx.Warn().Err(err).Str("address", address).Msg("Geocoding request failed")
		return Coordinates{}, errx.WrapUpstream("geocoding", err)
	}
	if len(results) == 0 {
		return Coordinates{}, errx.New(ErrNoGeocodeResult, errx.KindNotFound, "Could not geocode address")
	}

	loc := results[0].Geometry.Location
	logx.Debug().Str("address", address).Float64("lat", loc.Lat).Float64("lon", loc.Lng).Msg("Geocoded address")
	return Coordinates{Lat: loc.Lat, Lon: loc.Lng}, nil
}

func (g *GoogleMaps) SearchText(ctx context.Context, q PlaceQuery) ([]Place, error) {
	req := &maps.TextSearchRequest{
		Query:    q.Text,
		Location: &maps.LatLng{Lat: q.Near.Lat, Lng: q.Near.Lon},
		Radius:   q.RadiusM,
		OpenNow:  q.OpenNow,
	}
	if req.Radius == 0 {
		req.Radius = 2000
	}

	resp, err := g.client.TextSearch(ctx, req)
	if err != nil {
		logx.Warn().Err(err).Str("query", q.Text).Msg("Places text search failed")
		return nil, errx.WrapUpstream("places search", err)
	}

	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		addr := r.FormattedAddress
		if addr == "" {
			addr = r.Vicinity
		}
		places = append(places, Place{
			Name:        r.Name,
			Address:     addr,
			Coordinates: Coordinates{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng},
		})
		if q.Limit > 0 && len(places) == q.Limit {
			break
		}
	}
	return places, nil
}

var (
	_ Geocoder       = (*GoogleMaps)(nil)
	_ PlacesSearcher = (*GoogleMaps)(nil)
)
