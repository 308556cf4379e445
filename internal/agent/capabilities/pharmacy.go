package capabilities

import (
	"context"
	"fmt"

	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	"github.com/HeliosCommand/server/internal/geo"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const (
	pharmacyQuery        = "pharmacy medical shop drugstore"
	pharmacyRadiusM      = 2000
	pharmacyMaxResults   = 10
	pharmacyNotFound     = "No medical shops found nearby. Try a different location."
	pharmacyFailedPrefix = "Sorry, I couldn't search for medical shops: "
)

// PharmacyFinder searches open medical shops around the patient and picks the nearest.
type PharmacyFinder struct {
	geocoder geo.Geocoder
	places   geo.PlacesSearcher
}

func NewPharmacyFinder(geocoder geo.Geocoder, places geo.PlacesSearcher) *PharmacyFinder {
	return &PharmacyFinder{geocoder: geocoder, places: places}
}

func (p *PharmacyFinder) Capability() model.Capability {
	return model.CapabilityPharmacy
}

func (p *PharmacyFinder) Process(ctx context.Context, req Request) model.HandlerResult {
	if p.places == nil {
		err := errx.Config("GOOGLE_PLACES_KEY not set")
		return model.Failed(p.Capability(), pharmacyFailedPrefix+err.Error(), err)
	}

	origin, err := locate(ctx, p.geocoder, req)
	if err != nil {
		return model.Failed(p.Capability(), pharmacyFailedPrefix+locateFailure(err), err)
	}

	candidates, err := p.places.SearchText(ctx, geo.PlaceQuery{
		Text:    pharmacyQuery,
		Near:    origin,
		RadiusM: pharmacyRadiusM,
		OpenNow: true,
		Limit:   pharmacyMaxResults,
	})
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("Pharmacy search failed")
		return model.Failed(p.Capability(), pharmacyFailedPrefix+err.Error(), err)
	}
	if len(candidates) == 0 {
		return model.Succeeded(p.Capability(), pharmacyNotFound)
	}

	best := candidates[0]
	bestD := geo.Haversine(origin, best.Coordinates)
	for _, c := range candidates[1:] {
		if d := geo.Haversine(origin, c.Coordinates); d < bestD {
			best, bestD = c, d
		}
	}

	addr := best.Address
	if addr == "" {
		addr = "Address not available"
	}
	msg := fmt.Sprintf("I found a medical shop near you!\n\n**%s**\n- Address: %s\n- Distance: %.2f km\n\nWould you like to proceed?",
		best.Name, addr, bestD)
	return model.Succeeded(p.Capability(), msg)
}
