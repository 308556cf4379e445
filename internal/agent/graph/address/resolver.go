// Package address extracts the patient's location from the conversation and geocodes it once per session.
package address

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/HeliosCommand/server/internal/agent/graph/parsers"
	"github.com/HeliosCommand/server/internal/agent/graph/prompts"
	"github.com/HeliosCommand/server/internal/agent/llm"
	"github.com/HeliosCommand/server/internal/agent/model"
	"github.com/HeliosCommand/server/internal/geo"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

type Resolver struct {
	chat     einomodel.BaseChatModel
	geocoder geo.Geocoder
}

func NewResolver(chat einomodel.BaseChatModel, geocoder geo.Geocoder) *Resolver {
	return &Resolver{chat: chat, geocoder: geocoder}
}

// Resolve returns the session's address and coordinates, filling them in when missing.
// Cached coordinates short-circuit every call. A cached address skips extraction and
// only retries the geocode. Failures are recorded on the session, never returned.
func (r *Resolver) Resolve(ctx context.Context, s *model.Session) (*string, *geo.Coordinates) {
	if s.Coordinates != nil {
		return s.Address, s.Coordinates
	}

	if s.Address == nil {
		addr, ok := r.extract(ctx, s)
		if !ok {
			return nil, nil
		}
		if err := s.SetAddress(addr); err != nil {
			s.RecordError(err.Error())
			return nil, nil
		}
	}

	if r.geocoder == nil {
		s.RecordError("geocoding not configured: GOOGLE_MAPS_KEY not set")
		return s.Address, nil
	}
	c, err := r.geocoder.Geocode(ctx, *s.Address)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", s.ConversationID).Msg("Geocode failed, keeping address only")
		s.RecordError(err.Error())
		return s.Address, nil
	}
	if err := s.SetCoordinates(c); err != nil {
		s.RecordError(err.Error())
		return s.Address, nil
	}
	logx.Debug().
		Str("conversation_id", s.ConversationID).
		Str("address", *s.Address).
		Str("coordinates", c.String()).
		Msg("Address resolved")
	return s.Address, s.Coordinates
}

func (r *Resolver) extract(ctx context.Context, s *model.Session) (string, bool) {
	text := s.UserText()
	if text == "" {
		return "", false
	}
	system, err := prompts.RenderAddressExtraction(ctx)
	if err != nil {
		s.RecordError(err.Error())
		return "", false
	}
	reply, err := llm.Complete(ctx, r.chat, system, text)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", s.ConversationID).Msg("Address extraction failed")
		s.RecordError(err.Error())
		return "", false
	}
	return parsers.ParseAddress(reply)
}
