package capabilities

import (
	"context"
	"fmt"

	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	"github.com/HeliosCommand/server/internal/geo"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// Request is everything a handler may need from the current turn.
type Request struct {
	ConversationID string
	Query          string
	Context        string
	Intent         model.Intent
	Address        *string
	Coordinates    *geo.Coordinates
}

// RequestFromSession builds a request from the session's current view.
func RequestFromSession(s *model.Session, query string) Request {
	r := Request{
		ConversationID: s.ConversationID,
		Query:          query,
		Context:        s.Transcript(),
		Intent:         s.Intent,
	}
	if s.Address != nil {
		a := *s.Address
		r.Address = &a
	}
	if s.Coordinates != nil {
		c := *s.Coordinates
		r.Coordinates = &c
	}
	return r
}

// Handler is one capability the router can dispatch to.
type Handler interface {
	Capability() model.Capability
	Process(ctx context.Context, req Request) model.HandlerResult
}

// Registry owns the handler instances built once at startup.
type Registry struct {
	handlers map[model.Capability]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[model.Capability]Handler, len(handlers))}
	for _, h := range handlers {
		if h != nil {
			r.handlers[h.Capability()] = h
		}
	}
	return r
}

func (r *Registry) Handler(c model.Capability) (Handler, bool) {
	h, ok := r.handlers[c]
	return h, ok
}

// Capabilities lists the registered capabilities in a stable order.
func (r *Registry) Capabilities() []model.Capability {
	var out []model.Capability
	for _, c := range []model.Capability{model.CapabilityHospital, model.CapabilityPharmacy, model.CapabilityEmail} {
		if _, ok := r.handlers[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Run invokes a handler, converting panics into a failed result.
func Run(ctx context.Context, h Handler, req Request) (res model.HandlerResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().
				Str("conversation_id", req.ConversationID).
				Str("capability", string(h.Capability())).
				Msgf("handler panic recovered: %v", rec)
			res = model.Failed(h.Capability(), errx.SystemErrorMessage, fmt.Errorf("handler panic: %v", rec))
		}
	}()
	res = h.Process(ctx, req)
	if res.ResultKey == "" {
		res.ResultKey = string(h.Capability())
	}
	logx.Debug().
		Str("conversation_id", req.ConversationID).
		Str("capability", res.ResultKey).
		Bool("success", res.Success).
		Msg("Capability handled")
	return res
}

// locate returns the request's cached coordinates or geocodes the address, then the query text.
func locate(ctx context.Context, geocoder geo.Geocoder, req Request) (geo.Coordinates, error) {
	if req.Coordinates != nil {
		return *req.Coordinates, nil
	}
	if geocoder == nil {
		return geo.Coordinates{}, errx.Config("GOOGLE_MAPS_KEY not set")
	}
	target := req.Query
	if req.Address != nil && *req.Address != "" {
		target = *req.Address
	}
	c, err := geocoder.Geocode(ctx, target)
	if err != nil {
		return geo.Coordinates{}, err
	}
	return c, nil
}
