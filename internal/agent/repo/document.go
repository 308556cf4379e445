package repo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HeliosCommand/server/internal/agent/model"
	"github.com/HeliosCommand/server/internal/geo"
)

// sessionDocument is the persisted form shared by the file and Redis stores.
type sessionDocument struct {
	Messages []model.Turn    `json:"messages"`
	Metadata sessionMetadata `json:"metadata"`
}

type sessionMetadata struct {
	UserIntent string   `json:"user_intent"`
	TurnCount  int      `json:"turn_count"`
	Address    *string  `json:"address"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Errors     []string `json:"errors"`
}

func toDocument(s *model.Session) sessionDocument {
	doc := sessionDocument{
		Messages: append([]model.Turn{}, s.Turns...),
		Metadata: sessionMetadata{
			UserIntent: string(s.Intent),
			TurnCount:  s.TurnCount,
			Address:    s.Address,
			Errors:     append([]string{}, s.Errors...),
		},
	}
	if s.Coordinates != nil {
		lat, lon := s.Coordinates.Lat, s.Coordinates.Lon
		doc.Metadata.Latitude = &lat
		doc.Metadata.Longitude = &lon
	}
	return doc
}

// toSession rebuilds a session through its mutators so stored data meets the same invariants.
func (d sessionDocument) toSession(conversationID string) (*model.Session, error) {
	s := model.NewSession(conversationID)
	for i, t := range d.Messages {
		if err := s.AppendTurn(t.Role, t.Text); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	if d.Metadata.UserIntent != "" {
		if err := s.SetIntent(model.Intent(d.Metadata.UserIntent)); err != nil {
			return nil, err
		}
	}
	if d.Metadata.TurnCount < 0 {
		return nil, fmt.Errorf("negative turn_count %d", d.Metadata.TurnCount)
	}
	s.TurnCount = d.Metadata.TurnCount
	if d.Metadata.Address != nil && strings.TrimSpace(*d.Metadata.Address) != "" {
		if err := s.SetAddress(*d.Metadata.Address); err != nil {
			return nil, err
		}
		if d.Metadata.Latitude != nil && d.Metadata.Longitude != nil {
			if err := s.SetCoordinates(geo.Coordinates{Lat: *d.Metadata.Latitude, Lon: *d.Metadata.Longitude}); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range d.Metadata.Errors {
		s.RecordError(e)
	}
	return s, nil
}

// validateID rejects ids that could escape the store's namespace.
func validateID(conversationID string) error {
	id := strings.TrimSpace(conversationID)
	if id == "" || id != conversationID {
		return fmt.Errorf("invalid conversation id %q", conversationID)
	}
	if filepath.Base(id) != id || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) {
		return fmt.Errorf("invalid conversation id %q", conversationID)
	}
	return nil
}
