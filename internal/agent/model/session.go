package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/HeliosCommand/server/internal/geo"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the coarse category of the user's request.
type Intent string

const (
	IntentUnknown  Intent = "unknown"
	IntentHospital Intent = "hospital"
	IntentPharmacy Intent = "pharmacy"
	IntentEmail    Intent = "email"
)

// ParseIntent maps free text onto a known intent; anything else is IntentUnknown.
func ParseIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentHospital:
		return IntentHospital
	case IntentPharmacy:
		return IntentPharmacy
	case IntentEmail:
		return IntentEmail
	default:
		return IntentUnknown
	}
}

func (i Intent) Valid() bool {
	switch i {
	case IntentUnknown, IntentHospital, IntentPharmacy, IntentEmail:
		return true
	}
	return false
}

// Turn is one message in the conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// Session is the per-conversation state carried between turns.
// Mutate it only through its methods so the invariants below hold:
//   - Coordinates are never set without an Address.
//   - Once Coordinates are set they stay until the session is replaced.
type Session struct {
	ConversationID string
	Turns          []Turn
	Intent         Intent
	Address        *string
	Coordinates    *geo.Coordinates
	TurnCount      int
	Errors         []string
}

// NewConversationID returns a fresh "helios_" prefixed identifier.
func NewConversationID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return "helios_" + hex.EncodeToString(b)
}

// NewSession starts an empty session. An empty id gets a generated one.
func NewSession(conversationID string) *Session {
	if strings.TrimSpace(conversationID) == "" {
		conversationID = NewConversationID()
	}
	return &Session{
		ConversationID: conversationID,
		Turns:          []Turn{},
		Intent:         IntentUnknown,
		Errors:         []string{},
	}
}

// AppendTurn records a message; only user and assistant turns with text are accepted.
func (s *Session) AppendTurn(role Role, text string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("invalid turn role %q", role)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty %s turn", role)
	}
	s.Turns = append(s.Turns, Turn{Role: role, Text: text})
	return nil
}

// SetIntent updates the detected intent.
func (s *Session) SetIntent(i Intent) error {
	if !i.Valid() {
		return fmt.Errorf("invalid intent %q", i)
	}
	s.Intent = i
	return nil
}

// SetAddress caches the extracted address. It is a no-op once coordinates are resolved.
func (s *Session) SetAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("empty address")
	}
	if s.Coordinates != nil {
		return nil
	}
	s.Address = &address
	return nil
}

// SetCoordinates records the geocode of the cached address. It may succeed only once.
func (s *Session) SetCoordinates(c geo.Coordinates) error {
	if s.Address == nil {
		return fmt.Errorf("coordinates require a resolved address")
	}
	if s.Coordinates != nil {
		return fmt.Errorf("coordinates already resolved for this session")
	}
	if !c.Valid() {
		return fmt.Errorf("invalid coordinates %s", c)
	}
	s.Coordinates = &c
	return nil
}

func (s *Session) RecordError(msg string) {
	if msg = strings.TrimSpace(msg); msg != "" {
		s.Errors = append(s.Errors, msg)
	}
}

// UserText joins every user turn, oldest first.
func (s *Session) UserText() string {
	parts := make([]string, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Role == RoleUser {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Transcript renders the conversation as "Patient:" / "Assistant:" lines.
func (s *Session) Transcript() string {
	var b strings.Builder
	for _, t := range s.Turns {
		switch t.Role {
		case RoleUser:
			b.WriteString("Patient: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		}
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Clone returns a deep copy so a failed turn cannot leak partial mutations.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.Errors = append([]string(nil), s.Errors...)
	if s.Address != nil {
		a := *s.Address
		c.Address = &a
	}
	if s.Coordinates != nil {
		co := *s.Coordinates
		c.Coordinates = &co
	}
	return &c
}
