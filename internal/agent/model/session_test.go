package model

import (
	"strings"
	"testing"

	"github.com/HeliosCommand/server/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionGeneratesID(t *testing.T) {
	s := NewSession("")
	assert.True(t, strings.HasPrefix(s.ConversationID, "helios_"))
	assert.Len(t, s.ConversationID, len("helios_")+12)
	assert.Equal(t, IntentUnknown, s.Intent)
	assert.NotEqual(t, s.ConversationID, NewSession("").ConversationID)

	assert.Equal(t, "helios_custom", NewSession("helios_custom").ConversationID)
}

func TestAppendTurnValidates(t *testing.T) {
	s := NewSession("c1")
	require.NoError(t, s.AppendTurn(RoleUser, "I need a hospital"))
	assert.Error(t, s.AppendTurn("system", "nope"))
	assert.Error(t, s.AppendTurn(RoleAssistant, "   "))
	assert.Len(t, s.Turns, 1)
}

func TestSetIntent(t *testing.T) {
	s := NewSession("c1")
	require.NoError(t, s.SetIntent(IntentPharmacy))
	assert.Error(t, s.SetIntent("surgery"))
	assert.Equal(t, IntentPharmacy, s.Intent)
}

func TestLocationInvariants(t *testing.T) {
	s := NewSession("c1")
	c := geo.Coordinates{Lat: 13.04, Lon: 80.23}

	assert.Error(t, s.SetCoordinates(c), "coordinates need an address first")

	require.NoError(t, s.SetAddress("T Nagar, Chennai"))
	require.NoError(t, s.SetCoordinates(c))
	assert.Error(t, s.SetCoordinates(geo.Coordinates{Lat: 1, Lon: 1}), "coordinates are set once")

	require.NoError(t, s.SetAddress("Somewhere else"))
	assert.Equal(t, "T Nagar, Chennai", *s.Address, "address is frozen once geocoded")
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSession("c1")
	require.NoError(t, s.AppendTurn(RoleUser, "hello"))
	require.NoError(t, s.SetAddress("Adyar"))

	c := s.Clone()
	require.NoError(t, c.AppendTurn(RoleAssistant, "hi"))
	*c.Address = "changed"
	c.RecordError("boom")

	assert.Len(t, s.Turns, 1)
	assert.Equal(t, "Adyar", *s.Address)
	assert.Empty(t, s.Errors)
}

func TestTranscriptAndUserText(t *testing.T) {
	s := NewSession("c1")
	require.NoError(t, s.AppendTurn(RoleUser, "need beds"))
	require.NoError(t, s.AppendTurn(RoleAssistant, "where are you?"))
	require.NoError(t, s.AppendTurn(RoleUser, "Anna Nagar"))

	assert.Equal(t, "need beds Anna Nagar", s.UserText())
	assert.Equal(t, "Patient: need beds\nAssistant: where are you?\nPatient: Anna Nagar", s.Transcript())
}

func TestParseIntentAndCapability(t *testing.T) {
	assert.Equal(t, IntentHospital, ParseIntent(" Hospital\n"))
	assert.Equal(t, IntentUnknown, ParseIntent("dentist"))

	c, ok := CapabilityFor(IntentEmail)
	assert.True(t, ok)
	assert.Equal(t, CapabilityEmail, c)
	_, ok = CapabilityFor(IntentUnknown)
	assert.False(t, ok)
}
