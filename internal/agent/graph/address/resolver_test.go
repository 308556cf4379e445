package address

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeliosCommand/server/internal/agent/llm/llmtest"
	"github.com/HeliosCommand/server/internal/agent/model"
	"github.com/HeliosCommand/server/internal/geo"
)

type countingGeocoder struct {
	calls  int
	coords geo.Coordinates
	err    error
}

func (g *countingGeocoder) Geocode(context.Context, string) (geo.Coordinates, error) {
	g.calls++
	return g.coords, g.err
}

func sessionWith(t *testing.T, msgs ...string) *model.Session {
	t.Helper()
	s := model.NewSession("c1")
	for _, m := range msgs {
		require.NoError(t, s.AppendTurn(model.RoleUser, m))
	}
	return s
}

func TestResolveIsIdempotent(t *testing.T) {
	chat := llmtest.Reply("Guindy, Chennai")
	gc := &countingGeocoder{coords: geo.Coordinates{Lat: 13.0067, Lon: 80.2206}}
	r := NewResolver(chat, gc)
	s := sessionWith(t, "I need a hospital, I'm in Guindy")

	addr, coords := r.Resolve(context.Background(), s)
	require.NotNil(t, addr)
	require.NotNil(t, coords)
	assert.Equal(t, "Guindy, Chennai", *addr)

	addr2, coords2 := r.Resolve(context.Background(), s)
	assert.Equal(t, *addr, *addr2)
	assert.Equal(t, *coords, *coords2)
	assert.Equal(t, 1, gc.calls)
	assert.Equal(t, 1, chat.CallCount())
}

func TestResolveNone(t *testing.T) {
	gc := &countingGeocoder{}
	r := NewResolver(llmtest.Reply("NONE"), gc)
	s := sessionWith(t, "I need medicines")

	addr, coords := r.Resolve(context.Background(), s)
	assert.Nil(t, addr)
	assert.Nil(t, coords)
	assert.Zero(t, gc.calls)
	assert.Nil(t, s.Address)
}

func TestResolveGeocodeFailureKeepsAddress(t *testing.T) {
	chat := llmtest.Reply("Atlantis")
	gc := &countingGeocoder{err: errors.New("ZERO_RESULTS")}
	r := NewResolver(chat, gc)
	s := sessionWith(t, "hospital near Atlantis")

	addr, coords := r.Resolve(context.Background(), s)
	require.NotNil(t, addr)
	assert.Equal(t, "Atlantis", *addr)
	assert.Nil(t, coords)
	assert.Contains(t, s.Errors, "ZERO_RESULTS")

	gc.err = nil
	gc.coords = geo.Coordinates{Lat: 1, Lon: 2}
	_, coords = r.Resolve(context.Background(), s)
	require.NotNil(t, coords)
	assert.Equal(t, 1, chat.CallCount())
	assert.Equal(t, 2, gc.calls)
}

func TestResolveWithoutUserTurns(t *testing.T) {
	chat := llmtest.Reply("Guindy")
	addr, coords := NewResolver(chat, &countingGeocoder{}).Resolve(context.Background(), model.NewSession("c1"))
	assert.Nil(t, addr)
	assert.Nil(t, coords)
	assert.Zero(t, chat.CallCount())
}
