package intents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeliosCommand/server/internal/agent/llm/llmtest"
	"github.com/HeliosCommand/server/internal/agent/model"
)

func newRouter(t *testing.T, fb Fallback) *Router {
	t.Helper()
	rules, err := DefaultRules()
	require.NoError(t, err)
	return NewRouter(rules, fb)
}

type stubFallback struct {
	intent model.Intent
	err    error
	calls  int
}

func (s *stubFallback) Classify(context.Context, string) (model.Intent, error) {
	s.calls++
	return s.intent, s.err
}

func TestClassifyKeywords(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)

	tests := []struct {
		text string
		want model.Intent
	}{
		{"I need the nearest hospital in Adyar", model.IntentHospital},
		{"Are there ICU beds available?", model.IntentHospital},
		{"where can I buy medicines", model.IntentPharmacy},
		{"Looking for a Medical Shop", model.IntentPharmacy},
		{"please send email to my doctor", model.IntentEmail},
		{"emergency, need a pharmacy", model.IntentHospital},
		{"this is ridiculous", model.IntentUnknown},
		{"hello there", model.IntentUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.Classify(tt.text), tt.text)
	}
}

func TestDetectReaction(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)

	assert.Equal(t, ReactionConfirm, rules.DetectReaction("yes"))
	assert.Equal(t, ReactionConfirm, rules.DetectReaction("  Okay, thanks"))
	assert.Equal(t, ReactionConfirm, rules.DetectReaction("Go ahead please"))
	assert.Equal(t, ReactionDecline, rules.DetectReaction("no thanks"))
	assert.Equal(t, ReactionDecline, rules.DetectReaction("Don't want that one"))
	assert.Equal(t, ReactionDecline, rules.DetectReaction("nope"))
	assert.Equal(t, ReactionNone, rules.DetectReaction("yesterday I fell"))
	assert.Equal(t, ReactionNone, rules.DetectReaction("nothing helps"))
	assert.Equal(t, ReactionNone, rules.DetectReaction("I said yes"))
}

func TestRouteHospitalKeyword(t *testing.T) {
	fb := &stubFallback{}
	s := model.NewSession("c1")

	d := newRouter(t, fb).Route(context.Background(), s, "I need a hospital near Guindy")
	assert.Equal(t, model.DecisionDelegate, d.Kind)
	assert.Equal(t, model.IntentHospital, d.Intent)
	assert.Equal(t, model.CapabilityHospital, d.Capability)
	assert.Zero(t, fb.calls)
	assert.Equal(t, model.IntentUnknown, s.Intent)
}

func TestRouteConfirmationAcknowledges(t *testing.T) {
	s := model.NewSession("c1")
	require.NoError(t, s.SetIntent(model.IntentHospital))

	d := newRouter(t, nil).Route(context.Background(), s, "yes")
	assert.Equal(t, model.DecisionAcknowledge, d.Kind)
	assert.Equal(t, "Thanks for confirming. Take care and get well soon!", d.Reply)
	assert.Equal(t, model.IntentHospital, d.Intent)
	assert.Empty(t, d.Capability)
}

func TestRouteDeclineForcesEmail(t *testing.T) {
	s := model.NewSession("c1")
	require.NoError(t, s.SetIntent(model.IntentPharmacy))

	d := newRouter(t, nil).Route(context.Background(), s, "no thanks")
	assert.Equal(t, model.DecisionDispatch, d.Kind)
	assert.Equal(t, model.CapabilityEmail, d.Capability)
	assert.Equal(t, model.IntentPharmacy, d.Intent)
}

func TestRouteKeepsKnownIntent(t *testing.T) {
	fb := &stubFallback{intent: model.IntentEmail}
	s := model.NewSession("c1")
	require.NoError(t, s.SetIntent(model.IntentPharmacy))

	d := newRouter(t, fb).Route(context.Background(), s, "I'm at T. Nagar")
	assert.Equal(t, model.IntentPharmacy, d.Intent)
	assert.Zero(t, fb.calls)
}

func TestRouteFallback(t *testing.T) {
	s := model.NewSession("c1")

	fb := &stubFallback{intent: model.IntentPharmacy}
	d := newRouter(t, fb).Route(context.Background(), s, "my grandmother ran out of tablets")
	assert.Equal(t, model.IntentPharmacy, d.Intent)
	assert.Equal(t, 1, fb.calls)

	d = newRouter(t, &stubFallback{err: errors.New("quota")}).Route(context.Background(), s, "hmm")
	assert.Equal(t, model.IntentUnknown, d.Intent)
	assert.Equal(t, model.DecisionDelegate, d.Kind)
	assert.Empty(t, d.Capability)
}

func TestModelClassifier(t *testing.T) {
	chat := llmtest.Reply("Pharmacy.")
	in, err := NewModelClassifier(chat).Classify(context.Background(), "ran out of tablets")
	require.NoError(t, err)
	assert.Equal(t, model.IntentPharmacy, in)

	in, err = NewModelClassifier(llmtest.Reply("I think weather")).Classify(context.Background(), "rain?")
	require.NoError(t, err)
	assert.Equal(t, model.IntentUnknown, in)
}

func TestParseRulesRejectsUnknownIntent(t *testing.T) {
	_, err := ParseRules([]byte("intents:\n  - intent: dentist\n    keywords: [tooth]\n"))
	assert.Error(t, err)
}
