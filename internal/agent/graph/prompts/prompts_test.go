package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRouterSystem(t *testing.T) {
	out, err := RenderRouterSystem(context.Background(), RouterVars{
		Intent:       "hospital",
		Address:      "Adyar, Chennai",
		HospitalTool: "find_nearest_hospital",
		PharmacyTool: "find_nearest_pharmacy",
		EmailTool:    "send_care_email",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Detected intent: hospital")
	assert.Contains(t, out, "Patient address: Adyar, Chennai")
	assert.Contains(t, out, "Coordinates: not resolved")
	assert.Contains(t, out, "Would you like help finding a hospital, pharmacy, or sending an email?")
}

func TestRenderCareEmailUrgency(t *testing.T) {
	urgent, err := RenderCareEmail(context.Background(), CareEmailVars{Context: "Patient: need ICU bed", Urgent: true})
	require.NoError(t, err)
	assert.Contains(t, urgent, "URGENT")
	assert.Contains(t, urgent, "PATIENT ADDRESS: not provided")

	routine, err := RenderCareEmail(context.Background(), CareEmailVars{Context: "Patient: need insulin", Address: "Velachery"})
	require.NoError(t, err)
	assert.NotContains(t, routine, "URGENT")
	assert.Contains(t, routine, "medication related")
}

func TestRenderFloodAlertKeepsJSONExample(t *testing.T) {
	out, err := RenderFloodAlert(context.Background(), FloodAlertVars{
		CSVReport: "Adyar CRITICAL", WebReport: "No web scraper data available.",
		CSVWeightPct: 70, WebWeightPct: 30, Now: "2026-10-16 09:00",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "trust weight 70%")
	assert.Contains(t, out, `{"findings":[{"place_name"`)
	assert.Contains(t, out, "Adyar CRITICAL")
}
