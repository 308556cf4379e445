package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/router_system.txt
	routerSystemPrompt string
	//go:embed template/address_extraction.txt
	addressExtractionPrompt string
	//go:embed template/intent_classification.txt
	intentClassificationPrompt string
	//go:embed template/care_email.txt
	careEmailPrompt string
	//go:embed template/greeting.txt
	greetingPrompt string
	//go:embed template/flood_csv_analyst.txt
	floodAnalystPrompt string
	//go:embed template/flood_alert.txt
	floodAlertPrompt string
)

// render formats tpl as a Go template through the Eino prompt component so prompt callbacks fire.
func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	t := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(tpl))
	msgs, err := t.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}

type RouterVars struct {
	Intent       string
	Address      string
	Coordinates  string
	HospitalTool string
	PharmacyTool string
	EmailTool    string
}

// RenderRouterSystem renders the system prompt of the tool-calling agent loop.
func RenderRouterSystem(ctx context.Context, v RouterVars) (string, error) {
	return render(ctx, "router", routerSystemPrompt, map[string]any{
		"Intent":       v.Intent,
		"Address":      v.Address,
		"Coordinates":  v.Coordinates,
		"HospitalTool": v.HospitalTool,
		"PharmacyTool": v.PharmacyTool,
		"EmailTool":    v.EmailTool,
	})
}

func RenderAddressExtraction(ctx context.Context) (string, error) {
	return render(ctx, "address", addressExtractionPrompt, map[string]any{})
}

func RenderIntentClassification(ctx context.Context) (string, error) {
	return render(ctx, "intent", intentClassificationPrompt, map[string]any{})
}

type CareEmailVars struct {
	Context string
	Address string
	Intent  string
	Urgent  bool
}

func RenderCareEmail(ctx context.Context, v CareEmailVars) (string, error) {
	return render(ctx, "care_email", careEmailPrompt, map[string]any{
		"Context": v.Context,
		"Address": v.Address,
		"Intent":  v.Intent,
		"Urgent":  v.Urgent,
	})
}

func RenderGreeting(ctx context.Context) (string, error) {
	return render(ctx, "greeting", greetingPrompt, map[string]any{})
}

type FloodAnalystVars struct {
	Columns  string
	Rows     string
	RowCount int
}

func RenderFloodAnalyst(ctx context.Context, v FloodAnalystVars) (string, error) {
	return render(ctx, "flood_analyst", floodAnalystPrompt, map[string]any{
		"Columns":  v.Columns,
		"Rows":     v.Rows,
		"RowCount": v.RowCount,
	})
}

type FloodAlertVars struct {
	CSVReport    string
	WebReport    string
	CSVWeightPct int
	WebWeightPct int
	Now          string
}

func RenderFloodAlert(ctx context.Context, v FloodAlertVars) (string, error) {
	return render(ctx, "flood_alert", floodAlertPrompt, map[string]any{
		"CSVReport":    v.CSVReport,
		"WebReport":    v.WebReport,
		"CSVWeightPct": v.CSVWeightPct,
		"WebWeightPct": v.WebWeightPct,
		"Now":          v.Now,
	})
}
