package flood

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/HeliosCommand/server/internal/agent/graph/prompts"
	"github.com/HeliosCommand/server/internal/agent/llm"
	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// Reporter produces one branch report for the alert stage.
type Reporter interface {
	Report(ctx context.Context) (string, error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context) (string, error)

func (f ReporterFunc) Report(ctx context.Context) (string, error) { return f(ctx) }

const analystRequest = "Analyse the sensor readings and report the highest-risk locations."

// CSVAnalyst hands the sensor dataset to the utility model for ranking.
type CSVAnalyst struct {
	chat einomodel.BaseChatModel
	path string
}

func NewCSVAnalyst(chat einomodel.BaseChatModel, path string) *CSVAnalyst {
	return &CSVAnalyst{chat: chat, path: path}
}

func (a *CSVAnalyst) Report(ctx context.Context) (string, error) {
	data, err := LoadSensorFile(a.path)
	if err != nil {
		return "", err
	}
	logx.Info().Str("path", a.path).Int("rows", len(data.Rows)).Msg("Loaded flood sensor data")

	system, err := prompts.RenderFloodAnalyst(ctx, prompts.FloodAnalystVars{
		Columns:  strings.Join(data.Header, ", "),
		Rows:     data.CSV(),
		RowCount: len(data.Rows),
	})
	if err != nil {
		return "", err
	}

	out, err := llm.Complete(ctx, a.chat, system, analystRequest)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", errx.Malformed("sensor analysis was empty")
	}
	return out, nil
}
