package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024
	maxFindings   = 50
	maxFieldLen   = 8 * 1024
	maxErrSnippet = 200
)

type rawFinding struct {
	PlaceName      string  `json:"place_name"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	PeakWaterLevel float64 `json:"peak_water_level"`
	PeakRainfall   float64 `json:"peak_rainfall"`
	ReadingCount   int     `json:"reading_count"`
	Severity       string  `json:"severity"`
	EvidenceSource string  `json:"evidence_source"`
}

type rawDecision struct {
	Findings     []rawFinding `json:"findings"`
	Summary      string       `json:"summary"`
	EmailSubject string       `json:"email_subject"`
	EmailBody    string       `json:"email_body"`
	SMSBody      string       `json:"sms_body"`
	Done         *bool        `json:"done"`
}

// ParseAlertDecision extracts the JSON object from a model reply and validates every finding.
// Prose around the object is ignored. A missing "done" counts as true.
func ParseAlertDecision(content string) (decision *model.AlertDecision, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "alert_parser").Msgf("panic recovered: %v", r)
			decision = nil
			err = errx.New(fmt.Errorf("alert parser panic"), errx.KindInternal, errx.SystemErrorMessage)
		}
	}()

	if len(content) > maxContentLen {
		return nil, errx.Malformed("alert classification too large")
	}
	obj, ok := extractJSONObject(content)
	if !ok {
		return nil, errx.Malformed("alert classification is not a JSON object: " + snippet(content))
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, errx.New(err, errx.KindMalformedOutput, "alert classification JSON invalid")
	}
	if len(raw.Findings) > maxFindings {
		logx.Warn().Int("findings", len(raw.Findings)).Int("limit", maxFindings).Msg("Truncating alert findings")
		raw.Findings = raw.Findings[:maxFindings]
	}

	out := &model.AlertDecision{
		Summary:      limit(raw.Summary),
		EmailSubject: limit(raw.EmailSubject),
		EmailBody:    limit(raw.EmailBody),
		SMSBody:      limit(raw.SMSBody),
		Done:         raw.Done == nil || *raw.Done,
	}
	for i, f := range raw.Findings {
		sev, err := model.ParseSeverity(f.Severity)
		if err != nil {
			return nil, errx.New(err, errx.KindMalformedOutput, fmt.Sprintf("finding %d has invalid severity", i))
		}
		name := strings.TrimSpace(f.PlaceName)
		if name == "" {
			return nil, errx.Malformed(fmt.Sprintf("finding %d has no place_name", i))
		}
		if invalidNumber(f.Latitude) || invalidNumber(f.Longitude) || invalidNumber(f.PeakWaterLevel) || invalidNumber(f.PeakRainfall) {
			return nil, errx.Malformed(fmt.Sprintf("finding %d has invalid numbers", i))
		}
		out.Findings = append(out.Findings, model.Finding{
			PlaceName:      name,
			Latitude:       f.Latitude,
			Longitude:      f.Longitude,
			PeakWaterLevel: f.PeakWaterLevel,
			PeakRainfall:   f.PeakRainfall,
			ReadingCount:   max(f.ReadingCount, 0),
			Severity:       sev,
			EvidenceSource: strings.TrimSpace(f.EvidenceSource),
		})
	}
	return out, nil
}

// extractJSONObject returns the text between the first '{' and the last '}'.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func invalidNumber(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func limit(s string) string {
	return truncate(strings.TrimSpace(s), maxFieldLen)
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrSnippet {
		return truncate(s, maxErrSnippet) + "..."
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
