package model

import (
	"fmt"
	"strings"
)

// Severity is the ordered flood risk level of a location.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityModerate
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "LOW",
	SeverityModerate: "MODERATE",
	SeverityHigh:     "HIGH",
	SeverityCritical: "CRITICAL",
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity accepts the four level names in any case.
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "LOW":
		return SeverityLow, nil
	case "MODERATE", "MEDIUM":
		return SeverityModerate, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", v)
}

// Decode lets envconfig read FLOOD_ALERT_MIN_SEVERITY.
func (s *Severity) Decode(value string) error {
	v, err := ParseSeverity(value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Finding is one location classified by the alert stage.
type Finding struct {
	PlaceName      string   `json:"place_name"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	PeakWaterLevel float64  `json:"peak_water_level"`
	PeakRainfall   float64  `json:"peak_rainfall"`
	ReadingCount   int      `json:"reading_count"`
	Severity       Severity `json:"-"`
	EvidenceSource string   `json:"evidence_source"`
}

// AlertDecision is the structured classification returned by the model for one deliberation step.
type AlertDecision struct {
	Findings     []Finding
	Summary      string
	EmailSubject string
	EmailBody    string
	SMSBody      string
	Done         bool
}

// Highest returns the most severe finding level, or SeverityLow when there are none.
func (d *AlertDecision) Highest() Severity {
	max := SeverityLow
	for _, f := range d.Findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}

// AtLeast returns the findings at or above min, in their original order.
func (d *AlertDecision) AtLeast(min Severity) []Finding {
	var out []Finding
	for _, f := range d.Findings {
		if f.Severity >= min {
			out = append(out, f)
		}
	}
	return out
}
