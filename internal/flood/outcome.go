package flood

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the result of one pipeline run.
type Outcome struct {
	Phase           Phase
	History         []Phase
	CSVWeight       float64
	WebWeight       float64
	CSVAnalysis     string
	WebIntelligence string
	Verdict         Verdict
	Errors          []string
	Elapsed         time.Duration
}

func newOutcome(s *State, phase Phase, v Verdict) *Outcome {
	o := &Outcome{
		Phase:     phase,
		History:   append([]Phase(nil), s.History...),
		CSVWeight: s.CSVWeight,
		WebWeight: s.WebWeight,
		Verdict:   v,
		Errors:    append([]string(nil), s.Errors...),
	}
	if s.CSVAnalysis != nil {
		o.CSVAnalysis = *s.CSVAnalysis
	}
	if s.WebIntelligence != nil {
		o.WebIntelligence = *s.WebIntelligence
	}
	return o
}

// Alerted reports whether any finding reached the alert threshold.
func (o *Outcome) Alerted() bool {
	return o.Phase == PhaseAlertSent
}

func verdictSummary(v Verdict) string {
	switch {
	case v.Screened:
		return "No danger signals in sensor or web reports."
	case v.Decision == nil:
		return "No usable alert decision."
	case v.Decision.Summary != "":
		return v.Decision.Summary
	case v.Alerted:
		return fmt.Sprintf("%d location(s) at or above the alert threshold.", len(v.Findings))
	default:
		return "No location reached the alert threshold."
	}
}

// Summary renders the outcome for the operator.
func (o *Outcome) Summary() string {
	var b strings.Builder
	if o.Alerted() {
		b.WriteString("FLOOD ALERT DISPATCHED\n")
	} else {
		b.WriteString("No flood alert issued\n")
	}
	fmt.Fprintf(&b, "Weights: sensor %.0f%%, web %.0f%%\n", o.CSVWeight*100, o.WebWeight*100)
	fmt.Fprintf(&b, "Assessment: %s\n", verdictSummary(o.Verdict))

	findings := o.Verdict.Findings
	if findings == nil && o.Verdict.Decision != nil {
		findings = o.Verdict.Decision.Findings
	}
	if len(findings) == 0 {
		b.WriteString("Findings: none\n")
	} else {
		b.WriteString("Findings:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "  - %s [%s] %.4f, %.4f", f.PlaceName, f.Severity, f.Latitude, f.Longitude)
			if f.EvidenceSource != "" {
				fmt.Fprintf(&b, " (%s)", f.EvidenceSource)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "E-mail: %s\n", o.Verdict.Email.Status())
	fmt.Fprintf(&b, "SMS: %s\n", o.Verdict.SMS.Status())

	if len(o.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range o.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
