package flood

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/HeliosCommand/server/internal/agent/model"
)

const (
	smsLimit     = 320
	smsPrefix    = "FLOOD ALERT:\n"
	bannerWidth  = 55
	bannerTitle  = "  HeliosCommand - AUTOMATED FLOOD ALERT"
	footerNotice = "This alert was generated automatically by HeliosCommand\n" +
		"based on sensor data analysis and web intelligence.\n" +
		"Please take appropriate action immediately."
)

var (
	boldPattern     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern   = regexp.MustCompile(`\*(.+?)\*`)
	blankRunPattern = regexp.MustCompile(`\n{3,}`)
	dangerPattern   = regexp.MustCompile(`(?i)\b(danger|warning|critical|severe|evacuat\w*|red alert|high)\b`)

	glyphReplacer = strings.NewReplacer(
		"═", "=",
		"─", "-",
		"🚨", "[ALERT]",
		"🔴", "[CRITICAL]",
		"🟠", "[HIGH]",
		"🟡", "[MODERATE]",
	)
	smsEmojiReplacer = strings.NewReplacer("🚨", "", "🔴", "", "🟠", "", "🟡", "")
)

// HasDangerSignal reports whether a branch report mentions any danger keyword.
func HasDangerSignal(report string) bool {
	return dangerPattern.MatchString(report)
}

func stripMarkdown(s string) string {
	s = boldPattern.ReplaceAllString(s, "$1")
	return italicPattern.ReplaceAllString(s, "$1")
}

// CleanEmailBody turns a model-written body into plain text.
func CleanEmailBody(body string) string {
	body = stripMarkdown(body)

	// Models sometimes repeat the whole letter; keep the first copy.
	if parts := strings.Split(body, "Dear "); len(parts) > 2 {
		body = parts[0] + "Dear " + parts[1]
	}

	body = glyphReplacer.Replace(body)
	body = blankRunPattern.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

// EmailSubject removes the siren emoji and makes sure the subject names the flood.
func EmailSubject(subject string) string {
	subject = strings.TrimSpace(strings.ReplaceAll(subject, "🚨", ""))
	if !strings.Contains(strings.ToUpper(subject), "FLOOD") {
		subject = "FLOOD ALERT: " + subject
	}
	return subject
}

// WrapEmailBody adds the banner and footer around a cleaned body.
func WrapEmailBody(body string, now time.Time) string {
	rule := strings.Repeat("=", bannerWidth)
	dash := strings.Repeat("-", bannerWidth)

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString(bannerTitle + "\n")
	b.WriteString("  Generated: " + now.Format("2006-01-02 15:04") + "\n")
	b.WriteString(rule + "\n\n")
	b.WriteString(body + "\n\n")
	b.WriteString(dash + "\n")
	b.WriteString(footerNotice + "\n")
	b.WriteString(dash + "\n")
	return b.String()
}

// CleanSMS strips formatting, adds the alert prefix and caps the length in runes.
func CleanSMS(body string) string {
	body = stripMarkdown(body)
	body = strings.TrimSpace(smsEmojiReplacer.Replace(body))
	if !strings.HasPrefix(strings.ToUpper(body), "FLOOD ALERT") {
		body = smsPrefix + body
	}
	if r := []rune(body); len(r) > smsLimit {
		body = string(r[:smsLimit-3]) + "..."
	}
	return body
}

// ComposeEmailBody writes an alert letter from the findings when the model gave none.
func ComposeEmailBody(findings []model.Finding, summary string) string {
	var b strings.Builder
	b.WriteString("Dear Emergency Services and Local Authorities,\n\n")
	if summary = strings.TrimSpace(summary); summary != "" {
		b.WriteString(summary + "\n\n")
	}
	b.WriteString("The following locations require immediate attention:\n\n")
	for i, f := range findings {
		fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, f.PlaceName, f.Severity)
		fmt.Fprintf(&b, "   Coordinates: %.4f, %.4f\n", f.Latitude, f.Longitude)
		if f.PeakWaterLevel > 0 || f.PeakRainfall > 0 {
			fmt.Fprintf(&b, "   Peak water level: %.2f m, peak rainfall: %.1f mm/hr\n", f.PeakWaterLevel, f.PeakRainfall)
		}
		if f.EvidenceSource != "" {
			fmt.Fprintf(&b, "   Evidence: %s\n", f.EvidenceSource)
		}
		b.WriteString("\n")
	}
	b.WriteString("Please consider evacuation of low-lying areas and deployment of relief teams.")
	return b.String()
}

// ComposeSMS writes a short alert from the findings when the model gave none.
func ComposeSMS(findings []model.Finding) string {
	names := make([]string, 0, len(findings))
	for _, f := range findings {
		names = append(names, fmt.Sprintf("%s (%s)", f.PlaceName, f.Severity))
	}
	return fmt.Sprintf("%s%s. Take precautions and follow official advisories.", smsPrefix, strings.Join(names, ", "))
}

// ComposeSubject names the number of locations at the highest level.
func ComposeSubject(findings []model.Finding) string {
	top := model.SeverityLow
	for _, f := range findings {
		top = max(top, f.Severity)
	}
	n := 0
	for _, f := range findings {
		if f.Severity == top {
			n++
		}
	}
	level := strings.ToUpper(top.String()[:1]) + strings.ToLower(top.String()[1:])
	noun := "Locations"
	if n == 1 {
		noun = "Location"
	}
	return fmt.Sprintf("FLOOD ALERT: %d %s %s", n, level, noun)
}
