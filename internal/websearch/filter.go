package websearch

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NewsDomains lists the sites whose pages may feed the flood digest. Subdomains are accepted.
var NewsDomains = []string{
	"ndtv.com", "thehindu.com", "timesofindia.indiatimes.com",
	"indiatimes.com", "indianexpress.com", "indiatoday.in",
	"hindustantimes.com", "news18.com", "livemint.com",
	"deccanherald.com", "deccanchronicle.com", "thequint.com",
	"scroll.in", "firstpost.com", "theprint.in", "telegraphindia.com",
	"newindianexpress.com", "oneindia.com", "zeenews.com",
	"aninews.in", "ptinews.com",
	"weather.com", "accuweather.com", "mausam.imd.gov.in", "imd.gov.in",
	"bbc.com", "bbc.co.uk", "reuters.com", "apnews.com",
	"aljazeera.com", "cnn.com", "theguardian.com",
	"ndma.gov.in", "cwc.gov.in",
}

var historicalSignals = []string{
	"historical flood data", "flood history", "past floods",
	"annual report", "research paper", "wikipedia",
	"archived", "case study", "published in 20",
}

var freshnessSignals = []string{
	"updated", "breaking", "latest", "live updates",
	"reported", "officials said", "according to",
	"rescue", "evacuated", "alert issued",
}

const currentnessWindow = 3000

// IsNewsDomain reports whether rawURL's host is an allowlisted domain or one of its subdomains.
func IsNewsDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return false
	}
	for _, d := range NewsDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsCurrentNews applies the currentness heuristic to the start of the page text.
// Historical signals reject; otherwise the current year, a freshness phrase or
// the current month name accepts.
func IsCurrentNews(text string, now time.Time) bool {
	lower := strings.ToLower(text)
	if len(lower) > currentnessWindow {
		lower = lower[:currentnessWindow]
	}

	for _, s := range historicalSignals {
		if strings.Contains(lower, s) {
			return false
		}
	}
	if strings.Contains(lower, strconv.Itoa(now.Year())) {
		return true
	}
	for _, s := range freshnessSignals {
		if strings.Contains(lower, s) {
			return true
		}
	}
	month := strings.ToLower(now.Month().String())
	return strings.Contains(lower, month) || strings.Contains(lower, month[:3])
}
