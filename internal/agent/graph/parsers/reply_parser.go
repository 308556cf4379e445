package parsers

import (
	"strings"
	"unicode"

	"github.com/HeliosCommand/server/internal/agent/model"
)

const maxAddressLen = 300

// ParseAddress reads an address-extraction reply. NONE, empty or oversized answers yield false.
func ParseAddress(content string) (string, bool) {
	s := strings.TrimSpace(stripFences(content))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(strings.TrimSpace(s), `"'.`)
	s = strings.TrimSpace(strings.TrimPrefix(s, "Address:"))
	if s == "" || strings.EqualFold(s, "none") || len(s) > maxAddressLen {
		return "", false
	}
	return s, true
}

// ParseIntentReply maps the first word of a classification reply onto an intent.
func ParseIntentReply(content string) model.Intent {
	word := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(word) == 0 {
		return model.IntentUnknown
	}
	return model.ParseIntent(word[0])
}
