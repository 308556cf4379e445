// Package intents classifies patient messages without the agent loop:
// confirmations, declines and the keyword table, with a model fallback.
package intents

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HeliosCommand/server/internal/agent/model"
)

//go:embed rules.yaml
var defaultRules []byte

type intentRule struct {
	Intent   string   `yaml:"intent"`
	Keywords []string `yaml:"keywords"`
}

type prefixRule struct {
	Prefixes []string `yaml:"prefixes"`
	Reply    string   `yaml:"reply"`
}

type rulesFile struct {
	Intents []intentRule `yaml:"intents"`
	Confirm prefixRule   `yaml:"confirm"`
	Decline prefixRule   `yaml:"decline"`
}

type compiledIntent struct {
	intent  model.Intent
	pattern *regexp.Regexp
}

// Rules is the compiled routing table.
type Rules struct {
	intents      []compiledIntent
	confirm      *regexp.Regexp
	decline      *regexp.Regexp
	confirmReply string
}

// DefaultRules compiles the embedded rules.yaml.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// ParseRules compiles a YAML rules document.
func ParseRules(data []byte) (*Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse routing rules: %w", err)
	}

	r := &Rules{confirmReply: strings.TrimSpace(f.Confirm.Reply)}
	for _, ir := range f.Intents {
		in := model.ParseIntent(ir.Intent)
		if in == model.IntentUnknown {
			return nil, fmt.Errorf("routing rules: unknown intent %q", ir.Intent)
		}
		if len(ir.Keywords) == 0 {
			return nil, fmt.Errorf("routing rules: intent %q has no keywords", ir.Intent)
		}
		r.intents = append(r.intents, compiledIntent{intent: in, pattern: wordPattern(ir.Keywords, false)})
	}
	if len(f.Confirm.Prefixes) == 0 || len(f.Decline.Prefixes) == 0 {
		return nil, fmt.Errorf("routing rules: confirm and decline prefixes are required")
	}
	if r.confirmReply == "" {
		return nil, fmt.Errorf("routing rules: confirm reply is required")
	}
	r.confirm = wordPattern(f.Confirm.Prefixes, true)
	r.decline = wordPattern(f.Decline.Prefixes, true)
	return r, nil
}

// wordPattern matches any of words on word boundaries, case-insensitively.
// Longer alternatives come first so "no thanks" wins over "no".
func wordPattern(words []string, anchored bool) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
	}
	slices.SortStableFunc(quoted, func(a, b string) int { return len(b) - len(a) })
	expr := `\b(?:` + strings.Join(quoted, "|") + `)\b`
	if anchored {
		expr = `^\s*` + expr
	}
	return regexp.MustCompile(`(?i)` + expr)
}

// Classify returns the first intent whose keywords appear in text.
func (r *Rules) Classify(text string) model.Intent {
	for _, ci := range r.intents {
		if ci.pattern.MatchString(text) {
			return ci.intent
		}
	}
	return model.IntentUnknown
}

// Reaction is how a message answers the previous assistant offer.
type Reaction int

const (
	ReactionNone Reaction = iota
	ReactionConfirm
	ReactionDecline
)

// DetectReaction checks the message start for a confirmation or decline prefix.
func (r *Rules) DetectReaction(text string) Reaction {
	switch {
	case r.decline.MatchString(text):
		return ReactionDecline
	case r.confirm.MatchString(text):
		return ReactionConfirm
	}
	return ReactionNone
}

func (r *Rules) ConfirmReply() string {
	return r.confirmReply
}
