package parsers

import (
	"strings"
	"unicode/utf8"

	errx "github.com/HeliosCommand/server/internal/core/error"
)

const (
	minSubjectLen = 5
	minBodyLen    = 20
	maxDraftLen   = 32 * 1024
)

// EmailDraft is a model-written e-mail split into its two fields.
type EmailDraft struct {
	Subject string
	Body    string
}

// ParseEmailDraft validates the "SUBJECT|BODY" contract.
func ParseEmailDraft(content string) (EmailDraft, error) {
	content = stripFences(content)
	if len(content) > maxDraftLen {
		return EmailDraft{}, errx.Malformed("Generated email was too long")
	}

	subject, body, ok := strings.Cut(content, "|")
	if !ok {
		return EmailDraft{}, errx.Malformed("Failed to generate email in proper format")
	}

	subject = strings.TrimSpace(subject)
	for _, prefix := range []string{"SUBJECT:", "Subject:"} {
		subject = strings.TrimSpace(strings.TrimPrefix(subject, prefix))
	}
	body = strings.TrimSpace(strings.ReplaceAll(body, `\n`, "\n"))
	for _, prefix := range []string{"BODY:", "Body:"} {
		body = strings.TrimSpace(strings.TrimPrefix(body, prefix))
	}

	if utf8.RuneCountInString(subject) < minSubjectLen || utf8.RuneCountInString(body) < minBodyLen {
		return EmailDraft{}, errx.Malformed("Generated email content was incomplete")
	}
	return EmailDraft{Subject: subject, Body: body}, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.Contains(s[:i], "|") && !strings.Contains(s[:i], "{") {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
