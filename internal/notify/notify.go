package notify

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	errx "github.com/HeliosCommand/server/internal/core/error"
)

// Email is a plain-text message for one recipient.
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Validate checks the fields every transport needs.
func (e Email) Validate() error {
	if !strings.Contains(e.To, "@") {
		return errx.Config(fmt.Sprintf("invalid recipient email address %q", e.To))
	}
	if strings.TrimSpace(e.Subject) == "" || strings.TrimSpace(e.Body) == "" {
		return fmt.Errorf("email subject and body are required")
	}
	return nil
}

// EmailSender delivers an Email and returns the transport's message id.
type EmailSender interface {
	SendEmail(ctx context.Context, e Email) (string, error)
}

// SMS is a text message for one phone number.
type SMS struct {
	To   string
	Body string
}

// SMSSender delivers an SMS and returns the transport's message id.
type SMSSender interface {
	SendSMS(ctx context.Context, m SMS) (string, error)
}

// CleanEnv trims whitespace and wrapping quotes that .env files tend to leave around values.
func CleanEnv(v string) string {
	return strings.Trim(strings.TrimSpace(v), `"'`)
}

// BuildMIME renders e as an RFC 5322 plain-text message.
func BuildMIME(e Email, now time.Time) []byte {
	var b strings.Builder
	if e.From != "" {
		fmt.Fprintf(&b, "From: %s\r\n", e.From)
	}
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(e.Body, "\n", "\r\n"))
	return []byte(b.String())
}
