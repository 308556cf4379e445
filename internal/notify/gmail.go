package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
	"golang.org/x/oauth2"
)

const defaultGmailBaseURL = "https://gmail.googleapis.com"

var googleOAuthEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

type GmailConfig struct {
	BearerToken  string `envconfig:"GMAIL_BEARER_TOKEN"`
	UserID       string `envconfig:"GMAIL_USER_ID" default:"me"`
	ClientID     string `envconfig:"GMAIL_CLIENT_ID"`
	ClientSecret string `envconfig:"GMAIL_CLIENT_SECRET"`
	RefreshToken string `envconfig:"GMAIL_REFRESH_TOKEN"`
	BaseURL      string `envconfig:"GMAIL_API_BASE_URL" default:"https://gmail.googleapis.com"`
}

// GmailSender posts raw messages to the Gmail REST API.
type GmailSender struct {
	client  *http.Client
	userID  string
	baseURL string
	now     func() time.Time
}

// NewGmailSender prefers a static bearer token and falls back to a refresh-token source.
func NewGmailSender(ctx context.Context, cfg GmailConfig) (*GmailSender, error) {
	var ts oauth2.TokenSource
	switch {
	case CleanEnv(cfg.BearerToken) != "":
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: CleanEnv(cfg.BearerToken), TokenType: "Bearer"})
	case cfg.RefreshToken != "" && cfg.ClientID != "":
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     googleOAuthEndpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/gmail.send"},
		}
		ts = oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	default:
		return nil, errx.Config("GMAIL_BEARER_TOKEN not set")
	}

	userID := cfg.UserID
	if userID == "" {
		userID = "me"
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultGmailBaseURL
	}
	return &GmailSender{
		client:  oauth2.NewClient(ctx, ts),
		userID:  userID,
		baseURL: base,
		now:     time.Now,
	}, nil
}

func (g *GmailSender) SendEmail(ctx context.Context, e Email) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	raw := base64.URLEncoding.EncodeToString(BuildMIME(e, g.now()))
	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return "", fmt.Errorf("marshal gmail payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/gmail/v1/users/%s/messages/send", g.baseURL, url.PathEscape(g.userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gmail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errx.WrapUpstream("gmail", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logx.Warn().Int("status", resp.StatusCode).Str("to", e.To).Msg("Gmail send rejected")
		return "", errx.WrapUpstream("gmail", fmt.Errorf("status %d: %s", resp.StatusCode, snippet(body)))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errx.WrapUpstream("gmail", fmt.Errorf("decode response: %w", err))
	}
	logx.Info().Str("message_id", out.ID).Str("to", e.To).Msg("Email sent via Gmail")
	return out.ID, nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

var _ EmailSender = (*GmailSender)(nil)
