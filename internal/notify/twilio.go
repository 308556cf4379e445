package notify

import (
	"context"
	"strings"

	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioConfig struct {
	AccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	FromNumber string `envconfig:"TWILIO_PHONE_NUMBER"`
}

// Missing lists the unset credential keys.
func (c TwilioConfig) Missing() []string {
	var missing []string
	if CleanEnv(c.AccountSID) == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if CleanEnv(c.AuthToken) == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if CleanEnv(c.FromNumber) == "" {
		missing = append(missing, "TWILIO_PHONE_NUMBER")
	}
	return missing
}

type twilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers SMS through the Twilio Messages API.
type TwilioSender struct {
	api  twilioAPI
	from string
}

func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, errx.Config("missing Twilio credentials: " + strings.Join(missing, ", "))
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: CleanEnv(cfg.AccountSID),
		Password: CleanEnv(cfg.AuthToken),
	})
	return &TwilioSender{api: client.Api, from: CleanEnv(cfg.FromNumber)}, nil
}

func (t *TwilioSender) SendSMS(ctx context.Context, m SMS) (string, error) {
	to := CleanEnv(m.To)
	if to == "" {
		return "", errx.Config("RECIPIENT_PHONE_NUMBER not set")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(m.Body)

	msg, err := t.api.CreateMessage(params)
	if err != nil {
		return "", errx.WrapUpstream("twilio", err)
	}
	var sid string
	if msg != nil && msg.Sid != nil {
		sid = *msg.Sid
	}
	logx.Info().Str("message_sid", sid).Msg("SMS sent via Twilio")
	return sid, nil
}

var _ SMSSender = (*TwilioSender)(nil)
