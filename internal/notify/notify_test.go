package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errx "github.com/HeliosCommand/server/internal/core/error"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestBuildMIME(t *testing.T) {
	raw := string(BuildMIME(Email{
		To:      "care@example.com",
		Subject: "Urgent bed request",
		Body:    "line one\nline two",
	}, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)))

	assert.Contains(t, raw, "To: care@example.com\r\n")
	assert.Contains(t, raw, "Subject: Urgent bed request\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two"))
}

func TestEmailValidate(t *testing.T) {
	err := Email{To: "not-an-address", Subject: "s", Body: "b"}.Validate()
	assert.Equal(t, errx.KindConfig, errx.KindOf(err))
	assert.Error(t, Email{To: "a@b.c"}.Validate())
	assert.NoError(t, Email{To: "a@b.c", Subject: "s", Body: "b"}.Validate())
}

func TestCleanEnv(t *testing.T) {
	assert.Equal(t, "+919876543210", CleanEnv(` "+919876543210" `))
	assert.Equal(t, "abc", CleanEnv("'abc'"))
}

func TestGmailSenderRequiresCredentials(t *testing.T) {
	_, err := NewGmailSender(context.Background(), GmailConfig{})
	assert.Equal(t, errx.KindConfig, errx.KindOf(err))
}

func TestGmailSenderSend(t *testing.T) {
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages/send", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotRaw = body["raw"]
		_, _ = w.Write([]byte(`{"id":"msg-1","threadId":"t-1"}`))
	}))
	defer srv.Close()

	g, err := NewGmailSender(context.Background(), GmailConfig{BearerToken: `"token-123"`, BaseURL: srv.URL})
	require.NoError(t, err)

	id, err := g.SendEmail(context.Background(), Email{To: "care@example.com", Subject: "Hello", Body: "Body text here"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	decoded, err := base64.URLEncoding.DecodeString(gotRaw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Subject: Hello")
	assert.Contains(t, string(decoded), "Body text here")
}

func TestGmailSenderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Credentials"}}`))
	}))
	defer srv.Close()

	g, err := NewGmailSender(context.Background(), GmailConfig{BearerToken: "expired", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.SendEmail(context.Background(), Email{To: "care@example.com", Subject: "Hello", Body: "Body"})
	require.Error(t, err)
	assert.Equal(t, errx.KindUpstream, errx.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid Credentials")
}

type fakeTwilio struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioConfigMissing(t *testing.T) {
	_, err := NewTwilioSender(TwilioConfig{AccountSID: "AC1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWILIO_AUTH_TOKEN, TWILIO_PHONE_NUMBER")
}

func TestTwilioSenderSend(t *testing.T) {
	api := &fakeTwilio{}
	s := &TwilioSender{api: api, from: "+10000000000"}

	sid, err := s.SendSMS(context.Background(), SMS{To: `"+919876543210"`, Body: "FLOOD ALERT:\nAdyar"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", sid)
	require.Len(t, api.params, 1)
	assert.Equal(t, "+919876543210", *api.params[0].To)
	assert.Equal(t, "+10000000000", *api.params[0].From)

	_, err = s.SendSMS(context.Background(), SMS{Body: "x"})
	assert.Equal(t, errx.KindConfig, errx.KindOf(err))

	api.err = errors.New("21211 invalid To")
	_, err = s.SendSMS(context.Background(), SMS{To: "+1", Body: "x"})
	assert.Equal(t, errx.KindUpstream, errx.KindOf(err))
}

type fakeSES struct{ in *ses.SendEmailInput }

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.in = in
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

type fakeSNS struct{ in *sns.PublishInput }

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func TestSESSender(t *testing.T) {
	api := &fakeSES{}
	s := &SESSender{client: api, source: "alerts@example.com"}

	id, err := s.SendEmail(context.Background(), Email{To: "ops@example.com", Subject: "FLOOD ALERT", Body: "body"})
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, "alerts@example.com", aws.ToString(api.in.Source))
	assert.Equal(t, []string{"ops@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "body", aws.ToString(api.in.Message.Body.Text.Data))
}

func TestSNSSender(t *testing.T) {
	api := &fakeSNS{}
	s := &SNSSender{client: api}

	id, err := s.SendSMS(context.Background(), SMS{To: "+919876543210", Body: "FLOOD ALERT:\nAdyar"})
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Equal(t, "+919876543210", aws.ToString(api.in.PhoneNumber))
}
