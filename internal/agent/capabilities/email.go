package capabilities

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/HeliosCommand/server/internal/agent/graph/parsers"
	"github.com/HeliosCommand/server/internal/agent/graph/prompts"
	"github.com/HeliosCommand/server/internal/agent/llm"
	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	"github.com/HeliosCommand/server/internal/notify"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const (
	emailSent       = "Email sent successfully with your healthcare request details."
	emailNoHistory  = "No conversation history available to compose email"
	emailFailPrefix = "Sorry, I couldn't send the email: "
)

// urgentMarkers flag emergency or bed needs in the conversation.
var urgentMarkers = []string{"emergency", "icu", "bed", "admission", "accident", "urgent", "hospital"}

// EmailComposer drafts a care-team e-mail from the conversation and sends it.
type EmailComposer struct {
	chat      einomodel.BaseChatModel
	sender    notify.EmailSender
	recipient string
}

func NewEmailComposer(chat einomodel.BaseChatModel, sender notify.EmailSender, recipient string) *EmailComposer {
	return &EmailComposer{chat: chat, sender: sender, recipient: notify.CleanEnv(recipient)}
}

func (e *EmailComposer) Capability() model.Capability {
	return model.CapabilityEmail
}

func (e *EmailComposer) Process(ctx context.Context, req Request) model.HandlerResult {
	if strings.TrimSpace(req.Context) == "" {
		return model.Failed(e.Capability(), emailNoHistory, errx.Config(emailNoHistory))
	}
	if !strings.Contains(e.recipient, "@") {
		err := errx.Config("USER_EMAIL not set or invalid")
		return model.Failed(e.Capability(), emailFailPrefix+err.Error(), err)
	}
	if e.sender == nil {
		err := errx.Config("email transport not configured (GMAIL_BEARER_TOKEN)")
		return model.Failed(e.Capability(), emailFailPrefix+err.Error(), err)
	}

	var address string
	if req.Address != nil {
		address = *req.Address
	}
	system, err := prompts.RenderCareEmail(ctx, prompts.CareEmailVars{
		Context: req.Context,
		Address: address,
		Intent:  string(req.Intent),
		Urgent:  isUrgent(req),
	})
	if err != nil {
		return model.Failed(e.Capability(), emailFailPrefix+errx.SystemErrorMessage, err)
	}

	reply, err := llm.Complete(ctx, e.chat, system, "Write the e-mail now.")
	if err != nil {
		return model.Failed(e.Capability(), emailFailPrefix+err.Error(), err)
	}
	draft, err := parsers.ParseEmailDraft(reply)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("Rejected malformed email draft")
		return model.Failed(e.Capability(), err.Error(), err)
	}

	id, err := e.sender.SendEmail(ctx, notify.Email{To: e.recipient, Subject: draft.Subject, Body: draft.Body})
	if err != nil {
		return model.Failed(e.Capability(), emailFailPrefix+err.Error(), err)
	}
	logx.Info().Str("conversation_id", req.ConversationID).Str("message_id", id).Msg("Care email sent")
	return model.Succeeded(e.Capability(), emailSent)
}

func isUrgent(req Request) bool {
	if req.Intent == model.IntentHospital {
		return true
	}
	text := strings.ToLower(req.Context)
	for _, m := range urgentMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
