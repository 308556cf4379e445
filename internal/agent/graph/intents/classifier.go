package intents

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/HeliosCommand/server/internal/agent/graph/parsers"
	"github.com/HeliosCommand/server/internal/agent/graph/prompts"
	"github.com/HeliosCommand/server/internal/agent/llm"
	"github.com/HeliosCommand/server/internal/agent/model"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// Fallback classifies messages the keyword table could not place.
type Fallback interface {
	Classify(ctx context.Context, text string) (model.Intent, error)
}

// ModelClassifier asks the utility model for a one-word intent.
type ModelClassifier struct {
	chat einomodel.BaseChatModel
}

func NewModelClassifier(chat einomodel.BaseChatModel) *ModelClassifier {
	return &ModelClassifier{chat: chat}
}

func (m *ModelClassifier) Classify(ctx context.Context, text string) (model.Intent, error) {
	system, err := prompts.RenderIntentClassification(ctx)
	if err != nil {
		return model.IntentUnknown, err
	}
	reply, err := llm.Complete(ctx, m.chat, system, text)
	if err != nil {
		return model.IntentUnknown, err
	}
	return parsers.ParseIntentReply(reply), nil
}

// Router makes the deterministic part of the routing decision.
type Router struct {
	rules    *Rules
	fallback Fallback
}

// NewRouter builds a router. fallback may be nil, leaving unmatched messages unknown.
func NewRouter(rules *Rules, fallback Fallback) *Router {
	return &Router{rules: rules, fallback: fallback}
}

// Route decides how to handle msg given the session so far:
//   - a confirmation is acknowledged without dispatch;
//   - a decline dispatches the care e-mail directly;
//   - otherwise the turn is delegated, with the intent detected while still unknown.
//
// The session is not modified.
func (r *Router) Route(ctx context.Context, s *model.Session, msg string) model.Decision {
	switch r.rules.DetectReaction(msg) {
	case ReactionConfirm:
		return model.Decision{Kind: model.DecisionAcknowledge, Intent: s.Intent, Reply: r.rules.ConfirmReply()}
	case ReactionDecline:
		return model.Decision{Kind: model.DecisionDispatch, Capability: model.CapabilityEmail, Intent: s.Intent}
	}

	intent := s.Intent
	if intent == model.IntentUnknown {
		intent = r.detect(ctx, s.ConversationID, msg)
	}
	d := model.Decision{Kind: model.DecisionDelegate, Intent: intent}
	if c, ok := model.CapabilityFor(intent); ok {
		d.Capability = c
	}
	return d
}

func (r *Router) detect(ctx context.Context, conversationID, msg string) model.Intent {
	if in := r.rules.Classify(msg); in != model.IntentUnknown {
		return in
	}
	if r.fallback == nil {
		return model.IntentUnknown
	}
	in, err := r.fallback.Classify(ctx, msg)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("Intent fallback failed, treating as unknown")
		return model.IntentUnknown
	}
	return in
}
