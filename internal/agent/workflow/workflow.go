// Package workflow runs router turns against a persisted session.
package workflow

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/HeliosCommand/server/internal/agent/graph"
	"github.com/HeliosCommand/server/internal/agent/graph/prompts"
	"github.com/HeliosCommand/server/internal/agent/llm"
	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const FallbackGreeting = "Welcome to HeliosCommand! I can help you find nearby hospitals, pharmacies, or send emails."

// Workflow owns one conversation at a time. It is not safe for concurrent use.
type Workflow struct {
	runner  graph.Runner
	repo    model.SessionRepository
	greeter einomodel.BaseChatModel
	session *model.Session
}

// New loads conversationID from repo, or starts a new conversation when it is empty.
func New(ctx context.Context, runner graph.Runner, repo model.SessionRepository, greeter einomodel.BaseChatModel, conversationID string) (*Workflow, error) {
	if runner == nil || repo == nil {
		return nil, fmt.Errorf("workflow needs a runner and a session repository")
	}
	w := &Workflow{runner: runner, repo: repo, greeter: greeter}
	if strings.TrimSpace(conversationID) == "" {
		w.session = model.NewSession("")
		return w, nil
	}
	s, err := repo.Load(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	w.session = s
	return w, nil
}

func (w *Workflow) ConversationID() string {
	return w.session.ConversationID
}

// Session returns a copy of the current session.
func (w *Workflow) Session() *model.Session {
	return w.session.Clone()
}

// Chat runs one turn and persists the result. Failures never escape: the error is
// recorded on the last good session and the user gets the generic apology.
func (w *Workflow) Chat(ctx context.Context, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return "Please tell me how I can help."
	}

	working := w.session.Clone()
	out, err := w.invoke(ctx, working, message)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", w.session.ConversationID).Msg("Turn failed")
		w.session.RecordError(err.Error())
		w.persist(ctx)
		return errx.SystemErrorMessage
	}

	w.session = out.Session
	w.persist(ctx)
	return out.Reply
}

func (w *Workflow) invoke(ctx context.Context, s *model.Session, message string) (out *model.TurnOutput, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errx.New(fmt.Errorf("panic: %v", rec), errx.KindInternal, errx.SystemErrorMessage)
		}
	}()
	out, err = w.runner.Invoke(ctx, model.TurnInput{Session: s, Message: message})
	if err == nil && (out == nil || out.Session == nil) {
		err = errx.New(nil, errx.KindInternal, "turn produced no session")
	}
	return out, err
}

func (w *Workflow) persist(ctx context.Context) {
	if err := w.repo.Save(ctx, w.session); err != nil {
		logx.Error().Err(err).Str("conversation_id", w.session.ConversationID).Msg("Failed to persist session")
	}
}

// Greeting asks the model for a welcome line, falling back to a fixed one.
func (w *Workflow) Greeting(ctx context.Context) string {
	if w.greeter == nil {
		return FallbackGreeting
	}
	system, err := prompts.RenderGreeting(ctx)
	if err != nil {
		return FallbackGreeting
	}
	text, err := llm.Complete(ctx, w.greeter, system, "Greet the patient.")
	if err != nil || text == "" {
		if err != nil {
			logx.Warn().Err(err).Msg("Greeting generation failed, using fallback")
		}
		return FallbackGreeting
	}
	return text
}

// Reset starts a new conversation and returns its id. The old one stays stored.
func (w *Workflow) Reset() string {
	w.session = model.NewSession("")
	logx.Info().Str("conversation_id", w.session.ConversationID).Msg("Conversation reset")
	return w.session.ConversationID
}
