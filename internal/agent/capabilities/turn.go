package capabilities

import (
	"context"
	"sync"

	"github.com/HeliosCommand/server/internal/agent/model"
)

type turnKey struct{}

// Turn records the capability invoked during one router turn.
// Only the first invocation runs; later ones in the same turn are refused.
type Turn struct {
	Session *model.Session

	mu     sync.Mutex
	result *model.HandlerResult
}

func NewTurn(s *model.Session) *Turn {
	return &Turn{Session: s}
}

// WithTurn attaches t to ctx for the capability tools.
func WithTurn(ctx context.Context, t *Turn) context.Context {
	return context.WithValue(ctx, turnKey{}, t)
}

// TurnFrom returns the Turn attached to ctx.
func TurnFrom(ctx context.Context) (*Turn, bool) {
	t, ok := ctx.Value(turnKey{}).(*Turn)
	return t, ok && t != nil
}

// Invoke runs h once per turn. The bool is false when a capability already ran.
func (t *Turn) Invoke(ctx context.Context, h Handler, query string) (model.HandlerResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result != nil {
		return *t.result, false
	}
	res := Run(ctx, h, RequestFromSession(t.Session, query))
	t.result = &res
	return res, true
}

// Result returns the capability outcome of this turn, if any.
func (t *Turn) Result() *model.HandlerResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return nil
	}
	r := *t.result
	return &r
}
