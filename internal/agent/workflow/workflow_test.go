package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeliosCommand/server/internal/agent/llm/llmtest"
	"github.com/HeliosCommand/server/internal/agent/model"
	"github.com/HeliosCommand/server/internal/agent/repo"
	errx "github.com/HeliosCommand/server/internal/core/error"
)

type runnerFunc func(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error)

func (f runnerFunc) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error) {
	return f(ctx, in)
}

func echoRunner() runnerFunc {
	return func(_ context.Context, in model.TurnInput) (*model.TurnOutput, error) {
		if err := in.Session.AppendTurn(model.RoleUser, in.Message); err != nil {
			return nil, err
		}
		in.Session.TurnCount++
		reply := "echo: " + in.Message
		if err := in.Session.AppendTurn(model.RoleAssistant, reply); err != nil {
			return nil, err
		}
		return &model.TurnOutput{Reply: reply, Session: in.Session}, nil
	}
}

func TestChatPersistsTurn(t *testing.T) {
	ctx := context.Background()
	store := repo.NewFileSessionRepository(t.TempDir())
	w, err := New(ctx, echoRunner(), store, nil, "")
	require.NoError(t, err)
	assert.Regexp(t, `^helios_[0-9a-f]{12}$`, w.ConversationID())

	assert.Equal(t, "echo: hello", w.Chat(ctx, "hello"))

	loaded, err := store.Load(ctx, w.ConversationID())
	require.NoError(t, err)
	assert.Len(t, loaded.Turns, 2)
	assert.Equal(t, 1, loaded.TurnCount)

	resumed, err := New(ctx, echoRunner(), store, nil, w.ConversationID())
	require.NoError(t, err)
	assert.Len(t, resumed.Session().Turns, 2)
}

func TestChatFailureKeepsLastGoodSession(t *testing.T) {
	ctx := context.Background()
	store := repo.NewFileSessionRepository(t.TempDir())
	w, err := New(ctx, echoRunner(), store, nil, "")
	require.NoError(t, err)
	w.Chat(ctx, "first")

	w.runner = runnerFunc(func(_ context.Context, in model.TurnInput) (*model.TurnOutput, error) {
		_ = in.Session.AppendTurn(model.RoleUser, in.Message)
		return nil, errors.New("upstream exploded")
	})
	assert.Equal(t, errx.SystemErrorMessage, w.Chat(ctx, "second"))

	loaded, err := store.Load(ctx, w.ConversationID())
	require.NoError(t, err)
	assert.Len(t, loaded.Turns, 2)
	assert.Equal(t, []string{"upstream exploded"}, loaded.Errors)
}

func TestChatRecoversPanics(t *testing.T) {
	ctx := context.Background()
	w, err := New(ctx, runnerFunc(func(context.Context, model.TurnInput) (*model.TurnOutput, error) {
		panic("nil pointer")
	}), repo.NewFileSessionRepository(t.TempDir()), nil, "")
	require.NoError(t, err)

	assert.Equal(t, errx.SystemErrorMessage, w.Chat(ctx, "hello"))
	require.Len(t, w.Session().Errors, 1)
	assert.Contains(t, w.Session().Errors[0], "nil pointer")
}

func TestGreeting(t *testing.T) {
	ctx := context.Background()
	store := repo.NewFileSessionRepository(t.TempDir())

	w, err := New(ctx, echoRunner(), store, llmtest.Reply("Hello! I can find hospitals, pharmacies or email your care team."), "")
	require.NoError(t, err)
	assert.Equal(t, "Hello! I can find hospitals, pharmacies or email your care team.", w.Greeting(ctx))

	failing := &llmtest.ScriptedModel{}
	w, err = New(ctx, echoRunner(), store, failing, "")
	require.NoError(t, err)
	assert.Equal(t, FallbackGreeting, w.Greeting(ctx))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	w, err := New(ctx, echoRunner(), repo.NewFileSessionRepository(t.TempDir()), nil, "")
	require.NoError(t, err)
	w.Chat(ctx, "hello")
	old := w.ConversationID()

	id := w.Reset()
	assert.NotEqual(t, old, id)
	assert.Empty(t, w.Session().Turns)
}
