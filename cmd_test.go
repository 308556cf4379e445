package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeliosCommand/server/internal/agent/model"
	"github.com/HeliosCommand/server/internal/agent/repo"
	"github.com/HeliosCommand/server/internal/agent/workflow"
)

type runnerFunc func(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error)

func (f runnerFunc) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error) {
	return f(ctx, in)
}

func newTestWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	runner := runnerFunc(func(_ context.Context, in model.TurnInput) (*model.TurnOutput, error) {
		require.NoError(t, in.Session.AppendTurn(model.RoleUser, in.Message))
		reply := "echo: " + in.Message
		require.NoError(t, in.Session.AppendTurn(model.RoleAssistant, reply))
		return &model.TurnOutput{Reply: reply, Session: in.Session}, nil
	})
	wf, err := workflow.New(context.Background(), runner, repo.NewFileSessionRepository(t.TempDir()), nil, "")
	require.NoError(t, err)
	return wf
}

func TestReplRunsTurnsUntilExitWord(t *testing.T) {
	wf := newTestWorkflow(t)
	var out bytes.Buffer

	err := repl(context.Background(), wf, strings.NewReader("hospital near Adyar\n\nBYE\nnever read\n"), &out)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, workflow.FallbackGreeting)
	assert.Contains(t, got, "HeliosCommand: echo: hospital near Adyar")
	assert.NotContains(t, got, "never read")
	assert.True(t, strings.HasSuffix(got, goodbyeMessage+"\n"))
}

func TestReplResetStartsNewConversation(t *testing.T) {
	wf := newTestWorkflow(t)
	first := wf.ConversationID()
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), wf, strings.NewReader("reset\n"), &out))
	assert.NotEqual(t, first, wf.ConversationID())
	assert.Contains(t, out.String(), "Started a new conversation ("+wf.ConversationID()+")")
	assert.Contains(t, out.String(), goodbyeMessage)
}

type endlessInput struct{}

func (endlessInput) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = "hi\n"[i%3]
	}
	return len(p) - len(p)%3, nil
}

func TestReadLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lines := readLines(ctx, endlessInput{})
	select {
	case l, ok := <-lines:
		assert.False(t, ok, "unexpected line %q after cancel", l)
	case <-time.After(time.Second):
		t.Fatal("reader goroutine still running after cancel")
	}
}

func TestReplReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, repl(ctx, newTestWorkflow(t), endlessInput{}, &out))
	assert.Contains(t, out.String(), goodbyeMessage)
}

func TestRootCmdRejectsCSVWeight(t *testing.T) {
	cmd := newRootCmd(&AppConfig{})
	cmd.SetArgs([]string{"--flood", "--csv-weight", "1.5"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 0 and 1")
}

func TestPlacesKeyFallsBackToMapsKey(t *testing.T) {
	cfg := &AppConfig{MapsKey: `"maps-key"`}
	assert.Equal(t, "maps-key", cfg.placesKey())
	cfg.PlacesKey = "places-key"
	assert.Equal(t, "places-key", cfg.placesKey())
}
