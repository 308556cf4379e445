package conversations

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeliosCommand/server/internal/agent/model"
)

func TestBuildResponseContextTrimsHistory(t *testing.T) {
	var cfg model.ConversationConfig
	cfg.History.MaxTurns = 2
	mm := NewMessagesManager(cfg)

	s := model.NewSession("c1")
	require.NoError(t, s.AppendTurn(model.RoleUser, "hello"))
	require.NoError(t, s.AppendTurn(model.RoleAssistant, "hi, how can I help?"))
	require.NoError(t, s.AppendTurn(model.RoleUser, "nearest hospital"))

	msgs := mm.BuildResponseContext("SYSTEM", s)
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "nearest hospital", msgs[2].Content)
}
