package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestMessageCost(t *testing.T) {
	msg := &schema.Message{
		Role: schema.Assistant,
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens: 1_000_000, CompletionTokens: 500_000, TotalTokens: 1_500_000,
		}},
	}

	c, ok := MessageCost("gemini-2.5-flash", msg)
	assert.True(t, ok)
	assert.InDelta(t, 0.30, c.InputCost, 1e-9)
	assert.InDelta(t, 1.25, c.OutputCost, 1e-9)
	assert.InDelta(t, 1.55, c.TotalCost, 1e-9)

	c, ok = MessageCost("some-local-model", msg)
	assert.True(t, ok)
	assert.Zero(t, c.TotalCost)

	_, ok = MessageCost("gemini-2.5-flash", schema.AssistantMessage("no usage", nil))
	assert.False(t, ok)
}
