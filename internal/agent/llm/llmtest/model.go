// Package llmtest provides a scripted chat model for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ScriptedModel replays canned replies and records every call.
type ScriptedModel struct {
	// Respond, when set, produces the reply for the n-th call (0-based).
	Respond func(call int, in []*schema.Message) (*schema.Message, error)
	// Replies are returned in order when Respond is nil; the last one repeats.
	Replies []string

	mu    sync.Mutex
	calls [][]*schema.Message
	tools []*schema.ToolInfo
}

// Reply returns a model that always answers text.
func Reply(text ...string) *ScriptedModel {
	return &ScriptedModel{Replies: text}
}

func (m *ScriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, append([]*schema.Message(nil), in...))
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(n, in)
	}
	if len(m.Replies) == 0 {
		return nil, fmt.Errorf("scripted model has no reply for call %d", n)
	}
	if n >= len(m.Replies) {
		n = len(m.Replies) - 1
	}
	return schema.AssistantMessage(m.Replies[n], nil), nil
}

func (m *ScriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *ScriptedModel) BindTools(tools []*schema.ToolInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return nil
}

// CallCount reports how many times Generate ran.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Call returns the messages of the n-th call.
func (m *ScriptedModel) Call(n int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.calls) {
		return nil
	}
	return m.calls[n]
}

// BoundTools returns the tool definitions passed to BindTools.
func (m *ScriptedModel) BoundTools() []*schema.ToolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tools
}

// ToolCall builds an assistant message requesting one tool invocation.
func ToolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}
