package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/HeliosCommand/server/internal/agent/model"
)

const defaultMaxTurns = 20

// MessagesManager turns session history into model context.
type MessagesManager struct {
	maxTurns int
}

func NewMessagesManager(config model.ConversationConfig) *MessagesManager {
	n := config.History.MaxTurns
	if n <= 0 {
		n = defaultMaxTurns
	}
	return &MessagesManager{maxTurns: n}
}

// BuildResponseContext prefixes the recent turns with the system prompt.
func (cm *MessagesManager) BuildResponseContext(systemPrompt string, s *model.Session) []*schema.Message {
	recent := trimTail(s.Turns, cm.maxTurns)

	messages := make([]*schema.Message, 0, len(recent)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, t := range recent {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		switch t.Role {
		case model.RoleUser:
			messages = append(messages, schema.UserMessage(t.Text))
		case model.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(t.Text, nil))
		}
	}
	return messages
}

func trimTail[T any](items []T, maxTurns int) []T {
	if len(items) <= maxTurns {
		return append([]T(nil), items...)
	}
	return append([]T(nil), items[len(items)-maxTurns:]...)
}
