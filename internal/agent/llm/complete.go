package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	errx "github.com/HeliosCommand/server/internal/core/error"
)

// Complete runs one system+user exchange and returns the trimmed reply text.
func Complete(ctx context.Context, m einomodel.BaseChatModel, system, user string) (string, error) {
	if m == nil {
		return "", errx.Config("chat model not configured")
	}

	msgs := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(user))

	out, err := m.Generate(ctx, msgs)
	if err != nil {
		return "", errx.WrapUpstream("llm", err)
	}
	if out == nil {
		return "", errx.WrapUpstream("llm", fmt.Errorf("empty response"))
	}
	return strings.TrimSpace(out.Content), nil
}
