package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/HeliosCommand/server/internal/agent/capabilities"
	"github.com/HeliosCommand/server/internal/agent/model"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// AlreadyHandled is the tool reply when a capability already ran this turn.
const AlreadyHandled = "A capability was already handled in this turn. Do not call another tool; reply to the patient."

var toolDescriptions = map[model.Capability]string{
	model.CapabilityHospital: "Find the nearest hospital to the patient with distance, ETA and a map link. " +
		"Use for hospital, bed, ICU, admission or emergency requests.",
	model.CapabilityPharmacy: "Find the nearest open pharmacy or medical shop to the patient. " +
		"Use for medicine, pharmacy or drugstore requests.",
	model.CapabilityEmail: "E-mail the care team a summary of this conversation, including the patient address. " +
		"Use when the patient asks to send an email or declines the offered option.",
}

type CapabilityInput struct {
	Query string `json:"query"`
}

type CapabilityOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewCapabilityTool exposes h to the agent loop. The handler runs through the
// request's capabilities.Turn, so only the first capability call of a turn executes.
func NewCapabilityTool(h capabilities.Handler) tool.InvokableTool {
	name := string(h.Capability())
	desc, ok := toolDescriptions[h.Capability()]
	if !ok {
		desc = "Run the " + name + " capability."
	}

	return utils.NewTool(
		&schema.ToolInfo{
			Name: name,
			Desc: desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The patient's request in their own words, including any location they mentioned.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *CapabilityInput) (*CapabilityOutput, error) {
			turn, ok := capabilities.TurnFrom(ctx)
			if !ok {
				return nil, fmt.Errorf("%s: no active turn in context", name)
			}
			query := strings.TrimSpace(in.Query)
			if query == "" {
				query = turn.Session.UserText()
			}

			res, ran := turn.Invoke(ctx, h, query)
			if !ran {
				logx.Warn().
					Str("conversation_id", turn.Session.ConversationID).
					Str("tool_name", name).
					Msg("Second capability call in one turn refused")
				return &CapabilityOutput{Success: false, Message: AlreadyHandled}, nil
			}
			return &CapabilityOutput{Success: res.Success, Message: res.Message}, nil
		},
	)
}

// GetCapabilityTools returns one tool per registered capability.
func GetCapabilityTools(reg *capabilities.Registry) []tool.BaseTool {
	var out []tool.BaseTool
	for _, c := range reg.Capabilities() {
		h, _ := reg.Handler(c)
		out = append(out, NewCapabilityTool(h))
	}
	return out
}

// GetToolInfos collects the definitions to bind on the chat model.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
