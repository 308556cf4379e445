package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/HeliosCommand/server/internal/agent/capabilities"
	"github.com/HeliosCommand/server/internal/agent/graph/address"
	"github.com/HeliosCommand/server/internal/agent/graph/conversations"
	"github.com/HeliosCommand/server/internal/agent/graph/intents"
	"github.com/HeliosCommand/server/internal/agent/graph/prompts"
	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const (
	NodeInputConverter    = "InputConverter"
	NodeAcknowledge       = "Acknowledge"
	NodeAddressResolver   = "AddressResolver"
	NodeDispatch          = "Dispatch"
	NodeResponseAssembler = "ResponseAssembler"
	NodeAgentChatModel    = "AgentChatModel"
	NodeToolExecutor      = "ToolExecutor"
	NodeFinalizeReply     = "FinalizeReply"
	NodeFinalizeTool      = "FinalizeTool"
)

// ClarifyReply is sent when the agent loop produced no usable text.
const ClarifyReply = "Would you like help finding a hospital, pharmacy, or sending an email?"

// NewInputConverterPreHandler seeds the turn state and records the user message on the session.
func NewInputConverterPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		if in.Session == nil {
			return in, errx.New(nil, errx.KindInternal, "turn started without a session")
		}
		if err := in.Session.AppendTurn(model.RoleUser, in.Message); err != nil {
			return in, fmt.Errorf("record user message: %w", err)
		}
		in.Session.TurnCount++

		s.Session = in.Session
		s.Message = in.Message
		s.History = nil
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode classifies the message into a routing decision.
func NewInputConverterNode(router *intents.Router) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.Decision, error) {
		return router.Route(ctx, in.Session, in.Message), nil
	})
}

// NewInputConverterPostHandler stores the decision and applies a newly detected intent.
func NewInputConverterPostHandler() func(context.Context, model.Decision, *model.TurnState) (model.Decision, error) {
	return func(ctx context.Context, out model.Decision, state *model.TurnState) (model.Decision, error) {
		state.Decision = out
		if out.Intent != state.Session.Intent {
			if err := state.Session.SetIntent(out.Intent); err != nil {
				return out, err
			}
		}
		logx.Debug().
			Str("conversation_id", state.Session.ConversationID).
			Str("decision", string(out.Kind)).
			Str("intent", string(out.Intent)).
			Str("capability", string(out.Capability)).
			Msg("Routing decision")
		return out, nil
	}
}

// NewAcknowledgeCondition short-circuits confirmations before address resolution.
func NewAcknowledgeCondition() func(context.Context, model.Decision) (string, error) {
	return func(ctx context.Context, d model.Decision) (string, error) {
		if d.Kind == model.DecisionAcknowledge {
			return NodeAcknowledge, nil
		}
		return NodeAddressResolver, nil
	}
}

func NewAcknowledgeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d model.Decision) (*model.TurnOutput, error) {
		return finish(ctx, d.Reply, nil)
	})
}

// NewAddressResolverNode resolves and caches the patient's location before any dispatch.
func NewAddressResolverNode(resolver *address.Resolver) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d model.Decision) (model.Decision, error) {
		var s *model.Session
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			s = state.Session
			return nil
		}); err != nil {
			return d, fmt.Errorf("failed to access state: %w", err)
		}
		resolver.Resolve(ctx, s)
		return d, nil
	})
}

// NewDispatchCondition sends forced dispatches straight to the handler and the rest to the agent loop.
func NewDispatchCondition() func(context.Context, model.Decision) (string, error) {
	return func(ctx context.Context, d model.Decision) (string, error) {
		if d.Kind == model.DecisionDispatch {
			return NodeDispatch, nil
		}
		return NodeResponseAssembler, nil
	}
}

// NewDispatchNode runs the decided capability without consulting the model.
func NewDispatchNode(reg *capabilities.Registry) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d model.Decision) (*model.TurnOutput, error) {
		turn, ok := capabilities.TurnFrom(ctx)
		if !ok {
			return nil, errx.New(nil, errx.KindInternal, "dispatch without an active turn")
		}
		h, ok := reg.Handler(d.Capability)
		if !ok {
			err := errx.Config(fmt.Sprintf("capability %s is not available", d.Capability))
			res := model.Failed(d.Capability, err.Error(), err)
			return finish(ctx, res.Message, &res)
		}
		res, _ := turn.Invoke(ctx, h, turn.Session.Transcript())
		return finish(ctx, res.Message, &res)
	})
}

// NewResponseAssemblerNode builds the agent loop context from session state and history.
func NewResponseAssemblerNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d model.Decision) ([]*schema.Message, error) {
		var s *model.Session
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			s = state.Session
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		vars := prompts.RouterVars{
			Intent:       string(s.Intent),
			HospitalTool: string(model.CapabilityHospital),
			PharmacyTool: string(model.CapabilityPharmacy),
			EmailTool:    string(model.CapabilityEmail),
		}
		if s.Address != nil {
			vars.Address = *s.Address
		}
		if s.Coordinates != nil {
			vars.Coordinates = s.Coordinates.String()
		}
		sys, err := prompts.RenderRouterSystem(ctx, vars)
		if err != nil {
			return nil, fmt.Errorf("render router system prompt: %w", err)
		}
		return mm.BuildResponseContext(sys, s), nil
	})
}

// NewAgentChatModelPreHandler accumulates history and injects the wrap-up notice at the tool limit.
func NewAgentChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.TurnState) ([]*schema.Message, error) {
	budget := newToolBudget(maxToolCalls)
	return func(ctx context.Context, in []*schema.Message, state *model.TurnState) ([]*schema.Message, error) {
		// Some OpenAI-compatible providers drop tool_call_id on tool results.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if budget.exhaust(state) {
			state.History = append(state.History, schema.SystemMessage(fmt.Sprintf(
				"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
					"Do not call any more tools. Reply to the patient with what you already know.",
				int(budget),
			)))
		}
		return state.History, nil
	}
}

// NewAgentChatModelPostHandler prices the call, fills missing tool call ids and records the reply.
func NewAgentChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if out == nil {
			return nil, errx.WrapUpstream("llm", fmt.Errorf("empty response"))
		}
		if cost, ok := model.MessageCost(modelName, out); ok {
			state.TotalCostUSD += cost.TotalCost
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost"] = cost
			logx.Debug().
				Str("conversation_id", state.Session.ConversationID).
				Str("node", NodeAgentChatModel).
				Str("model", modelName).
				Int("prompt_tokens", cost.PromptTokens).
				Int("completion_tokens", cost.CompletionTokens).
				Float64("total_cost_usd", cost.TotalCost).
				Msg("LLM usage")
		}

		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}
		state.History = append(state.History, out)
		return out, nil
	}
}

// NewToolExecutorCondition routes tool calls to the executor unless the limit was hit.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, in *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if len(in.ToolCalls) > 0 && !limitReached {
			logx.Debug().Int("tool_count", len(in.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return NodeFinalizeReply, nil
	}
}

// NewToolExecutorPreHandler counts tool executions against the per-turn budget.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	budget := newToolBudget(maxToolCalls)
	return func(ctx context.Context, in *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if budget.spend(state) {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", int(budget)).
				Str("conversation_id", state.Session.ConversationID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}

// NewCapabilityRanCondition ends the turn once a capability produced a result.
func NewCapabilityRanCondition() func(context.Context, []*schema.Message) (string, error) {
	return func(ctx context.Context, _ []*schema.Message) (string, error) {
		if turn, ok := capabilities.TurnFrom(ctx); ok && turn.Result() != nil {
			return NodeFinalizeTool, nil
		}
		return NodeAgentChatModel, nil
	}
}

// NewFinalizeReplyNode turns the model's text answer into the turn output.
func NewFinalizeReplyNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (*model.TurnOutput, error) {
		reply := strings.TrimSpace(in.Content)
		if reply == "" {
			reply = ClarifyReply
		}
		return finish(ctx, reply, nil)
	})
}

// NewFinalizeToolNode replies with the message of the capability that ran.
func NewFinalizeToolNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ []*schema.Message) (*model.TurnOutput, error) {
		turn, ok := capabilities.TurnFrom(ctx)
		if !ok || turn.Result() == nil {
			return nil, errx.New(nil, errx.KindInternal, "no capability result to finalize")
		}
		res := turn.Result()
		return finish(ctx, res.Message, res)
	})
}

// finish records the reply and any handler errors on the session and assembles the output.
func finish(ctx context.Context, reply string, res *model.HandlerResult) (*model.TurnOutput, error) {
	out := &model.TurnOutput{Reply: reply, Result: res}
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
		s := state.Session
		if res != nil {
			for _, e := range res.Errors {
				s.RecordError(e)
			}
		}
		if err := s.AppendTurn(model.RoleAssistant, reply); err != nil {
			return err
		}
		out.Session = s
		out.Decision = state.Decision
		out.CostUSD = state.TotalCostUSD
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finalize turn: %w", err)
	}
	return out, nil
}
