package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/HeliosCommand/server/internal/agent/capabilities"
	"github.com/HeliosCommand/server/internal/agent/graph/address"
	"github.com/HeliosCommand/server/internal/agent/graph/conversations"
	"github.com/HeliosCommand/server/internal/agent/graph/intents"
	"github.com/HeliosCommand/server/internal/agent/graph/nodes"
	"github.com/HeliosCommand/server/internal/agent/graph/observers"
	"github.com/HeliosCommand/server/internal/agent/graph/tools"
	"github.com/HeliosCommand/server/internal/agent/llm"
	"github.com/HeliosCommand/server/internal/agent/model"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// Runner executes one router turn.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error)
}

// GraphConfig holds all configuration needed to build the turn graph.
type GraphConfig struct {
	ChatModels      *llm.ChatModels
	Registry        *capabilities.Registry
	Router          *intents.Router
	Resolver        *address.Resolver
	MessagesManager *conversations.MessagesManager
	ToolMaxCalls    int
}

// GraphBuilder handles the construction of the router turn graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnOutput]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *model.TurnOutput]
}

// Invoke runs the turn on in.Session, which the graph mutates in place.
func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error) {
	if in.Session == nil {
		return nil, fmt.Errorf("turn input has no session")
	}
	turn := capabilities.NewTurn(in.Session)
	ctx = capabilities.WithTurn(ctx, turn)

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("turn graph returned no output")
	}
	logx.Debug().
		Str("conversation_id", in.Session.ConversationID).
		Str("decision", string(out.Decision.Kind)).
		Float64("total_cost_usd", out.CostUSD).
		Msg("Turn completed")
	return out, nil
}

// BuildTurnGraph compiles the router graph and returns a Runner.
func BuildTurnGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled turn graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Router == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Registry == nil || config.Router == nil || config.Resolver == nil {
		return nil, fmt.Errorf("registry, router and resolver are required")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.TurnOutput](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// setupTools binds the capability tools to the router model and adds the tools node.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	capabilityTools := tools.GetCapabilityTools(b.config.Registry)
	toolInfos, err := tools.GetToolInfos(ctx, capabilityTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToRouterModel(ctx, toolInfos); err != nil {
		return err
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               capabilityTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return sanitizeToolArguments(arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)
}

// sanitizeToolArguments coerces the query argument to a trimmed string. Non-JSON input passes through.
func sanitizeToolArguments(arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}
	if v, ok := m["query"]; ok {
		switch vv := v.(type) {
		case string:
			m["query"] = strings.TrimSpace(vv)
		case nil:
			delete(m, "query")
		default:
			m["query"] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	out, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(out)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() error {
	cfg := b.config
	steps := []struct {
		name string
		add  func() error
	}{
		{nodes.NodeInputConverter, func() error {
			return b.graph.AddLambdaNode(nodes.NodeInputConverter,
				nodes.NewInputConverterNode(cfg.Router),
				compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
				compose.WithStatePostHandler(nodes.NewInputConverterPostHandler()),
			)
		}},
		{nodes.NodeAcknowledge, func() error {
			return b.graph.AddLambdaNode(nodes.NodeAcknowledge, nodes.NewAcknowledgeNode())
		}},
		{nodes.NodeAddressResolver, func() error {
			return b.graph.AddLambdaNode(nodes.NodeAddressResolver, nodes.NewAddressResolverNode(cfg.Resolver))
		}},
		{nodes.NodeDispatch, func() error {
			return b.graph.AddLambdaNode(nodes.NodeDispatch, nodes.NewDispatchNode(cfg.Registry))
		}},
		{nodes.NodeResponseAssembler, func() error {
			return b.graph.AddLambdaNode(nodes.NodeResponseAssembler, nodes.NewResponseAssemblerNode(cfg.MessagesManager))
		}},
		{nodes.NodeAgentChatModel, func() error {
			return b.graph.AddChatModelNode(nodes.NodeAgentChatModel,
				cfg.ChatModels.Router,
				compose.WithStatePreHandler(nodes.NewAgentChatModelPreHandler(cfg.ToolMaxCalls)),
				compose.WithStatePostHandler(nodes.NewAgentChatModelPostHandler(cfg.ChatModels.RouterModelName)),
			)
		}},
		{nodes.NodeFinalizeReply, func() error {
			return b.graph.AddLambdaNode(nodes.NodeFinalizeReply, nodes.NewFinalizeReplyNode())
		}},
		{nodes.NodeFinalizeTool, func() error {
			return b.graph.AddLambdaNode(nodes.NodeFinalizeTool, nodes.NewFinalizeToolNode())
		}},
	}
	for _, s := range steps {
		if err := s.add(); err != nil {
			logx.Error().Err(err).Str("node", s.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", s.name, err)
		}
	}
	return nil
}

// addEdges creates the fixed connections between nodes.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeAcknowledge, compose.END},
		{nodes.NodeDispatch, compose.END},
		{nodes.NodeResponseAssembler, nodes.NodeAgentChatModel},
		{nodes.NodeFinalizeReply, compose.END},
		{nodes.NodeFinalizeTool, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	branches := []struct {
		from   string
		branch *compose.GraphBranch
	}{
		{nodes.NodeInputConverter, compose.NewGraphBranch(
			nodes.NewAcknowledgeCondition(),
			map[string]bool{nodes.NodeAcknowledge: true, nodes.NodeAddressResolver: true},
		)},
		{nodes.NodeAddressResolver, compose.NewGraphBranch(
			nodes.NewDispatchCondition(),
			map[string]bool{nodes.NodeDispatch: true, nodes.NodeResponseAssembler: true},
		)},
		{nodes.NodeAgentChatModel, compose.NewGraphBranch(
			nodes.NewToolExecutorCondition(),
			map[string]bool{nodes.NodeToolExecutor: true, nodes.NodeFinalizeReply: true},
		)},
		{nodes.NodeToolExecutor, compose.NewGraphBranch(
			nodes.NewCapabilityRanCondition(),
			map[string]bool{nodes.NodeFinalizeTool: true, nodes.NodeAgentChatModel: true},
		)},
	}

	for _, br := range branches {
		if err := b.graph.AddBranch(br.from, br.branch); err != nil {
			logx.Error().Err(err).Str("node", br.from).Msg("Error adding branch")
			return fmt.Errorf("error adding branch after %s: %w", br.from, err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	// Bound the agent loop: each tool round trip is two steps.
	maxSteps := max(10+b.config.ToolMaxCalls*2, 20)

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
