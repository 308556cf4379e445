package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/HeliosCommand/server/internal/agent/model"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// ToolBindableModel is a chat model that accepts tool definitions in place.
type ToolBindableModel interface {
	einomodel.BaseChatModel
	BindTools(tools []*schema.ToolInfo) error
}

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	LLM     model.LLMConfig
	Router  *model.RouterModelConfig
	Utility *model.UtilityModelConfig
}

// ChatModels holds the router (tool-calling) and utility (single-shot) models.
type ChatModels struct {
	Router           ToolBindableModel
	Utility          einomodel.BaseChatModel
	RouterModelName  string
	UtilityModelName string
}

// NewChatModels creates both chat models for the configured provider.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Router == nil || config.Utility == nil {
		return nil, fmt.Errorf("model configs are nil")
	}
	if err := config.LLM.Validate(); err != nil {
		return nil, err
	}

	switch config.LLM.Provider {
	case model.ProviderOpenAI:
		return &ChatModels{
			Router: NewOpenAIChatModel(OpenAIConfig{
				APIKey: config.LLM.OpenAIAPIKey, BaseURL: config.LLM.OpenAIBaseURL,
				Model: config.Router.Model, Temperature: config.Router.Temperature, MaxTokens: config.Router.MaxTokens,
			}),
			Utility: NewOpenAIChatModel(OpenAIConfig{
				APIKey: config.LLM.OpenAIAPIKey, BaseURL: config.LLM.OpenAIBaseURL,
				Model: config.Utility.Model, Temperature: config.Utility.Temperature, MaxTokens: config.Utility.MaxTokens,
			}),
			RouterModelName:  config.Router.Model,
			UtilityModelName: config.Utility.Model,
		}, nil
	default:
		return newGeminiChatModels(ctx, config)
	}
}

func newGeminiChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.LLM.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.LLM.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.LLM.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	router, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Router.Model,
		Temperature: &config.Router.Temperature,
		MaxTokens:   &config.Router.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating router model")
		return nil, fmt.Errorf("error creating router model: %w", err)
	}

	utility, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Utility.Model,
		Temperature: &config.Utility.Temperature,
		MaxTokens:   &config.Utility.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating utility model")
		return nil, fmt.Errorf("error creating utility model: %w", err)
	}

	return &ChatModels{
		Router:           router,
		Utility:          utility,
		RouterModelName:  config.Router.Model,
		UtilityModelName: config.Utility.Model,
	}, nil
}

// BindToolsToRouterModel binds the capability tools to the router model.
func (cm *ChatModels) BindToolsToRouterModel(ctx context.Context, tools []*schema.ToolInfo) error {
	if err := cm.Router.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	logx.Debug().Int("tool_count", len(tools)).Msg("Successfully bound tools to router model")
	return nil
}
