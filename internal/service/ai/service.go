package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"filesorter/internal/config"
)

const (
	claudeMaxTokens    = 4096
	defaultOpenAIModel = "gpt-4o-mini"
	defaultClaudeModel = "claude-3-5-haiku-latest"
)

// NewGenAIClient builds the Gemini API client shared by the summarizer and,
// when the classifier provider is gemini, by the classifier as well.
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// chatModelName picks the configured model for the classifier provider, or
// that provider's default.
func chatModelName(cfg *config.Config) string {
	if name := cfg.Providers[cfg.ClassifierProvider].Model; name != "" {
		return name
	}
	switch cfg.ClassifierProvider {
	case config.ProviderGemini:
		if cfg.SummarizerModel != "" {
			return cfg.SummarizerModel
		}
		return DefaultModel
	case config.ProviderOpenAI:
		return defaultOpenAIModel
	case config.ProviderClaude:
		return defaultClaudeModel
	default:
		return ""
	}
}

// NewChatModel returns the chat model for the configured classifier provider.
func NewChatModel(ctx context.Context, cfg *config.Config, client *genai.Client) (model.BaseChatModel, error) {
	provider := cfg.ClassifierProvider
	provCfg := cfg.Providers[provider]
	modelName := chatModelName(cfg)

	switch provider {
	case config.ProviderGemini:
		if client == nil {
			return nil, errors.New("gemini chat model needs a genai client")
		}
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini chat model: %w", err)
		}
		return cm, nil
	case config.ProviderOpenAI:
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai chat model: %w", err)
		}
		return cm, nil
	case config.ProviderClaude:
		var baseURL *string
		if provCfg.BaseURL != "" {
			baseURL = &provCfg.BaseURL
		}
		cm, err := claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelName,
			BaseURL:   baseURL,
			MaxTokens: claudeMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init claude chat model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}
