package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"

	"filesorter/internal/config"
)

func testConfig(provider string, providers map[string]config.ProviderConfig) *config.Config {
	return &config.Config{
		Providers:          providers,
		SummarizerModel:    "gemini-2.5-flash",
		ClassifierProvider: provider,
	}
}

func TestNewChatModelProviderSwitch(t *testing.T) {
	ctx := context.Background()
	client, err := NewGenAIClient(ctx, "fake-gemini-key")
	if err != nil {
		t.Fatalf("genai client: %v", err)
	}
	providers := map[string]config.ProviderConfig{
		config.ProviderGemini: {APIKey: "fake-gemini-key"},
		config.ProviderOpenAI: {APIKey: "sk-fake"},
		config.ProviderClaude: {APIKey: "sk-ant-fake"},
	}

	cases := []struct {
		provider string
		check    func(any) bool
	}{
		{config.ProviderGemini, func(m any) bool { _, ok := m.(*gemini.ChatModel); return ok }},
		{config.ProviderOpenAI, func(m any) bool { _, ok := m.(*openai.ChatModel); return ok }},
		{config.ProviderClaude, func(m any) bool { _, ok := m.(*claude.ChatModel); return ok }},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			cm, err := NewChatModel(ctx, testConfig(tc.provider, providers), client)
			if err != nil {
				t.Fatalf("new chat model: %v", err)
			}
			if !tc.check(cm) {
				t.Fatalf("unexpected chat model type %T", cm)
			}
		})
	}

	_, err = NewChatModel(ctx, testConfig("bogus", providers), client)
	if err == nil || !strings.Contains(err.Error(), "invalid provider: bogus") {
		t.Fatalf("expected invalid provider error, got %v", err)
	}

	if _, err := NewChatModel(ctx, testConfig(config.ProviderGemini, providers), nil); err == nil {
		t.Fatalf("expected error for gemini without a client")
	}
}

func TestChatModelNameFallbacks(t *testing.T) {
	cases := []struct {
		name      string
		provider  string
		providers map[string]config.ProviderConfig
		want      string
	}{
		{"gemini uses summarizer model", config.ProviderGemini, nil, "gemini-2.5-flash"},
		{"openai default", config.ProviderOpenAI, nil, defaultOpenAIModel},
		{"claude default", config.ProviderClaude, nil, defaultClaudeModel},
		{"configured model wins", config.ProviderOpenAI,
			map[string]config.ProviderConfig{config.ProviderOpenAI: {Model: "gpt-4o"}}, "gpt-4o"},
		{"unknown provider", "bogus", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := chatModelName(testConfig(tc.provider, tc.providers)); got != tc.want {
				t.Fatalf("chatModelName = %q, want %q", got, tc.want)
			}
		})
	}

	cfg := testConfig(config.ProviderGemini, nil)
	cfg.SummarizerModel = ""
	if got := chatModelName(cfg); got != DefaultModel {
		t.Fatalf("empty summarizer model should fall back to %q, got %q", DefaultModel, got)
	}
}
