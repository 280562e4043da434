package ai

import (
	"context"
	"strings"
	"testing"
)

type testAIConfig struct {
	provider    string
	geminiKey   string
	moonshotKey string
}

func (c testAIConfig) GetAIProvider() string     { return c.provider }
func (c testAIConfig) GetGeminiAPIKey() string   { return c.geminiKey }
func (c testAIConfig) GetGeminiModel() string    { return "gemini-test" }
func (c testAIConfig) GetMoonshotAPIKey() string { return c.moonshotKey }
func (c testAIConfig) GetMoonshotModel() string  { return "kimi-test" }

func TestNewLLMMoonshot(t *testing.T) {
	llm, err := NewLLM(context.Background(), testAIConfig{provider: ProviderMoonshot, moonshotKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.Name() != "kimi-test" {
		t.Fatalf("unexpected model name %q", llm.Name())
	}
}

func TestNewLLMRequiresKeys(t *testing.T) {
	for _, cfg := range []testAIConfig{
		{provider: ProviderGemini},
		{provider: ProviderMoonshot},
	} {
		if _, err := NewLLM(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "API_KEY") {
			t.Fatalf("provider %q without key: expected key error, got %v", cfg.provider, err)
		}
	}

	if _, err := NewLLM(context.Background(), testAIConfig{provider: "openai"}); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
}
