// Package ai selects the language model backend behind the claims gateway.
package ai

import (
	"context"
	"fmt"

	"claimdesk_backend/platform/ai/moonshot"
	"claimdesk_backend/platform/config"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

const (
	ProviderGemini   = "gemini"
	ProviderMoonshot = "moonshot"
)

// NewLLM builds the model configured by cfg.
func NewLLM(ctx context.Context, cfg config.AIConfig) (model.LLM, error) {
	switch cfg.GetAIProvider() {
	case ProviderGemini:
		if cfg.GetGeminiAPIKey() == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		llm, err := gemini.NewModel(ctx, cfg.GetGeminiModel(), &genai.ClientConfig{
			APIKey:  cfg.GetGeminiAPIKey(),
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}
		return llm, nil
	case ProviderMoonshot:
		if cfg.GetMoonshotAPIKey() == "" {
			return nil, fmt.Errorf("MOONSHOT_API_KEY is required for the moonshot provider")
		}
		return moonshot.NewModel(moonshot.Config{
			APIKey:          cfg.GetMoonshotAPIKey(),
			Model:           cfg.GetMoonshotModel(),
			DisableThinking: true,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.GetAIProvider())
	}
}
