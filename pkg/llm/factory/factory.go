package factory

import (
	"context"
	"fmt"

	"sam-chat-be/pkg/llm"
	"sam-chat-be/pkg/llm/gemini"
	"sam-chat-be/pkg/llm/ollama"
)

type ProviderConfig struct {
	Provider   string // "gemini" | "ollama"
	APIKey     string
	Model      string
	ImageModel string
	BaseURL    string
}

func NewStreamClient(ctx context.Context, cfg ProviderConfig) (llm.StreamClient, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cfg.ImageModel)
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
