// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"

	"github.com/pdiddy/chronos/pkg/types"
)

// NewBackend builds the backend selected by cfg.Provider.
func NewBackend(ctx context.Context, cfg types.AIConfig) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderGemini, "":
		return NewGeminiBackend(ctx, cfg.APIKey, cfg.Model)
	case types.ProviderOpenAI:
		return NewOpenAIBackend(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case types.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude API key is required")
		}
		return &ClaudeBackend{APIKey: cfg.APIKey, Model: cfg.Model, URL: cfg.BaseURL}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// SecretKey names the .secrets/ file holding the API key for a provider.
func SecretKey(p types.AIProvider) string {
	switch p {
	case types.ProviderOpenAI:
		return "openai-api-key"
	case types.ProviderClaude:
		return "anthropic-api-key"
	default:
		return "gemini-api-key"
	}
}
