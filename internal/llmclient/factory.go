// File: internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"linkpilot/api/schemas"
	"linkpilot/internal/config"
)

// ProviderGemini is the only provider currently supported.
const ProviderGemini = "gemini"

// NewClient creates an LLMClient for the configured provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider: %q (supported: %s)", cfg.Provider, ProviderGemini)
	}
}
