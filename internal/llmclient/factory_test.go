// File: internal/llmclient/factory_test.go
package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkpilot/internal/config"
)

func TestNewClientGemini(t *testing.T) {
	cfg := config.LLMConfig{
		Provider:   ProviderGemini,
		APIKey:     "test-key",
		Model:      "gemini-2.0-flash",
		APITimeout: 30 * time.Second,
	}

	client, err := NewClient(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, client)
}

func TestNewClientUnknownProvider(t *testing.T) {
	cfg := config.LLMConfig{Provider: "carrier-pigeon", APIKey: "k"}

	_, err := NewClient(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), config.LLMConfig{Model: "gemini-2.0-flash"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}
