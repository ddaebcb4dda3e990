// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set("linkedin.email", "user@example.com")
	v.Set("linkedin.password", "hunter2")
	v.Set("llm.api_key", "test-key")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaultsProduceUsableConfig(t *testing.T) {
	cfg := newValidConfig(t)

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "linkpilot.db", cfg.Database.Path)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 15*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, "gemini", cfg.LLM.Provider)

	assert.Equal(t, 39, cfg.Quota.ConnectionRequest.Ceiling)
	assert.Equal(t, 24*time.Hour, cfg.Quota.ConnectionRequest.Window)
	assert.Equal(t, 4, cfg.Quota.Post.Ceiling)
	assert.Equal(t, 7*24*time.Hour, cfg.Quota.Post.Window)
	assert.Equal(t, 20, cfg.Quota.Like.Ceiling)
	assert.Equal(t, 10, cfg.Quota.Reply.Ceiling)

	assert.Equal(t, "0 9 * * 1-5", cfg.Scheduler.PostSchedulingCron)
	assert.Equal(t, "*/30 * * * *", cfg.Scheduler.InteractionsCron)
	assert.Equal(t, "0 */2 * * *", cfg.Scheduler.ConnectionBatchCron)
	assert.Equal(t, 5, cfg.Scheduler.InteractionBatch)
	assert.InDelta(t, 0.8, cfg.Scheduler.LikeProbability, 1e-9)
	assert.InDelta(t, 0.3, cfg.Scheduler.CommentProbability, 1e-9)
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing linkedin email",
			mutate:  func(c *Config) { c.LinkedIn.Email = "" },
			wantErr: "linkedin credentials",
		},
		{
			name:    "missing linkedin password",
			mutate:  func(c *Config) { c.LinkedIn.Password = "" },
			wantErr: "linkedin credentials",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.LLM.APIKey = "" },
			wantErr: "llm api key",
		},
		{
			name:    "unsupported provider",
			mutate:  func(c *Config) { c.LLM.Provider = "llama-on-a-floppy" },
			wantErr: "unsupported llm provider",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newValidConfig(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateRejectsBadQuotaRules(t *testing.T) {
	cfg := newValidConfig(t)
	cfg.Quota.Like.Ceiling = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota.like.ceiling")

	cfg = newValidConfig(t)
	cfg.Quota.Post.Window = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota.post.window")
}

func TestValidateRejectsBadProbabilities(t *testing.T) {
	cfg := newValidConfig(t)
	cfg.Scheduler.LikeProbability = 1.5
	require.Error(t, cfg.Validate())

	cfg = newValidConfig(t)
	cfg.Scheduler.CommentProbability = -0.1
	require.Error(t, cfg.Validate())
}

func TestEnvOverrideWinsOverDefault(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("scheduler.interaction_batch", 9)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Scheduler.InteractionBatch)
}
