// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration. Populated from
// config.yaml plus LINKPILOT_* environment overrides.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	LinkedIn  LinkedInConfig  `mapstructure:"linkedin" yaml:"linkedin"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Content   ContentConfig   `mapstructure:"content" yaml:"content"`
	Quota     QuotaConfig     `mapstructure:"quota" yaml:"quota"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
}

// LoggerConfig controls the zap logger and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig locates the sqlite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// BrowserConfig controls the headless Chrome session.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	CookieFile     string        `mapstructure:"cookie_file" yaml:"cookie_file"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationWait time.Duration `mapstructure:"navigation_wait" yaml:"navigation_wait"`
}

// LinkedInConfig holds the account credentials. Both values come from
// the environment (LINKPILOT_LINKEDIN_EMAIL / LINKPILOT_LINKEDIN_PASSWORD)
// in any sane deployment.
type LinkedInConfig struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"-"`
	UserID   string `mapstructure:"user_id" yaml:"user_id"`
}

// LLMConfig selects and parameterizes the generation provider.
type LLMConfig struct {
	Provider   string        `mapstructure:"provider" yaml:"provider"`
	APIKey     string        `mapstructure:"api_key" yaml:"-"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// ContentConfig tunes generation behavior.
type ContentConfig struct {
	Topics            []string `mapstructure:"topics" yaml:"topics"`
	Style             string   `mapstructure:"style" yaml:"style"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// QuotaRule is one ceiling over one rolling window.
type QuotaRule struct {
	Ceiling int           `mapstructure:"ceiling" yaml:"ceiling"`
	Window  time.Duration `mapstructure:"window" yaml:"window"`
}

// QuotaConfig maps action types to their rate ceilings.
type QuotaConfig struct {
	ConnectionRequest QuotaRule `mapstructure:"connection_request" yaml:"connection_request"`
	Post              QuotaRule `mapstructure:"post" yaml:"post"`
	Like              QuotaRule `mapstructure:"like" yaml:"like"`
	Comment           QuotaRule `mapstructure:"comment" yaml:"comment"`
	Reply             QuotaRule `mapstructure:"reply" yaml:"reply"`
}

// SchedulerConfig holds the cron expressions and batch limits for the
// five triggers.
type SchedulerConfig struct {
	PostSchedulingCron  string `mapstructure:"post_scheduling_cron" yaml:"post_scheduling_cron"`
	PostPublishingCron  string `mapstructure:"post_publishing_cron" yaml:"post_publishing_cron"`
	InteractionsCron    string `mapstructure:"interactions_cron" yaml:"interactions_cron"`
	ConnectionBatchCron string `mapstructure:"connection_batch_cron" yaml:"connection_batch_cron"`
	CommentWatchCron    string `mapstructure:"comment_watch_cron" yaml:"comment_watch_cron"`

	MaxDraftsPerWeek   int     `mapstructure:"max_drafts_per_week" yaml:"max_drafts_per_week"`
	InteractionBatch   int     `mapstructure:"interaction_batch" yaml:"interaction_batch"`
	EnablePosting      bool    `mapstructure:"enable_posting" yaml:"enable_posting"`
	EnableInteractions bool    `mapstructure:"enable_interactions" yaml:"enable_interactions"`
	EnableConnections  bool    `mapstructure:"enable_connections" yaml:"enable_connections"`
	EnableCommentWatch bool    `mapstructure:"enable_comment_watch" yaml:"enable_comment_watch"`
	LikeProbability    float64 `mapstructure:"like_probability" yaml:"like_probability"`
	CommentProbability float64 `mapstructure:"comment_probability" yaml:"comment_probability"`
}

// SetDefaults registers every configuration default on the viper
// instance. Called once before the config file is read.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "linkpilot")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", true)

	v.SetDefault("database.path", "linkpilot.db")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.cookie_file", "cookies.json")
	v.SetDefault("browser.action_timeout", 15*time.Second)
	v.SetDefault("browser.navigation_wait", 30*time.Second)

	v.SetDefault("linkedin.email", "")
	v.SetDefault("linkedin.password", "")
	v.SetDefault("linkedin.user_id", "default")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_timeout", 60*time.Second)

	v.SetDefault("content.topics", []string{})
	v.SetDefault("content.style", "professional")
	v.SetDefault("content.requests_per_minute", 0)

	v.SetDefault("quota.connection_request.ceiling", 39)
	v.SetDefault("quota.connection_request.window", 24*time.Hour)
	v.SetDefault("quota.post.ceiling", 4)
	v.SetDefault("quota.post.window", 7*24*time.Hour)
	v.SetDefault("quota.like.ceiling", 20)
	v.SetDefault("quota.like.window", time.Hour)
	v.SetDefault("quota.comment.ceiling", 20)
	v.SetDefault("quota.comment.window", time.Hour)
	v.SetDefault("quota.reply.ceiling", 10)
	v.SetDefault("quota.reply.window", time.Hour)

	v.SetDefault("scheduler.post_scheduling_cron", "0 9 * * 1-5")
	v.SetDefault("scheduler.post_publishing_cron", "*/15 * * * *")
	v.SetDefault("scheduler.interactions_cron", "*/30 * * * *")
	v.SetDefault("scheduler.connection_batch_cron", "0 */2 * * *")
	v.SetDefault("scheduler.comment_watch_cron", "0 * * * *")
	v.SetDefault("scheduler.max_drafts_per_week", 4)
	v.SetDefault("scheduler.interaction_batch", 5)
	v.SetDefault("scheduler.enable_posting", true)
	v.SetDefault("scheduler.enable_interactions", true)
	v.SetDefault("scheduler.enable_connections", true)
	v.SetDefault("scheduler.enable_comment_watch", true)
	v.SetDefault("scheduler.like_probability", 0.8)
	v.SetDefault("scheduler.comment_probability", 0.3)
}

// NewConfigFromViper unmarshals a populated viper instance into Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the parts of the configuration that cannot be
// defaulted. A validation failure here is the only fatal startup path.
func (c *Config) Validate() error {
	if c.LinkedIn.Email == "" || c.LinkedIn.Password == "" {
		return fmt.Errorf("linkedin credentials are required (set LINKPILOT_LINKEDIN_EMAIL and LINKPILOT_LINKEDIN_PASSWORD)")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required (set LINKPILOT_LLM_API_KEY)")
	}
	if c.LLM.Provider != "gemini" {
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	if err := validateQuotaRule("connection_request", c.Quota.ConnectionRequest); err != nil {
		return err
	}
	if err := validateQuotaRule("post", c.Quota.Post); err != nil {
		return err
	}
	if err := validateQuotaRule("like", c.Quota.Like); err != nil {
		return err
	}
	if err := validateQuotaRule("comment", c.Quota.Comment); err != nil {
		return err
	}
	if err := validateQuotaRule("reply", c.Quota.Reply); err != nil {
		return err
	}
	if p := c.Scheduler.LikeProbability; p < 0 || p > 1 {
		return fmt.Errorf("scheduler.like_probability must be in [0,1], got %v", p)
	}
	if p := c.Scheduler.CommentProbability; p < 0 || p > 1 {
		return fmt.Errorf("scheduler.comment_probability must be in [0,1], got %v", p)
	}
	if c.Scheduler.InteractionBatch <= 0 {
		return fmt.Errorf("scheduler.interaction_batch must be positive, got %d", c.Scheduler.InteractionBatch)
	}
	return nil
}

func validateQuotaRule(name string, r QuotaRule) error {
	if r.Ceiling <= 0 {
		return fmt.Errorf("quota.%s.ceiling must be positive, got %d", name, r.Ceiling)
	}
	if r.Window <= 0 {
		return fmt.Errorf("quota.%s.window must be positive, got %s", name, r.Window)
	}
	return nil
}
