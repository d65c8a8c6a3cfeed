package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// BotConfig holds the dispatch-engine settings every bot shares.
type BotConfig struct {
	// Prefix is the command prefix: a literal string, or a regular
	// expression when it contains regex metacharacters. Empty means no
	// prefix is required.
	Prefix string `yaml:"prefix" envconfig:"BOT_PREFIX"`
	// Owner is the platform identifier of the bot owner. Empty disables
	// owner-only commands and redirects failure reports to the self chat.
	Owner string `yaml:"owner" envconfig:"BOT_OWNER"`
	// SelfMode makes the engine process the bot's own outgoing messages.
	SelfMode bool `yaml:"self_mode" envconfig:"BOT_SELF_MODE"`

	DisabledCommands []string          `yaml:"disabled_commands"`
	Aliases          map[string]string `yaml:"aliases"`

	// SuggestLimit caps "did you mean" suggestions; 0 -> default.
	SuggestLimit int `yaml:"suggest_limit" envconfig:"BOT_SUGGEST_LIMIT"`
}

// TelegramConfig holds transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// SendRate caps outbound API calls per second; 0 -> default.
	SendRate float64 `yaml:"send_rate" envconfig:"TELEGRAM_SEND_RATE"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds the rate-limit section of the runtime surface.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"RATE_LIMIT_ENABLED"`
	// UserCooldownSeconds is the minimum interval between any two commands
	// from the same user.
	UserCooldownSeconds float64 `yaml:"user_cooldown_seconds" envconfig:"RATE_LIMIT_USER_COOLDOWN_SECONDS"`
	// CommandCooldownSeconds is the default per-(user,command) cooldown
	// for commands that do not specify their own.
	CommandCooldownSeconds float64 `yaml:"command_cooldown_seconds" envconfig:"RATE_LIMIT_COMMAND_COOLDOWN_SECONDS"`
	BurstLimit             int     `yaml:"burst_limit" envconfig:"RATE_LIMIT_BURST_LIMIT"`
	BurstWindowSeconds     float64 `yaml:"burst_window_seconds" envconfig:"RATE_LIMIT_BURST_WINDOW_SECONDS"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.RateLimit.UserCooldownSeconds < 0 ||
		cfg.RateLimit.CommandCooldownSeconds < 0 ||
		cfg.RateLimit.BurstWindowSeconds < 0 {
		return fmt.Errorf("rate_limit durations must be >= 0")
	}
	if cfg.RateLimit.BurstLimit < 0 {
		return fmt.Errorf("rate_limit.burst_limit must be >= 0")
	}
	if cfg.RateLimit.BurstLimit > 0 && cfg.RateLimit.BurstWindowSeconds == 0 {
		return fmt.Errorf("rate_limit.burst_window_seconds is required when burst_limit is set")
	}

	for alias, target := range cfg.Bot.Aliases {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(target) == "" {
			return fmt.Errorf("bot.aliases entries must have non-empty alias and target")
		}
	}

	return nil
}
