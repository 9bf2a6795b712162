package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Storage  StorageConfig  `json:"storage"`
	Relay    RelayConfig    `json:"relay"`
	Channels ChannelsConfig `json:"channels"`
}

type StorageConfig struct {
	// Dir holds rules.json, pending.json and webhooks.json.
	Dir string `env:"RELAYCLAW_STORAGE_DIR" json:"dir"`
}

type RelayConfig struct {
	PendingTTLHours    int    `env:"RELAYCLAW_RELAY_PENDING_TTL_HOURS"    json:"pending_ttl_hours"`
	SweepSchedule      string `env:"RELAYCLAW_RELAY_SWEEP_SCHEDULE"       json:"sweep_schedule"` // cron expression
	SendTimeoutSeconds int    `env:"RELAYCLAW_RELAY_SEND_TIMEOUT_SECONDS" json:"send_timeout_seconds"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Slack    SlackConfig    `json:"slack"`
	OneBot   OneBotConfig   `json:"onebot"`
	Console  ConsoleConfig  `json:"console"`
}

type TelegramConfig struct {
	Enabled   bool                `env:"RELAYCLAW_CHANNELS_TELEGRAM_ENABLED"    json:"enabled"`
	Token     string              `env:"RELAYCLAW_CHANNELS_TELEGRAM_TOKEN"      json:"token"`
	AllowFrom FlexibleStringSlice `env:"RELAYCLAW_CHANNELS_TELEGRAM_ALLOW_FROM" json:"allow_from"`
}

type DiscordConfig struct {
	Enabled   bool                `env:"RELAYCLAW_CHANNELS_DISCORD_ENABLED"    json:"enabled"`
	Token     string              `env:"RELAYCLAW_CHANNELS_DISCORD_TOKEN"      json:"token"`
	AllowFrom FlexibleStringSlice `env:"RELAYCLAW_CHANNELS_DISCORD_ALLOW_FROM" json:"allow_from"`
}

type SlackConfig struct {
	Enabled   bool                `env:"RELAYCLAW_CHANNELS_SLACK_ENABLED"    json:"enabled"`
	BotToken  string              `env:"RELAYCLAW_CHANNELS_SLACK_BOT_TOKEN"  json:"bot_token"`
	AppToken  string              `env:"RELAYCLAW_CHANNELS_SLACK_APP_TOKEN"  json:"app_token"`
	AllowFrom FlexibleStringSlice `env:"RELAYCLAW_CHANNELS_SLACK_ALLOW_FROM" json:"allow_from"`
}

type OneBotConfig struct {
	Enabled           bool                `env:"RELAYCLAW_CHANNELS_ONEBOT_ENABLED"            json:"enabled"`
	WSUrl             string              `env:"RELAYCLAW_CHANNELS_ONEBOT_WS_URL"             json:"ws_url"`
	AccessToken       string              `env:"RELAYCLAW_CHANNELS_ONEBOT_ACCESS_TOKEN"       json:"access_token"`
	ReconnectInterval int                 `env:"RELAYCLAW_CHANNELS_ONEBOT_RECONNECT_INTERVAL" json:"reconnect_interval"`
	AllowFrom         FlexibleStringSlice `env:"RELAYCLAW_CHANNELS_ONEBOT_ALLOW_FROM"         json:"allow_from"`
}

type ConsoleConfig struct {
	Enabled bool `env:"RELAYCLAW_CHANNELS_CONSOLE_ENABLED" json:"enabled"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir: "~/.relayclaw/data",
		},
		Relay: RelayConfig{
			PendingTTLHours:    24,
			SweepSchedule:      "*/10 * * * *",
			SendTimeoutSeconds: 30,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// StorageDir returns the storage directory with ~ expanded.
func (c *Config) StorageDir() string {
	return expandHome(c.Storage.Dir)
}

func (c *Config) RulesPath() string    { return filepath.Join(c.StorageDir(), "rules.json") }
func (c *Config) PendingPath() string  { return filepath.Join(c.StorageDir(), "pending.json") }
func (c *Config) WebhooksPath() string { return filepath.Join(c.StorageDir(), "webhooks.json") }

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
