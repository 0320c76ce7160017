// Package config handles TOML configuration loading and path resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Line   LineConfig
	LLM    LLMConfig
	Sheets SheetsConfig
	Server ServerConfig
	Limits LimitsConfig
	Data   DataConfig
	Notify NotifyConfig
}

type LineConfig struct {
	ChannelSecret string `toml:"channel_secret"`
	ChannelToken  string `toml:"channel_token"`
}

type LLMConfig struct {
	OpenAIKey             string `toml:"openai_key"`
	Model                 string `toml:"model"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

type SheetsConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	UserDataID      string `toml:"user_data_id"`
	TemplatesID     string `toml:"templates_id"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LimitsConfig struct {
	FreeDailyCap int `toml:"free_daily_cap"`
}

type DataConfig struct {
	FeedbackDir string `toml:"feedback_dir"`
	LogDBPath   string `toml:"log_db_path"`
}

type NotifyConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Secrets may come from the environment instead of the file.
	if v := os.Getenv("LINE_CHANNEL_SECRET"); v != "" {
		cfg.Line.ChannelSecret = v
	}
	if v := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"); v != "" {
		cfg.Line.ChannelToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Sheets.CredentialsFile = v
	}

	// Apply defaults
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.RequestTimeoutSeconds == 0 {
		cfg.LLM.RequestTimeoutSeconds = 60
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Limits.FreeDailyCap == 0 {
		cfg.Limits.FreeDailyCap = 3
	}
	if cfg.Data.FeedbackDir == "" {
		cfg.Data.FeedbackDir = "feedback"
	}
	if cfg.Data.LogDBPath == "" {
		cfg.Data.LogDBPath = "data/logs.db"
	}
	if cfg.Notify.IntervalSeconds == 0 {
		cfg.Notify.IntervalSeconds = 60
	}

	// Validate required fields
	if cfg.Line.ChannelSecret == "" {
		return nil, fmt.Errorf("line.channel_secret is required")
	}
	if cfg.Line.ChannelToken == "" {
		return nil, fmt.Errorf("line.channel_token is required")
	}
	if cfg.LLM.OpenAIKey == "" {
		return nil, fmt.Errorf("llm.openai_key is required")
	}
	if cfg.Sheets.UserDataID == "" {
		return nil, fmt.Errorf("sheets.user_data_id is required")
	}
	if cfg.Sheets.TemplatesID == "" {
		return nil, fmt.Errorf("sheets.templates_id is required")
	}

	return &cfg, nil
}

// Resolve returns the config file path from HIMEKURI_CONFIG env var, falling
// back to ~/.config/himekuri/config.toml. The --config CLI flag is handled
// separately in main.go.
func Resolve() string {
	path := os.Getenv("HIMEKURI_CONFIG")
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".config", "himekuri", "config.toml")
	}
	path = os.ExpandEnv(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
