// Package config handles configuration loading for FinBrief.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	News     NewsConfig     `mapstructure:"news"     yaml:"news"`
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Bot      BotConfig      `mapstructure:"bot"      yaml:"bot"`
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// TelegramConfig holds the Bot API connection settings.
type TelegramConfig struct {
	Token      string `mapstructure:"token"       yaml:"token"`
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"` // public URL, registered by serve --register
}

// NewsConfig holds the headline source settings.
type NewsConfig struct {
	APIKey   string   `mapstructure:"api_key"  yaml:"api_key"`  // NewsAPI.org key; RSS works without one
	Category string   `mapstructure:"category" yaml:"category"` // NewsAPI top-headlines category
	RSSFeeds []string `mapstructure:"rss_feeds" yaml:"rss_feeds"`
}

// LLMConfig holds summarization provider configuration.
type LLMConfig struct {
	Primary      string `mapstructure:"primary"       yaml:"primary"` // "openai" or "anthropic"
	OpenAIKey    string `mapstructure:"openai_key"    yaml:"openai_key"`
	AnthropicKey string `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	Model        string `mapstructure:"model"         yaml:"model"`
}

// BotConfig holds dispatcher tuning knobs.
type BotConfig struct {
	HeadlineLimit int `mapstructure:"headline_limit" yaml:"headline_limit"`
	SendDelayMs   int `mapstructure:"send_delay_ms"  yaml:"send_delay_ms"`
}

// ServerConfig holds webhook HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.finbrief/config.yaml (home directory)
//  3. /etc/finbrief/config.yaml (system)
//
// Environment variables override config file values.
// Format: FINBRIEF_<SECTION>_<KEY>, e.g., FINBRIEF_TELEGRAM_TOKEN
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".finbrief"))
	v.AddConfigPath("/etc/finbrief")

	v.SetEnvPrefix("FINBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("FINBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// News defaults
	v.SetDefault("news.category", "technology")
	v.SetDefault("news.rss_feeds", []string{})

	// LLM defaults
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.model", "")

	// Bot defaults
	v.SetDefault("bot.headline_limit", 5)
	v.SetDefault("bot.send_delay_ms", 550)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if tok := os.Getenv("FINBRIEF_TELEGRAM_TOKEN"); tok != "" {
		cfg.Telegram.Token = tok
	}
	if key := os.Getenv("FINBRIEF_NEWS_API_KEY"); key != "" {
		cfg.News.APIKey = key
	}
	if key := os.Getenv("FINBRIEF_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("FINBRIEF_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
