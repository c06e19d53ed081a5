package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	// Unset any env vars that would interfere
	envVars := []string{
		"FINBRIEF_TELEGRAM_TOKEN", "FINBRIEF_NEWS_API_KEY",
		"FINBRIEF_LLM_OPENAI_KEY", "FINBRIEF_LLM_ANTHROPIC_KEY",
	}
	for _, e := range envVars {
		os.Unsetenv(e)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// News defaults
	if cfg.News.Category != "technology" {
		t.Errorf("News.Category: got %q, want %q", cfg.News.Category, "technology")
	}

	// LLM defaults
	if cfg.LLM.Primary != "openai" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "openai")
	}

	// Bot defaults
	if cfg.Bot.HeadlineLimit != 5 {
		t.Errorf("Bot.HeadlineLimit: got %d, want 5", cfg.Bot.HeadlineLimit)
	}
	if cfg.Bot.SendDelayMs != 550 {
		t.Errorf("Bot.SendDelayMs: got %d, want 550", cfg.Bot.SendDelayMs)
	}

	// Server defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host: got %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port: got %d, want 8080", cfg.Server.Port)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
telegram:
  token: "123:FILE_TOKEN"
news:
  api_key: "news-key-from-file"
  category: "business"
  rss_feeds:
    - "https://example.com/feed.xml"
llm:
  primary: "anthropic"
bot:
  headline_limit: 8
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	os.Unsetenv("FINBRIEF_TELEGRAM_TOKEN")
	os.Unsetenv("FINBRIEF_NEWS_API_KEY")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if cfg.Telegram.Token != "123:FILE_TOKEN" {
		t.Errorf("Telegram.Token: got %q", cfg.Telegram.Token)
	}
	if cfg.News.APIKey != "news-key-from-file" {
		t.Errorf("News.APIKey: got %q", cfg.News.APIKey)
	}
	if cfg.News.Category != "business" {
		t.Errorf("News.Category: got %q, want %q", cfg.News.Category, "business")
	}
	if len(cfg.News.RSSFeeds) != 1 || cfg.News.RSSFeeds[0] != "https://example.com/feed.xml" {
		t.Errorf("News.RSSFeeds: got %v", cfg.News.RSSFeeds)
	}
	if cfg.LLM.Primary != "anthropic" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "anthropic")
	}
	if cfg.Bot.HeadlineLimit != 8 {
		t.Errorf("Bot.HeadlineLimit: got %d, want 8", cfg.Bot.HeadlineLimit)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port: got %d, want 9090", cfg.Server.Port)
	}

	// Unset values keep their defaults
	if cfg.Bot.SendDelayMs != 550 {
		t.Errorf("Bot.SendDelayMs: got %d, want default 550", cfg.Bot.SendDelayMs)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

// ── Environment overrides ──

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("FINBRIEF_TELEGRAM_TOKEN", "123:ENV_TOKEN")
	t.Setenv("FINBRIEF_LLM_OPENAI_KEY", "sk-env-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.Token != "123:ENV_TOKEN" {
		t.Errorf("Telegram.Token: got %q, want env value", cfg.Telegram.Token)
	}
	if cfg.LLM.OpenAIKey != "sk-env-key" {
		t.Errorf("LLM.OpenAIKey: got %q, want env value", cfg.LLM.OpenAIKey)
	}
}

// ── Key status ──

func TestCheckAPIKeys(t *testing.T) {
	t.Setenv("FINBRIEF_TELEGRAM_TOKEN", "123456789:AAFakeTokenForTests")
	os.Unsetenv("FINBRIEF_NEWS_API_KEY")
	os.Unsetenv("FINBRIEF_LLM_OPENAI_KEY")
	os.Unsetenv("FINBRIEF_LLM_ANTHROPIC_KEY")

	cfg := &Config{}
	cfg.Telegram.Token = os.Getenv("FINBRIEF_TELEGRAM_TOKEN")

	statuses := CheckAPIKeys(cfg)
	if len(statuses) != 4 {
		t.Fatalf("got %d key statuses, want 4", len(statuses))
	}

	byName := map[string]KeyStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}

	tok := byName["Telegram Bot Token"]
	if !tok.IsSet || tok.Source != KeySourceEnv {
		t.Errorf("token status = %+v, want set from env", tok)
	}
	if tok.Masked == "" || tok.Masked == cfg.Telegram.Token {
		t.Errorf("token must be masked, got %q", tok.Masked)
	}

	news := byName["NewsAPI Key"]
	if news.IsSet || news.Source != KeySourceNone {
		t.Errorf("news key status = %+v, want unset", news)
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("short"); got != "***" {
		t.Errorf("maskKey(short) = %q, want ***", got)
	}
	if got := maskKey("sk-1234567890abc"); got != "sk-...abc" {
		t.Errorf("maskKey = %q, want sk-...abc", got)
	}
}
