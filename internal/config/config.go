// Package config loads and validates daemon configuration. Policy data
// (prohibited topics, escalation triggers, thresholds, length bounds) is
// loaded once here and held immutable by the components that consume it;
// reload is out of scope.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level deskd configuration.
type Config struct {
	Daemon     DaemonConfig    `json:"daemon" yaml:"daemon"`
	Provider   ProviderConfig  `json:"provider" yaml:"provider"`
	Search     SearchConfig    `json:"search" yaml:"search"`
	Guardrails GuardrailConfig `json:"guardrails" yaml:"guardrails"`
	Metrics    MetricsConfig   `json:"metrics" yaml:"metrics"`
	Connectors ConnectorConfig `json:"connectors" yaml:"connectors"`
	API        APIConfig       `json:"api" yaml:"api"`
}

// DaemonConfig holds daemon-level settings.
type DaemonConfig struct {
	ID      string `json:"id" yaml:"id"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ProviderConfig holds completion provider settings. A missing API key is
// a fatal configuration error at startup, never a per-call fallback.
type ProviderConfig struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"` // "openai" (default) or "anthropic"
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model" yaml:"model"`
}

// SearchConfig holds web search settings. An empty key disables search
// gracefully (the client returns placeholders).
type SearchConfig struct {
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty"`
}

// GuardrailConfig holds the policy data for the guardrail pipeline.
type GuardrailConfig struct {
	ProhibitedTopics    []string `json:"prohibited_topics" yaml:"prohibited_topics"`
	EscalationTriggers  []string `json:"escalation_triggers" yaml:"escalation_triggers"`
	ConfidenceThreshold float64  `json:"confidence_threshold" yaml:"confidence_threshold"`
	MinResponseLength   int      `json:"min_response_length" yaml:"min_response_length"`
	MaxResponseLength   int      `json:"max_response_length" yaml:"max_response_length"`
}

// MetricsConfig holds metrics persistence and export settings.
type MetricsConfig struct {
	ExportPath     string `json:"export_path,omitempty" yaml:"export_path,omitempty"`
	ExportSchedule string `json:"export_schedule,omitempty" yaml:"export_schedule,omitempty"` // cron expression
	Persist        bool   `json:"persist,omitempty" yaml:"persist,omitempty"`
}

// ConnectorConfig holds settings for external intake connectors.
type ConnectorConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty" yaml:"slack,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token" yaml:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty" yaml:"allow_from,omitempty"`
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	BotToken string   `json:"bot_token" yaml:"bot_token"`
	AppToken string   `json:"app_token" yaml:"app_token"`
	Channels []string `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	Key  string `json:"api_key" yaml:"api_key"`
}

// Default policy applied when the config leaves guardrail fields unset.
var (
	defaultProhibitedTopics = []string{
		"legal advice",
		"medical advice",
		"investment advice",
		"password sharing",
	}
	defaultEscalationTriggers = []string{
		"lawyer",
		"lawsuit",
		"legal action",
		"sue",
		"attorney",
	}
)

const (
	defaultConfidenceThreshold = 0.5
	defaultMinResponseLength   = 20
	defaultMaxResponseLength   = 2000
)

// Load reads configuration from a JSON or YAML file, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with the DESKD_
// prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Daemon: DaemonConfig{
			ID:      getenv("DESKD_ID", "default"),
			DataDir: getenv("DESKD_DATA_DIR", "./data"),
		},
		Search: SearchConfig{
			BraveAPIKey: os.Getenv("DESKD_BRAVE_API_KEY"),
		},
		Metrics: MetricsConfig{
			ExportPath:     getenv("DESKD_METRICS_EXPORT_PATH", "metrics_log.json"),
			ExportSchedule: os.Getenv("DESKD_METRICS_EXPORT_SCHEDULE"),
			Persist:        os.Getenv("DESKD_METRICS_PERSIST") == "true",
		},
		API: APIConfig{
			Host: getenv("DESKD_API_HOST", "0.0.0.0"),
			Port: getenvInt("DESKD_API_PORT", 8080),
			Key:  os.Getenv("DESKD_API_KEY"),
		},
	}

	if apiKey := os.Getenv("DESKD_ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.Provider = ProviderConfig{
			Type:   "anthropic",
			APIKey: apiKey,
			Model:  getenv("DESKD_MODEL", "claude-sonnet-4-20250514"),
		}
	} else if apiKey := os.Getenv("DESKD_GROQ_API_KEY"); apiKey != "" {
		cfg.Provider = ProviderConfig{
			Type:   "openai",
			APIKey: apiKey,
			Model:  getenv("DESKD_MODEL", "llama-3.3-70b-versatile"),
		}
	} else if apiKey := os.Getenv("DESKD_OPENAI_API_KEY"); apiKey != "" {
		cfg.Provider = ProviderConfig{
			Type:    "openai",
			APIKey:  apiKey,
			BaseURL: os.Getenv("DESKD_OPENAI_BASE_URL"),
			Model:   getenv("DESKD_MODEL", "gpt-4o"),
		}
	}

	if token := os.Getenv("DESKD_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("DESKD_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: DESKD_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
	}
	if botToken := os.Getenv("DESKD_SLACK_BOT_TOKEN"); botToken != "" {
		cfg.Connectors.Slack = &SlackConfig{
			BotToken: botToken,
			AppToken: os.Getenv("DESKD_SLACK_APP_TOKEN"),
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with the default policy.
func (c *Config) ApplyDefaults() {
	if c.Daemon.ID == "" {
		c.Daemon.ID = "default"
	}
	if c.Daemon.DataDir == "" {
		c.Daemon.DataDir = "./data"
	}
	if len(c.Guardrails.ProhibitedTopics) == 0 {
		c.Guardrails.ProhibitedTopics = append([]string(nil), defaultProhibitedTopics...)
	}
	if len(c.Guardrails.EscalationTriggers) == 0 {
		c.Guardrails.EscalationTriggers = append([]string(nil), defaultEscalationTriggers...)
	}
	if c.Guardrails.ConfidenceThreshold == 0 {
		c.Guardrails.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.Guardrails.MinResponseLength == 0 {
		c.Guardrails.MinResponseLength = defaultMinResponseLength
	}
	if c.Guardrails.MaxResponseLength == 0 {
		c.Guardrails.MaxResponseLength = defaultMaxResponseLength
	}
	if c.Metrics.ExportPath == "" {
		c.Metrics.ExportPath = "metrics_log.json"
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
}

// Validate checks for required fields and coherent policy bounds.
func (c *Config) Validate() error {
	var errs []string

	if c.Provider.APIKey == "" {
		errs = append(errs, "provider.api_key is required")
	}
	if c.Provider.Model == "" {
		errs = append(errs, "provider.model is required")
	}
	switch c.Provider.Type {
	case "", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("provider.type %q is not supported", c.Provider.Type))
	}

	if c.Guardrails.ConfidenceThreshold < 0 || c.Guardrails.ConfidenceThreshold > 1 {
		errs = append(errs, "guardrails.confidence_threshold must be in [0, 1]")
	}
	if c.Guardrails.MinResponseLength < 0 {
		errs = append(errs, "guardrails.min_response_length must be non-negative")
	}
	if c.Guardrails.MinResponseLength >= c.Guardrails.MaxResponseLength {
		errs = append(errs, "guardrails.min_response_length must be below max_response_length")
	}

	if c.Connectors.Telegram != nil && c.Connectors.Telegram.Token == "" {
		errs = append(errs, "connectors.telegram.token is required")
	}
	if c.Connectors.Slack != nil {
		if c.Connectors.Slack.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
		if c.Connectors.Slack.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		result = append(result, n)
	}
	return result, nil
}
