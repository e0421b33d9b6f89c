package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with production defaults. The numbers mirror
// the clinic's tuned values: 4s quiet window, 12-message history, 500
// replies/day, 3-strike failure threshold, Bogotá calendar.
func Default() *Config {
	return &Config{
		WhatsApp: WhatsAppConfig{
			BridgeURL: "ws://localhost:8765",
		},
		OpenAI: OpenAIConfig{
			Model:           "gpt-4o-mini",
			TranscribeModel: "whisper-1",
			MaxTokens:       250,
			Temperature:     0.7,
		},
		Pipeline: PipelineConfig{
			QuietWindowMS:    4000,
			HistoryLimit:     12,
			DailyLimit:       500,
			FailureThreshold: 3,
			Timezone:         "America/Bogota",
		},
		Health: HealthConfig{
			Port: 3000,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is not an error: defaults plus env are a complete configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	envStr("DENTASSIST_OPENAI_API_KEY", &c.OpenAI.APIKey)
	envStr("DENTASSIST_OPENAI_API_BASE", &c.OpenAI.APIBase)
	envStr("DENTASSIST_MODEL", &c.OpenAI.Model)
	envStr("DENTASSIST_BRIDGE_URL", &c.WhatsApp.BridgeURL)
	envStr("DENTASSIST_OPERATOR_JID", &c.WhatsApp.OperatorJID)
	envStr("DENTASSIST_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("DENTASSIST_TIMEZONE", &c.Pipeline.Timezone)
	envInt("DENTASSIST_DAILY_LIMIT", &c.Pipeline.DailyLimit)
	envInt("DENTASSIST_QUIET_WINDOW_MS", &c.Pipeline.QuietWindowMS)
	envInt("PORT", &c.Health.Port)
}

// Validate checks the configuration is complete enough to serve.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("missing OpenAI API key (set DENTASSIST_OPENAI_API_KEY)")
	}
	if c.WhatsApp.BridgeURL == "" {
		return fmt.Errorf("missing whatsapp.bridge_url")
	}
	if c.WhatsApp.OperatorJID == "" {
		return fmt.Errorf("missing whatsapp.operator_jid (coordinator notification target)")
	}
	if c.Pipeline.QuietWindowMS <= 0 {
		return fmt.Errorf("pipeline.quiet_window_ms must be positive")
	}
	return nil
}
