// Package config holds the assistant's configuration: a JSON5 file overlaid
// with DENTASSIST_* environment variables. Secrets (API key, Postgres DSN)
// are env-only and never persisted to the config file.
package config

import "time"

// Config is the root configuration.
type Config struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	OpenAI   OpenAIConfig   `json:"openai"`
	Pipeline PipelineConfig `json:"pipeline"`
	Health   HealthConfig   `json:"health"`
	Database DatabaseConfig `json:"database,omitempty"`
}

// WhatsAppConfig configures the bridge transport and the operator channel.
type WhatsAppConfig struct {
	BridgeURL   string `json:"bridge_url"`
	OperatorJID string `json:"operator_jid"` // coordinator chat that receives handoff notifications
}

// OpenAIConfig configures the reply-generation gateway.
// APIKey comes from env DENTASSIST_OPENAI_API_KEY only.
type OpenAIConfig struct {
	APIKey          string `json:"-"`
	APIBase         string `json:"api_base,omitempty"`
	Model           string `json:"model"`
	SummaryModel    string `json:"summary_model,omitempty"` // empty = same as Model
	TranscribeModel string `json:"transcribe_model,omitempty"`
	MaxTokens       int    `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
}

// PipelineConfig tunes the message funnel.
type PipelineConfig struct {
	QuietWindowMS    int    `json:"quiet_window_ms"`   // debounce quiet window
	HistoryLimit     int    `json:"history_limit"`     // history sliding window
	DailyLimit       int    `json:"daily_limit"`       // replies per calendar day
	FailureThreshold int    `json:"failure_threshold"` // consecutive failures before handoff
	Timezone         string `json:"timezone"`          // calendar for the daily reset

	// QuotaExceededMessage, when non-empty, is sent to a user whose turn
	// was dropped by the daily quota. Empty keeps the silent no-op.
	QuotaExceededMessage string `json:"quota_exceeded_message,omitempty"`
}

// HealthConfig configures the liveness listener.
type HealthConfig struct {
	Port int `json:"port"`
}

// DatabaseConfig selects the conversation store backend.
// PostgresDSN comes from env DENTASSIST_POSTGRES_DSN only; empty means the
// in-memory store.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
}

// QuietWindow returns the debounce window as a duration.
func (c *Config) QuietWindow() time.Duration {
	return time.Duration(c.Pipeline.QuietWindowMS) * time.Millisecond
}

// SummaryModel returns the summarization model, falling back to the chat
// model.
func (c *OpenAIConfig) SummaryModelName() string {
	if c.SummaryModel != "" {
		return c.SummaryModel
	}
	return c.Model
}
