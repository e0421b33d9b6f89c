package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoad_MissingFileUsesDefaults verifies a nonexistent path yields the
// defaults rather than an error.
func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.QuietWindowMS != 4000 {
		t.Errorf("quiet window = %d, want default 4000", cfg.Pipeline.QuietWindowMS)
	}
	if cfg.Pipeline.DailyLimit != 500 {
		t.Errorf("daily limit = %d, want default 500", cfg.Pipeline.DailyLimit)
	}
	if cfg.Pipeline.Timezone != "America/Bogota" {
		t.Errorf("timezone = %q, want default America/Bogota", cfg.Pipeline.Timezone)
	}
}

// TestLoad_FileAndEnvOverlay verifies file values override defaults and env
// values override the file.
func TestLoad_FileAndEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		// JSON5: comments allowed
		whatsapp: { bridge_url: "ws://bridge:9000", operator_jid: "573044356143@s.whatsapp.net" },
		pipeline: { quiet_window_ms: 2500 },
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DENTASSIST_OPENAI_API_KEY", "sk-env")
	t.Setenv("DENTASSIST_QUIET_WINDOW_MS", "1000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WhatsApp.BridgeURL != "ws://bridge:9000" {
		t.Errorf("bridge_url = %q, want file value", cfg.WhatsApp.BridgeURL)
	}
	if cfg.OpenAI.APIKey != "sk-env" {
		t.Errorf("api key = %q, want env value", cfg.OpenAI.APIKey)
	}
	if cfg.Pipeline.QuietWindowMS != 1000 {
		t.Errorf("quiet window = %d, want env override 1000", cfg.Pipeline.QuietWindowMS)
	}
}

// TestValidate verifies the required-field checks.
func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.WhatsApp.OperatorJID = "573044356143@s.whatsapp.net"
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete config rejected: %v", err)
	}

	noKey := Default()
	noKey.WhatsApp.OperatorJID = "x@s.whatsapp.net"
	if err := noKey.Validate(); err == nil {
		t.Error("missing API key accepted")
	}

	noOperator := Default()
	noOperator.OpenAI.APIKey = "sk-test"
	if err := noOperator.Validate(); err == nil {
		t.Error("missing operator JID accepted")
	}
}

// TestSummaryModelName verifies the summary model fallback.
func TestSummaryModelName(t *testing.T) {
	c := OpenAIConfig{Model: "gpt-4o-mini"}
	if got := c.SummaryModelName(); got != "gpt-4o-mini" {
		t.Errorf("fallback = %q", got)
	}
	c.SummaryModel = "gpt-4o"
	if got := c.SummaryModelName(); got != "gpt-4o" {
		t.Errorf("explicit = %q", got)
	}
}
