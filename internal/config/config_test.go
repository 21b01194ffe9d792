package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_ReportSchedule(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Report.DailyCron != "0 18 * * *" {
		t.Errorf("DailyCron = %q, expected %q", cfg.Report.DailyCron, "0 18 * * *")
	}
	if cfg.Report.WeeklyCron != "0 18 * * 5" {
		t.Errorf("WeeklyCron = %q, expected %q", cfg.Report.WeeklyCron, "0 18 * * 5")
	}
	if cfg.Report.BatchConcurrency != 1 {
		t.Errorf("BatchConcurrency = %d, expected 1", cfg.Report.BatchConcurrency)
	}
	if cfg.Report.RetentionDays != 180 {
		t.Errorf("RetentionDays = %d, expected 180", cfg.Report.RetentionDays)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "sqlite")
	}
}

func TestLoad_FileKeepsDefaultsForOmittedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: \"9090\"\nreport:\n  holiday_country: US\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "9090")
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, expected default %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Report.HolidayCountry != "US" {
		t.Errorf("Report.HolidayCountry = %q, expected %q", cfg.Report.HolidayCountry, "US")
	}
	if cfg.Report.DailyCron != "0 18 * * *" {
		t.Errorf("Report.DailyCron = %q, expected default", cfg.Report.DailyCron)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("REPORT_RETENTION_DAYS", "30")
	t.Setenv("SENDGRID_API_KEY", "SG.key")
	t.Setenv("CORS_ORIGINS", " https://app.taskflow.dev, ,http://localhost:3000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("LLM.Provider = %q, expected %q", cfg.LLM.Provider, "anthropic")
	}
	if !cfg.LLM.Enabled() {
		t.Error("LLM should be enabled with provider and api key")
	}
	if cfg.Report.RetentionDays != 30 {
		t.Errorf("Report.RetentionDays = %d, expected 30", cfg.Report.RetentionDays)
	}
	if cfg.Email.Provider != "sendgrid" {
		t.Errorf("Email.Provider = %q, expected %q", cfg.Email.Provider, "sendgrid")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://app.taskflow.dev" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLLMConfig_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		cfg      LLMConfig
		expected bool
	}{
		{"no provider", LLMConfig{APIKey: "k"}, false},
		{"openai without key", LLMConfig{Provider: "openai"}, false},
		{"openai with key", LLMConfig{Provider: "openai", APIKey: "k"}, true},
		{"ollama with model", LLMConfig{Provider: "ollama", Model: "llama3"}, true},
		{"ollama without model", LLMConfig{Provider: "ollama"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Enabled(); got != tt.expected {
				t.Errorf("Enabled() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestParseRedisURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.parseRedisURL("redis://:secret@redis.local:6380/2")

	if cfg.Redis.Addr != "redis.local:6380" {
		t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, "redis.local:6380")
	}
	if cfg.Redis.Password != "secret" {
		t.Errorf("Password = %q, expected %q", cfg.Redis.Password, "secret")
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("DB = %d, expected 2", cfg.Redis.DB)
	}
}
