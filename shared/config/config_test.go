package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
}

func clearAuthEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"YOUTUBE_API_KEY", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
		"GEMINI_API_KEY", "OPENROUTER_API_KEY", "EMAIL_USERNAME", "EMAIL_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearAuthEnv(t)
	writeConfig(t, `
youtube:
  api_key: yt-key
ai:
  gemini_api_key: gm-key
scrape:
  channels:
    - "@FireshipIO"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AI.Provider != "gemini" {
		t.Errorf("provider = %q, want gemini", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q, want gemini-2.5-flash", cfg.AI.Model)
	}
	if cfg.AI.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", cfg.AI.MaxRetries)
	}
	if cfg.Scrape.WindowDays != 7 || cfg.Scrape.MaxVideosPerChannel != 3 || cfg.Scrape.Concurrency != 4 {
		t.Errorf("unexpected scrape defaults: %+v", cfg.Scrape)
	}
	if cfg.Scrape.DataDir != "data" || cfg.Scrape.ReportDir != "reports" {
		t.Errorf("unexpected directory defaults: %+v", cfg.Scrape)
	}
	if cfg.Schedule != "0 0 9 * * *" {
		t.Errorf("schedule = %q, want daily 9 AM default", cfg.Schedule)
	}
	if cfg.Prompts.Analysis.Role == "" || cfg.Prompts.Synthesis.Role == "" {
		t.Error("prompt defaults were not applied")
	}
}

func TestLoadEnvOverridesEmptyFields(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("YOUTUBE_API_KEY", "env-yt")
	t.Setenv("GEMINI_API_KEY", "env-gm")
	writeConfig(t, `
scrape:
  channels:
    - "@FireshipIO"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.YouTube.APIKey != "env-yt" {
		t.Errorf("api key = %q, want env-yt", cfg.YouTube.APIKey)
	}
	if cfg.AI.GeminiAPIKey != "env-gm" {
		t.Errorf("gemini key = %q, want env-gm", cfg.AI.GeminiAPIKey)
	}
}

func TestLoadOpenRouterProviderDefaults(t *testing.T) {
	clearAuthEnv(t)
	writeConfig(t, `
youtube:
  api_key: yt-key
ai:
  provider: openrouter
  openrouter_api_key: or-key
scrape:
  channels:
    - "@FireshipIO"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AI.Model != "openai/gpt-4o" {
		t.Errorf("model = %q, want openai/gpt-4o", cfg.AI.Model)
	}
	if cfg.AI.OpenRouterURL != "https://openrouter.ai/api/v1" {
		t.Errorf("base URL = %q", cfg.AI.OpenRouterURL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing youtube auth",
			content: `
ai:
  gemini_api_key: gm-key
scrape:
  channels: ["@x"]
`,
		},
		{
			name: "missing model key",
			content: `
youtube:
  api_key: yt-key
scrape:
  channels: ["@x"]
`,
		},
		{
			name: "no channels",
			content: `
youtube:
  api_key: yt-key
ai:
  gemini_api_key: gm-key
`,
		},
		{
			name: "unknown provider",
			content: `
youtube:
  api_key: yt-key
ai:
  provider: mystery-llm
  gemini_api_key: gm-key
scrape:
  channels: ["@x"]
`,
		},
		{
			name: "email enabled without credentials",
			content: `
youtube:
  api_key: yt-key
ai:
  gemini_api_key: gm-key
scrape:
  channels: ["@x"]
email:
  enabled: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearAuthEnv(t)
			writeConfig(t, tt.content)
			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
