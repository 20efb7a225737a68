package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	AI         AIConfig         `yaml:"ai"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	Scrape     ScrapeConfig     `yaml:"scrape"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type YouTubeConfig struct {
	// APIKey is the preferred auth method. When empty, the OAuth device flow
	// is used with ClientID/ClientSecret and the cached token file.
	APIKey            string  `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID          string  `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret      string  `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile         string  `yaml:"token_file"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type AIConfig struct {
	// Provider selects the model backend: "gemini" or "openrouter".
	Provider         string `yaml:"provider"`
	GeminiAPIKey     string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	OpenRouterAPIKey string `yaml:"openrouter_api_key" env:"OPENROUTER_API_KEY"`
	OpenRouterURL    string `yaml:"openrouter_url"`
	Model            string `yaml:"model"`
	MaxRetries       int    `yaml:"max_retries"`
}

// AgentPrompt carries the role/goal/backstory of one agent plus its task
// description and expected output, loaded from config.yaml.
type AgentPrompt struct {
	Role           string `yaml:"role"`
	Goal           string `yaml:"goal"`
	Backstory      string `yaml:"backstory"`
	Task           string `yaml:"task"`
	ExpectedOutput string `yaml:"expected_output"`
}

type PromptsConfig struct {
	Analysis  AgentPrompt `yaml:"analysis"`
	Synthesis AgentPrompt `yaml:"synthesis"`
}

type ScrapeConfig struct {
	Channels            []string `yaml:"channels"`
	WindowDays          int      `yaml:"window_days"`
	MaxVideosPerChannel int      `yaml:"max_videos_per_channel"`
	Concurrency         int      `yaml:"concurrency"`
	TranscriptTimeout   float64  `yaml:"transcript_timeout_seconds"`
	// QuickMode skips transcript downloads; analysis falls back to
	// title/description metadata.
	QuickMode bool   `yaml:"quick_mode"`
	DataDir   string `yaml:"data_dir"`
	ReportDir string `yaml:"report_dir"`
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.AI.OpenRouterAPIKey == "" {
		c.AI.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.RequestsPerSecond == 0 {
		c.YouTube.RequestsPerSecond = 5
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.OpenRouterURL == "" {
		c.AI.OpenRouterURL = "https://openrouter.ai/api/v1"
	}
	if c.AI.Model == "" {
		switch c.AI.Provider {
		case "openrouter":
			c.AI.Model = "openai/gpt-4o"
		default:
			c.AI.Model = "gemini-2.5-flash"
		}
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = 3
	}
	if c.Scrape.WindowDays == 0 {
		c.Scrape.WindowDays = 7
	}
	if c.Scrape.MaxVideosPerChannel == 0 {
		c.Scrape.MaxVideosPerChannel = 3
	}
	if c.Scrape.Concurrency == 0 {
		c.Scrape.Concurrency = 4
	}
	if c.Scrape.TranscriptTimeout == 0 {
		c.Scrape.TranscriptTimeout = 8.0
	}
	if c.Scrape.DataDir == "" {
		c.Scrape.DataDir = "data"
	}
	if c.Scrape.ReportDir == "" {
		c.Scrape.ReportDir = "reports"
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	c.Prompts.Analysis.applyDefaults(defaultAnalysisPrompt)
	c.Prompts.Synthesis.applyDefaults(defaultSynthesisPrompt)
	if c.Schedule == "" {
		c.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}
}

func (c *Config) validate() error {
	if c.YouTube.APIKey == "" && (c.YouTube.ClientID == "" || c.YouTube.ClientSecret == "") {
		return fmt.Errorf("YouTube auth is required: set YOUTUBE_API_KEY, or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET for OAuth")
	}
	switch c.AI.Provider {
	case "gemini":
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
		}
	case "openrouter":
		if c.AI.OpenRouterAPIKey == "" {
			return fmt.Errorf("OpenRouter API key is required (set OPENROUTER_API_KEY or ai.openrouter_api_key)")
		}
	default:
		return fmt.Errorf("unknown AI provider %q (expected gemini or openrouter)", c.AI.Provider)
	}
	if len(c.Scrape.Channels) == 0 {
		return fmt.Errorf("at least one channel is required (scrape.channels)")
	}
	if c.Email.Enabled {
		if c.Email.Username == "" || c.Email.Password == "" {
			return fmt.Errorf("email credentials are required when email.enabled is true")
		}
	}
	return nil
}
