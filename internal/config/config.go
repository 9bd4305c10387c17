package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Supported chat model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                   string   `yaml:"port"`
	LogLevel               string   `yaml:"logLevel"`
	DatabaseURL            string   `yaml:"databaseURL"`
	Provider               string   `yaml:"provider"`
	ChatModel              string   `yaml:"chatModel"`
	Temperature            float64  `yaml:"temperature"`
	SystemPrompt           string   `yaml:"systemPrompt"`
	OpenAIBaseURL          string   `yaml:"openaiBaseURL"`
	RedisAddr              string   `yaml:"redisAddr"`
	RedisPassword          string   `yaml:"redisPassword"`
	ChatRateLimitPerMinute int      `yaml:"chatRateLimitPerMinute"`
	TrustedProxyCIDRs      []string `yaml:"trustedProxyCidrs"`
	Theme                  string   `yaml:"theme"`
}

// Load reads config from path (defaults to config.yaml).
// Values from a .env file are loaded first but never override real env vars;
// env vars in turn override the YAML file. The model API key is deliberately
// not part of the config: it is read from the environment per request.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	_ = godotenv.Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("STARBROKER_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("STARBROKER_CHAT_MODEL"); v != "" {
		cfg.ChatModel = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.Provider == "" {
		return errors.New("config: provider is required (set in config.yaml or STARBROKER_PROVIDER)")
	}
	if cfg.Provider != ProviderOpenAI && cfg.Provider != ProviderGemini {
		return fmt.Errorf("config: provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, cfg.Provider)
	}
	if cfg.ChatModel == "" {
		return errors.New("config: chatModel is required (set in config.yaml)")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("config: temperature must be between 0 and 2, got %g", cfg.Temperature)
	}
	if cfg.ChatRateLimitPerMinute < 0 {
		return errors.New("config: chatRateLimitPerMinute must not be negative")
	}
	return nil
}
