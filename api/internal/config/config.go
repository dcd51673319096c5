package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when Load gets no path.
const DefaultFile = "wasteboz.yaml"

var (
	ErrMissingAPIKey        = errors.New("config: GEMINI_API_KEY is not set")
	ErrMissingTelegramToken = errors.New("config: TELEGRAM_BOT_TOKEN is not set")
)

type Config struct {
	Port string `yaml:"port"`

	GeminiAPIKey       string `yaml:"gemini_api_key"`
	GeminiModel        string `yaml:"gemini_model"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
	PromptDir          string `yaml:"prompt_dir"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`

	AllowedOrigins    []string `yaml:"allowed_origins"`
	SessionTTLMinutes int      `yaml:"session_ttl_minutes"`
	SessionRatePerMin int      `yaml:"session_rate_per_min"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// RequireTelegram checks the settings only the bot needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return ErrMissingTelegramToken
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Port:               "8000",
		GeminiModel:        "gemini-2.5-flash",
		RequestTimeoutSecs: 60,
		AllowedOrigins:     []string{"*"},
		SessionTTLMinutes:  30,
		SessionRatePerMin:  20,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is loaded
// into the environment first when present. An empty path means DefaultFile,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := readFile(path, cfg, explicit); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.GeminiAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return cfg, nil
}

func readFile(path string, cfg *Config, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.PromptDir = getEnv("PROMPT_DIR", cfg.PromptDir)
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.WebhookURL = getEnv("WEBHOOK_URL", cfg.WebhookURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	var err error
	if cfg.RequestTimeoutSecs, err = getEnvInt("REQUEST_TIMEOUT_SECS", cfg.RequestTimeoutSecs); err != nil {
		return err
	}
	if cfg.SessionTTLMinutes, err = getEnvInt("SESSION_TTL_MINUTES", cfg.SessionTTLMinutes); err != nil {
		return err
	}
	if cfg.SessionRatePerMin, err = getEnvInt("SESSION_RATE_PER_MIN", cfg.SessionRatePerMin); err != nil {
		return err
	}
	if cfg.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %d", cfg.RequestTimeoutSecs)
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
