package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/unthinkable/alina-support/internal/domain"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

type Config struct {
	Mode Mode `yaml:"mode" toml:"mode"`

	Port           string   `yaml:"port" toml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`

	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	LLM     LLMConfig     `yaml:"llm" toml:"llm"`

	// first malformed environment value, reported by Validate
	envErr error
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type StoreConfig struct {
	Backend     string `yaml:"backend" toml:"backend"` // memory, redis, sqlite or firestore
	RedisURL    string `yaml:"redis_url" toml:"redis_url"`
	KeyPrefix   string `yaml:"key_prefix" toml:"key_prefix"`
	SQLitePath  string `yaml:"sqlite_path" toml:"sqlite_path"`
	GCPProject  string `yaml:"gcp_project" toml:"gcp_project"`
	MaxMessages int    `yaml:"max_messages" toml:"max_messages"`
}

type LLMConfig struct {
	Provider      string `yaml:"provider" toml:"provider"` // mock, gemini or openai
	Model         string `yaml:"model" toml:"model"`
	APIKey        string `yaml:"api_key" toml:"api_key"`
	GCPProject    string `yaml:"gcp_project" toml:"gcp_project"`
	GCPLocation   string `yaml:"gcp_location" toml:"gcp_location"`
	OpenAIBaseURL string `yaml:"openai_base_url" toml:"openai_base_url"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Mode: ModeLocal,
		Port: "8000",
		AllowedOrigins: []string{
			"https://alina-ask-assist-bot.onrender.com",
			"https://alinaaaaaa-2003.github.io",
			"http://localhost",
			"http://localhost:8000",
			"null",
			"*",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Store: StoreConfig{
			Backend:     "memory",
			RedisURL:    "redis://localhost:6379",
			SQLitePath:  "./data/alina.db",
			MaxMessages: domain.DefaultMaxMessages,
		},
		LLM: LLMConfig{
			Provider:    "mock",
			GCPLocation: "us-central1",
			TimeoutRaw:  "30s",
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// defaultModels is the model used by each provider when none is set.
var defaultModels = map[string]string{
	"gemini": "gemini-2.5-flash",
	"openai": "gpt-4o-mini",
}

func getListEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load builds the config from defaults, the optional file named by
// ALINA_CONFIG and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ALINA_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFile decodes a YAML or TOML file over cfg. Environment variables in
// the format ${VAR_NAME} are expanded first.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config) {
	switch getEnv("ALINA_MODE", string(cfg.Mode)) {
	case string(ModeCloud):
		cfg.Mode = ModeCloud
	default:
		cfg.Mode = ModeLocal
	}

	cfg.Port = getEnv("PORT", getEnv("ALINA_PORT", cfg.Port))
	cfg.AllowedOrigins = getListEnv("ALINA_ALLOWED_ORIGINS", cfg.AllowedOrigins)

	cfg.Logging.Level = getEnv("ALINA_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("ALINA_LOG_FORMAT", cfg.Logging.Format)

	cfg.Store.Backend = getEnv("ALINA_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.RedisURL = getEnv("REDIS_URL", cfg.Store.RedisURL)
	cfg.Store.KeyPrefix = getEnv("ALINA_REDIS_KEY_PREFIX", cfg.Store.KeyPrefix)
	cfg.Store.SQLitePath = getEnv("ALINA_SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.GCPProject = getEnv("ALINA_GCP_PROJECT", cfg.Store.GCPProject)
	maxMessages, err := getIntEnv("ALINA_MAX_MESSAGES", cfg.Store.MaxMessages)
	if err != nil && cfg.envErr == nil {
		cfg.envErr = err
	}
	cfg.Store.MaxMessages = maxMessages

	cfg.LLM.Provider = getEnv("ALINA_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("ALINA_MODEL_NAME", cfg.LLM.Model)
	cfg.LLM.GCPProject = getEnv("ALINA_GCP_PROJECT", cfg.LLM.GCPProject)
	cfg.LLM.GCPLocation = getEnv("ALINA_GCP_LOCATION", cfg.LLM.GCPLocation)
	cfg.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.LLM.OpenAIBaseURL)
	cfg.LLM.TimeoutRaw = getEnv("ALINA_LLM_TIMEOUT", cfg.LLM.TimeoutRaw)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}

	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	case "gemini":
		cfg.LLM.APIKey = getEnv("GEMINI_API_KEY", cfg.LLM.APIKey)
	}
}

func parseDurations(cfg *Config) error {
	if cfg.LLM.TimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(cfg.LLM.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing llm.timeout %q: %w", cfg.LLM.TimeoutRaw, err)
	}
	cfg.LLM.Timeout = d
	return nil
}

// Validate checks that the configuration is usable and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.envErr != nil {
		return c.envErr
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Store.MaxMessages <= 0 {
		return fmt.Errorf("store.max_messages must be positive, got %d", c.Store.MaxMessages)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis backend")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case "firestore":
		if c.Store.GCPProject == "" {
			return fmt.Errorf("store.gcp_project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	switch c.LLM.Provider {
	case "mock":
	case "gemini":
		if c.LLM.APIKey == "" && c.LLM.GCPProject == "" {
			return fmt.Errorf("gemini provider needs GEMINI_API_KEY or llm.gcp_project")
		}
	case "openai":
		if c.LLM.APIKey == "" && c.LLM.OpenAIBaseURL == "" {
			return fmt.Errorf("openai provider needs OPENAI_API_KEY or llm.openai_base_url")
		}
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}

	if c.Mode == ModeCloud && c.LLM.Provider == "mock" {
		return fmt.Errorf("mock llm provider is not allowed in cloud mode")
	}

	return nil
}
