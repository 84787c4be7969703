package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "ABSTRACT_SCREEN_CONFIG"
	providerEnv       = "ABSTRACT_SCREEN_PROVIDER"
	modelEnv          = "ABSTRACT_SCREEN_MODEL"
	openAIKeyEnv      = "OPENAI_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	databaseDSNEnv    = "DATABASE_DSN"
	auditPathEnv      = "ABSTRACT_SCREEN_AUDIT_PATH"
	logLevelEnv       = "ABSTRACT_SCREEN_LOG_LEVEL"
	defaultCharBudget = 16000
)

// ProviderOpenAI and ProviderAnthropic are the supported gateway backends.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds high-level settings required across the application.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Screening ScreeningConfig `yaml:"screening"`
	Criteria  CriteriaConfig  `yaml:"criteria"`
	Database  DatabaseConfig  `yaml:"database"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProviderConfig describes which LLM backend to call and how.
type ProviderConfig struct {
	Name     string `yaml:"name"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	Endpoint string `yaml:"endpoint"`
}

// ScreeningConfig tunes the batch pipeline.
type ScreeningConfig struct {
	BatchSize             int `yaml:"batchSize"`
	Workers               int `yaml:"workers"`
	MaxRetries            int `yaml:"maxRetries"`
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds"`
	RetryBaseDelayMS      int `yaml:"retryBaseDelayMs"`
	BatchPauseMS          int `yaml:"batchPauseMs"`
	PromptCharBudget      int `yaml:"promptCharBudget"`
}

// RequestTimeout resolves the per-call timeout as a duration.
func (s ScreeningConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// RetryBaseDelay resolves the initial backoff delay.
func (s ScreeningConfig) RetryBaseDelay() time.Duration {
	return time.Duration(s.RetryBaseDelayMS) * time.Millisecond
}

// BatchPause resolves the inter-batch pacing delay.
func (s ScreeningConfig) BatchPause() time.Duration {
	return time.Duration(s.BatchPauseMS) * time.Millisecond
}

// CriteriaConfig mirrors the structured screening criteria in YAML form.
type CriteriaConfig struct {
	Population          string   `yaml:"population"`
	Intervention        string   `yaml:"intervention"`
	Comparator          string   `yaml:"comparator"`
	AdditionalInclusion []string `yaml:"additionalInclusion"`
	AdditionalExclusion []string `yaml:"additionalExclusion"`
	FreeTextOverride    string   `yaml:"freeTextOverride"`
}

// DatabaseConfig describes the optional Postgres sink.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AuditConfig controls the JSONL audit trail file.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. Missing or unreadable files fall back to defaults with a note,
// so the binary stays usable with env-only setup.
func Load() Config {
	return LoadPath(os.Getenv(configPathEnv))
}

// LoadPath behaves like Load with an explicit file path taking precedence
// over the environment variable.
func LoadPath(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unknown provider %q (want %s or %s)", c.Provider.Name, ProviderOpenAI, ProviderAnthropic)
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("config: provider model must be set")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("config: provider API key must be set")
	}
	if c.Screening.BatchSize <= 0 {
		return fmt.Errorf("config: batchSize must be positive, got %d", c.Screening.BatchSize)
	}
	if c.Screening.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Screening.Workers)
	}
	if c.Screening.MaxRetries < 0 {
		return fmt.Errorf("config: maxRetries must not be negative, got %d", c.Screening.MaxRetries)
	}
	if c.Screening.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("config: requestTimeoutSeconds must be positive, got %d", c.Screening.RequestTimeoutSeconds)
	}
	if c.Screening.PromptCharBudget <= 0 {
		return fmt.Errorf("config: promptCharBudget must be positive, got %d", c.Screening.PromptCharBudget)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(providerEnv); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(modelEnv); v != "" {
		c.Provider.Model = v
	}

	// Provider-specific key envs are honored after the provider name is
	// final, so ABSTRACT_SCREEN_PROVIDER picks which key applies.
	switch c.Provider.Name {
	case ProviderAnthropic:
		if v := os.Getenv(anthropicKeyEnv); v != "" {
			c.Provider.APIKey = v
		}
	default:
		if v := os.Getenv(openAIKeyEnv); v != "" {
			c.Provider.APIKey = v
		}
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(auditPathEnv); v != "" {
		c.Audit.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Provider.Name != "" {
		base.Provider.Name = override.Provider.Name
	}
	if override.Provider.Model != "" {
		base.Provider.Model = override.Provider.Model
	}
	if override.Provider.APIKey != "" {
		base.Provider.APIKey = override.Provider.APIKey
	}
	if override.Provider.Endpoint != "" {
		base.Provider.Endpoint = override.Provider.Endpoint
	}

	if override.Screening.BatchSize > 0 {
		base.Screening.BatchSize = override.Screening.BatchSize
	}
	if override.Screening.Workers > 0 {
		base.Screening.Workers = override.Screening.Workers
	}
	if override.Screening.MaxRetries > 0 {
		base.Screening.MaxRetries = override.Screening.MaxRetries
	}
	if override.Screening.RequestTimeoutSeconds > 0 {
		base.Screening.RequestTimeoutSeconds = override.Screening.RequestTimeoutSeconds
	}
	if override.Screening.RetryBaseDelayMS > 0 {
		base.Screening.RetryBaseDelayMS = override.Screening.RetryBaseDelayMS
	}
	if override.Screening.BatchPauseMS > 0 {
		base.Screening.BatchPauseMS = override.Screening.BatchPauseMS
	}
	if override.Screening.PromptCharBudget > 0 {
		base.Screening.PromptCharBudget = override.Screening.PromptCharBudget
	}

	if override.Criteria.Population != "" || override.Criteria.FreeTextOverride != "" {
		base.Criteria = override.Criteria
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if override.Audit.Path != "" {
		base.Audit = override.Audit
	}
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			Name:   ProviderOpenAI,
			Model:  "gpt-4o-mini",
			APIKey: "",
		},
		Screening: ScreeningConfig{
			BatchSize:             10,
			Workers:               4,
			MaxRetries:            3,
			RequestTimeoutSeconds: 30,
			RetryBaseDelayMS:      1000,
			BatchPauseMS:          1000,
			PromptCharBudget:      defaultCharBudget,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
