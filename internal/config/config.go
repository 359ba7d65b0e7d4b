package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig        BasicConfig               `json:"basic_config"`
	Providers          map[string]ProviderConfig `json:"providers"`
	SummarizerModel    string                    `json:"summarizer_model"`
	ClassifierProvider string                    `json:"classifier_provider"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	UploadDir         string `json:"upload_dir"`
	MaxUploadBytes    int64  `json:"max_upload_bytes"`
	ChunkSize         int    `json:"chunk_size"`
	TempSweepInterval int    `json:"temp_sweep_interval"` // minutes
	TempFileTTL       int    `json:"temp_file_ttl"`       // minutes
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	RequestTimeout    int    `json:"request_timeout"` // seconds
	LogLevel          string `json:"log_level"`
}

// ConfigError reports a missing or invalid setting that prevents startup.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

const defaultModel = "gemini-2.0-flash"

// Load reads configuration from the provided path. An empty path falls back to
// config.json when present and to built-in defaults otherwise. A .env file in
// the working directory is applied before the environment is consulted.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	explicit := path != ""
	if !explicit {
		path = "config.json"
	}
	if err := cfg.readFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if dir := c.BasicConfig.UploadDir; dir != "" && !filepath.IsAbs(dir) {
		c.BasicConfig.UploadDir = filepath.Join(filepath.Dir(absPath), dir)
	}
	return nil
}

func (c *Config) applyDefaults() {
	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = ":8000"
	}
	if b.UploadDir == "" {
		b.UploadDir = "temp_uploads"
	}
	if b.MaxUploadBytes <= 0 {
		b.MaxUploadBytes = 100 << 20
	}
	if b.ChunkSize <= 0 {
		b.ChunkSize = 1 << 20
	}
	if b.TempSweepInterval <= 0 {
		b.TempSweepInterval = 30
	}
	if b.TempFileTTL <= 0 {
		b.TempFileTTL = 60
	}
	if b.MinWorkers <= 0 {
		b.MinWorkers = 1
	}
	if b.MaxWorkers < b.MinWorkers {
		b.MaxWorkers = max(b.MinWorkers, 4)
	}
	if b.QueueSize <= 0 {
		b.QueueSize = 32
	}
	if b.RequestTimeout <= 0 {
		b.RequestTimeout = 300
	}
	if b.LogLevel == "" {
		b.LogLevel = "info"
	}

	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if c.SummarizerModel == "" {
		c.SummarizerModel = defaultModel
	}
	if c.ClassifierProvider == "" {
		c.ClassifierProvider = ProviderGemini
	}
	c.ClassifierProvider = strings.ToLower(strings.TrimSpace(c.ClassifierProvider))
	if _, ok := c.Providers[ProviderGemini]; !ok {
		c.Providers[ProviderGemini] = ProviderConfig{Model: c.SummarizerModel}
	}
}

func (c *Config) applyEnv() {
	for provider, key := range map[string]string{
		ProviderGemini: "GEMINI_API_KEY",
		ProviderOpenAI: "OPENAI_API_KEY",
		ProviderClaude: "ANTHROPIC_API_KEY",
	} {
		val := strings.TrimSpace(os.Getenv(key))
		if val == "" {
			continue
		}
		p := c.Providers[provider]
		p.APIKey = val
		c.Providers[provider] = p
	}
	if addr := os.Getenv("FILESORTER_ADDR"); addr != "" {
		c.BasicConfig.ServerAddress = addr
	}
}

func (c *Config) validate() error {
	if c.Providers[ProviderGemini].APIKey == "" {
		return &ConfigError{Field: "GEMINI_API_KEY", Message: "Gemini API key is required"}
	}
	switch c.ClassifierProvider {
	case ProviderGemini:
	case ProviderOpenAI, ProviderClaude:
		if c.Providers[c.ClassifierProvider].APIKey == "" {
			return &ConfigError{Field: "classifier_provider", Message: fmt.Sprintf("api key for %s is not configured", c.ClassifierProvider)}
		}
	default:
		return &ConfigError{Field: "classifier_provider", Message: fmt.Sprintf("unsupported provider %q", c.ClassifierProvider)}
	}
	return nil
}

// SweepInterval is how often stale request directories are looked for.
func (b BasicConfig) SweepInterval() time.Duration {
	return time.Duration(b.TempSweepInterval) * time.Minute
}

// TTL is how old a request directory must be before the sweeper removes it.
func (b BasicConfig) TTL() time.Duration {
	return time.Duration(b.TempFileTTL) * time.Minute
}

func (b BasicConfig) Timeout() time.Duration {
	return time.Duration(b.RequestTimeout) * time.Second
}
