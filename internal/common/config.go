package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Tavily      TavilyConfig    `toml:"tavily"`
	Cohere      CohereConfig    `toml:"cohere"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
	LLM         LLMConfig       `toml:"llm"`
	Research    ResearchConfig  `toml:"research"`
	Storage     StorageConfig   `toml:"storage"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	PDF         PDFConfig       `toml:"pdf"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// TavilyConfig configures the external search and extraction service.
type TavilyConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	SearchTimeout  string `toml:"search_timeout"`  // per-call timeout (default "30s")
	ExtractTimeout string `toml:"extract_timeout"` // per-call timeout (default "60s")
	MaxAttempts    int    `toml:"max_attempts"`    // retry budget for timeouts/429s (default 3)
	RateLimit      string `toml:"rate_limit"`      // minimum spacing between calls (default "100ms")
}

// CohereConfig configures the optional reranker. When the API key is empty the
// curator falls back to upstream relevance scores.
type CohereConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"` // default "rerank-v3.5"
	Timeout string `toml:"timeout"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"`  // default 4096
	Timeout     string  `toml:"timeout"`     // default "120s"
	Temperature float32 `toml:"temperature"` // default 0
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`   // default "gemini-2.0-flash"
	Timeout     string  `toml:"timeout"` // default "120s"
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig selects the provider and retry policy shared by both providers.
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "claude" or "gemini" (default: "claude")
	MaxAttempts     int         `toml:"max_attempts"`     // retry budget for timeouts/429s (default 2)
}

// ResearchConfig tunes the pipeline.
type ResearchConfig struct {
	MaxConcurrentJobs int     `toml:"max_concurrent_jobs"` // overload ceiling (default 10)
	JobRetention      string  `toml:"job_retention"`       // terminal job retention window (default "1h")
	MinScore          float64 `toml:"min_score"`           // curation score threshold (default 0.4)
	MaxQueries        int     `toml:"max_queries"`         // queries per researcher (default 4)
	MaxSearchResults  int     `toml:"max_search_results"`  // results per query (default 15)
	SearchConcurrency int     `toml:"search_concurrency"`  // parallel searches per researcher (default 4)
	CuratedPerCategory int    `toml:"curated_per_category"` // curated cap per category (default 30)
	EnrichPerCategory int     `toml:"enrich_per_category"` // enrichment cap per category (default 20)
	MaxReferences     int     `toml:"max_references"`      // reference cap (default 10)
}

type StorageConfig struct {
	Enabled bool         `toml:"enabled"` // mirror jobs/reports into badger
	Badger  BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path string `toml:"path"` // database directory path
}

// WebSocketConfig contains configuration for per-job event streaming
type WebSocketConfig struct {
	BufferSize int `toml:"buffer_size"` // per-subscriber ring size (default 256)
}

// PDFConfig contains configuration for report PDF rendering
type PDFConfig struct {
	OutputDir string `toml:"output_dir"` // directory for rendered PDFs (default "./pdfs")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Tavily: TavilyConfig{
			BaseURL:        "https://api.tavily.com",
			SearchTimeout:  "30s",
			ExtractTimeout: "60s",
			MaxAttempts:    3,
			RateLimit:      "100ms",
		},
		Cohere: CohereConfig{
			BaseURL: "https://api.cohere.com",
			Model:   "rerank-v3.5",
			Timeout: "30s",
		},
		Claude: ClaudeConfig{
			Model:     "claude-haiku-3-5-20241022",
			MaxTokens: 4096,
			Timeout:   "120s",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "120s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
			MaxAttempts:     2,
		},
		Research: ResearchConfig{
			MaxConcurrentJobs:  10,
			JobRetention:       "1h",
			MinScore:           0.4,
			MaxQueries:         4,
			MaxSearchResults:   15,
			SearchConcurrency:  4,
			CuratedPerCategory: 30,
			EnrichPerCategory:  20,
			MaxReferences:      10,
		},
		Storage: StorageConfig{
			Enabled: false,
			Badger: BadgerConfig{
				Path: "./data/indago",
			},
		},
		WebSocket: WebSocketConfig{
			BufferSize: 256,
		},
		PDF: PDFConfig{
			OutputDir: "./pdfs",
		},
	}
}

// LoadFromFiles loads configuration in precedence order:
// defaults -> file1 -> file2 -> ... -> environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies INDAGO_* environment variables over file values.
// API keys also resolve from the vendors' conventional variable names.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("INDAGO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("INDAGO_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("INDAGO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := firstEnv("INDAGO_TAVILY_API_KEY", "TAVILY_API_KEY"); v != "" {
		config.Tavily.APIKey = v
	}
	if v := firstEnv("INDAGO_COHERE_API_KEY", "COHERE_API_KEY"); v != "" {
		config.Cohere.APIKey = v
	}
	if v := firstEnv("INDAGO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := firstEnv("INDAGO_GEMINI_API_KEY", "GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("INDAGO_LLM_PROVIDER"); v != "" {
		config.LLM.DefaultProvider = LLMProvider(v)
	}
	if v := os.Getenv("INDAGO_STORAGE_PATH"); v != "" {
		config.Storage.Enabled = true
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("INDAGO_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Research.MaxConcurrentJobs = n
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ApplyFlagOverrides applies command-line overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	for _, d := range []struct {
		name  string
		value string
	}{
		{"tavily.search_timeout", c.Tavily.SearchTimeout},
		{"tavily.extract_timeout", c.Tavily.ExtractTimeout},
		{"cohere.timeout", c.Cohere.Timeout},
		{"claude.timeout", c.Claude.Timeout},
		{"gemini.timeout", c.Gemini.Timeout},
		{"research.job_retention", c.Research.JobRetention},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", d.name, d.value)
		}
	}
	if c.Research.MinScore < 0 || c.Research.MinScore > 1 {
		return fmt.Errorf("research.min_score must be in [0,1], got %v", c.Research.MinScore)
	}
	switch c.LLM.DefaultProvider {
	case LLMProviderClaude, LLMProviderGemini:
	default:
		return fmt.Errorf("invalid llm.default_provider: %q", c.LLM.DefaultProvider)
	}
	return nil
}

// Duration parses a duration config value that Validate has already checked.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
