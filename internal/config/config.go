package config

import (
	"errors"
	"fmt"
	"os"

	"document-qa/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	envPrefix = "DOCQA"
)

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Log      LogConfig    `yaml:"log"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	ChatLLM  LLMConfig    `yaml:"chat_llm"`
	RAG      RAGConfig    `yaml:"rag"`
	Sentry   SentryConfig `yaml:"sentry"`
}

type ServerConfig struct {
	Port             string `yaml:"port"`
	MaxUploadBytes   int64  `yaml:"max_upload_bytes"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	// sessions not seen for this long are dropped, 0 keeps them forever
	SessionIdleMins  int    `yaml:"session_idle_mins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// LLMConfig configures one hosted model endpoint. Key is only a default credential for the
// CLI surfaces; the web UI always asks the user for one.
type LLMConfig struct {
	Provider      string `yaml:"provider"`
	BaseURL       string `yaml:"base_url"`
	Key           string `yaml:"key"`
	Model         string `yaml:"model"`
	BatchSize     int    `yaml:"batch_size"`
	StripNewLines bool   `yaml:"strip_new_lines"`
}

type RAGConfig struct {
	UseSplitter              bool       `yaml:"use_splitter"`
	ChunkSize                int        `yaml:"chunk_size"`
	ChunkOverlap             int        `yaml:"chunk_overlap"`
	RemovePages              bool       `yaml:"remove_pages"`
	FrontPagesToRemove       int        `yaml:"front_pages_to_remove"`
	LastPagesToRemove        int        `yaml:"last_pages_to_remove"`
	Trims                    []PageTrim `yaml:"trims"`
	RemoveLeftoverDelimiters bool       `yaml:"remove_leftover_delimiters"`
	Delimiters               []string   `yaml:"delimiters"`
	TopK                     int        `yaml:"top_k"`
	APIKeyPrefix             string     `yaml:"api_key_prefix"`
	DefaultQuery             string     `yaml:"default_query"`
}

// PageTrim overrides the front/last page counts for one document, matched by upload order.
type PageTrim struct {
	Front int `yaml:"front"`
	Last  int `yaml:"last"`
}

type SentryConfig struct {
	DSN              string  `yaml:"dsn"`
	Environment      string  `yaml:"environment"`
	TracesSampleRate float64 `yaml:"traces_sample_rate"`
}

// envOverrides are read from DOCQA_* variables (and a .env file) after the YAML file.
type envOverrides struct {
	Port              string `envconfig:"PORT"`
	LogLevel          string `envconfig:"LOG_LEVEL"`
	LogPretty         *bool  `envconfig:"LOG_PRETTY"`
	APIKey            string `envconfig:"API_KEY"`
	OpenAIBaseURL     string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	ChatModel         string `envconfig:"CHAT_MODEL"`
	ChunkSize         *int   `envconfig:"CHUNK_SIZE"`
	ChunkOverlap      *int   `envconfig:"CHUNK_OVERLAP"`
	TopK              *int   `envconfig:"TOP_K"`
	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT"`
}

// LoadConfig reads the YAML file at path over the defaults, then applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	_ = godotenv.Load()
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	env.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             "8080",
			MaxUploadBytes:   50 * 1024 * 1024,
			ReadTimeoutSecs:  60,
			WriteTimeoutSecs: 300,
			SessionIdleMins:  120,
		},
		Log: LogConfig{Level: "info", Pretty: true},
		EmbedLLM: LLMConfig{
			Provider:      ProviderOpenAI,
			BaseURL:       "https://api.openai.com/v1",
			Model:         "text-embedding-ada-002",
			BatchSize:     512,
			StripNewLines: true,
		},
		ChatLLM: LLMConfig{
			Provider: ProviderOpenAI,
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-3.5-turbo-1106",
		},
		RAG: RAGConfig{
			UseSplitter:              true,
			ChunkSize:                800,
			ChunkOverlap:             80,
			RemoveLeftoverDelimiters: true,
			Delimiters:               append([]string(nil), models.DefaultDelimiters...),
			TopK:                     models.DefaultTopK,
			APIKeyPrefix:             models.DefaultAPIKeyPrefix,
			DefaultQuery:             models.DefaultQuery,
		},
	}
}

func (e envOverrides) apply(cfg *Config) {
	if e.Port != "" {
		cfg.Server.Port = e.Port
	}
	if e.LogLevel != "" {
		cfg.Log.Level = e.LogLevel
	}
	if e.LogPretty != nil {
		cfg.Log.Pretty = *e.LogPretty
	}
	if e.APIKey != "" {
		cfg.EmbedLLM.Key = e.APIKey
		cfg.ChatLLM.Key = e.APIKey
	}
	if e.OpenAIBaseURL != "" {
		cfg.EmbedLLM.BaseURL = e.OpenAIBaseURL
		cfg.ChatLLM.BaseURL = e.OpenAIBaseURL
	}
	if e.EmbeddingModel != "" {
		cfg.EmbedLLM.Model = e.EmbeddingModel
	}
	if e.ChatModel != "" {
		cfg.ChatLLM.Model = e.ChatModel
	}
	if e.ChunkSize != nil {
		cfg.RAG.ChunkSize = *e.ChunkSize
	}
	if e.ChunkOverlap != nil {
		cfg.RAG.ChunkOverlap = *e.ChunkOverlap
	}
	if e.TopK != nil {
		cfg.RAG.TopK = *e.TopK
	}
	if e.SentryDSN != "" {
		cfg.Sentry.DSN = e.SentryDSN
	}
	if e.SentryEnvironment != "" {
		cfg.Sentry.Environment = e.SentryEnvironment
	}
}

func (c *Config) Validate() error {
	for name, llm := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "chat_llm": c.ChatLLM} {
		if llm.Provider != ProviderOpenAI && llm.Provider != ProviderOllama {
			return fmt.Errorf("%s: unknown provider %q", name, llm.Provider)
		}
		if llm.Model == "" {
			return fmt.Errorf("%s: model is required", name)
		}
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag: chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag: chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.FrontPagesToRemove < 0 || c.RAG.LastPagesToRemove < 0 {
		return fmt.Errorf("rag: pages to remove cannot be negative")
	}
	for i, t := range c.RAG.Trims {
		if t.Front < 0 || t.Last < 0 {
			return fmt.Errorf("rag: trims[%d]: pages to remove cannot be negative", i)
		}
	}
	if c.Server.SessionIdleMins < 0 {
		return fmt.Errorf("server: session_idle_mins cannot be negative")
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag: top_k must be positive, got %d", c.RAG.TopK)
	}
	return nil
}

// KeyPrefix is the prefix enforced on user credentials. Local ollama endpoints take none.
func (c *Config) KeyPrefix() string {
	if c.EmbedLLM.Provider == ProviderOllama && c.ChatLLM.Provider == ProviderOllama {
		return ""
	}
	return c.RAG.APIKeyPrefix
}
