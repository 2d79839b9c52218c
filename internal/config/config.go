// Package config loads the process-wide settings once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	MaxUploadMB      int64  `yaml:"max_upload_mb"`
}

// GoogleConfig names where the Gemini API key comes from.
type GoogleConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`

	// APIKey is resolved from APIKeyEnv and never read from or written to YAML.
	APIKey string `yaml:"-"`
}

// OllamaConfig contains connection details for a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Type      string        `yaml:"type"`
	Model     string        `yaml:"model"`
	BatchSize int           `yaml:"batch_size"`
	Ollama    *OllamaConfig `yaml:"ollama,omitempty"`
}

// LLMConfig selects and configures the answering model.
type LLMConfig struct {
	Type        string        `yaml:"type"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Ollama      *OllamaConfig `yaml:"ollama,omitempty"`
}

// ChunkerConfig configures how extracted text is split.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// VectorStoreConfig selects where the index lives.
type VectorStoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// RetrievalConfig configures question answering.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// CacheConfig selects the answer cache.
type CacheConfig struct {
	Type     string `yaml:"type"`
	RedisURL string `yaml:"redis_url"`
	TTLSecs  int    `yaml:"ttl_secs"`
}

// ResilienceConfig guards calls to the model providers.
type ResilienceConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxFailures       uint32  `yaml:"max_failures"`
	OpenTimeoutSecs   int     `yaml:"open_timeout_secs"`
}

// WatchConfig configures the optional inbox folder.
type WatchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	SettleSecs int    `yaml:"settle_secs"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Google      GoogleConfig      `yaml:"google"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Cache       CacheConfig       `yaml:"cache"`
	Resilience  ResilienceConfig  `yaml:"resilience"`
	Watch       WatchConfig       `yaml:"watch"`
	Log         LogConfig         `yaml:"log"`
}

// ReadTimeout returns the server read timeout.
func (c *AppConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the server write timeout.
func (c *AppConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSecs) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *AppConfig) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// CacheTTL returns the answer cache TTL; zero means no expiry.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSecs) * time.Second
}

// BreakerTimeout returns how long an open breaker rejects calls.
func (c *AppConfig) BreakerTimeout() time.Duration {
	return time.Duration(c.Resilience.OpenTimeoutSecs) * time.Second
}

// WatchSettle returns how long inbox files must stay quiet before processing.
func (c *AppConfig) WatchSettle() time.Duration {
	return time.Duration(c.Watch.SettleSecs) * time.Second
}

// LoadEnv loads a .env file into the process environment if one exists.
// Variables already set are not overridden.
func LoadEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides and the API key are applied in both cases.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	// defaults were set before unmarshalling, so explicit zeros in the file stand
	ensureProviders(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault reads ./config.yaml, falling back to defaults when it does not exist.
func LoadDefault() (*AppConfig, error) {
	return Load("config.yaml")
}

// Save writes the config to the given path.
func Save(path string, cfg *AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8501"
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 60
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 300
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 200
	}
	if cfg.Google.APIKeyEnv == "" {
		cfg.Google.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "gemini"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 100
	}
	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "gemini"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 10000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 1000
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "./data"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "memory"
	}
	if cfg.Cache.RedisURL == "" {
		cfg.Cache.RedisURL = "redis://localhost:6379/0"
	}
	if cfg.Resilience.MaxFailures == 0 {
		cfg.Resilience.MaxFailures = 5
	}
	if cfg.Resilience.OpenTimeoutSecs == 0 {
		cfg.Resilience.OpenTimeoutSecs = 30
	}
	if cfg.Watch.Dir == "" {
		cfg.Watch.Dir = "./documents"
	}
	if cfg.Watch.SettleSecs == 0 {
		cfg.Watch.SettleSecs = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// ensureProviders allocates the Ollama sections a selected ollama provider reads.
func ensureProviders(cfg *AppConfig) {
	if cfg.Embedder.Type == "ollama" && cfg.Embedder.Ollama == nil {
		cfg.Embedder.Ollama = &OllamaConfig{}
	}
	if cfg.LLM.Type == "ollama" && cfg.LLM.Ollama == nil {
		cfg.LLM.Ollama = &OllamaConfig{}
	}
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("PDFCHAT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PDFCHAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	cfg.Google.APIKey = strings.TrimSpace(os.Getenv(cfg.Google.APIKeyEnv))
}

// Validate reports the first configuration problem found.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unknown embedder: %s", c.Embedder.Type)
	}
	switch c.LLM.Type {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unknown llm: %s", c.LLM.Type)
	}
	switch c.VectorStore.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown vector store: %s", c.VectorStore.Type)
	}
	switch c.Cache.Type {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache: %s", c.Cache.Type)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}
	if c.Chunker.ChunkSize < 0 || c.Chunker.ChunkOverlap < 0 {
		return errors.New("chunk size and overlap must not be negative")
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize)
	}
	if c.Resilience.RequestsPerSecond < 0 {
		return errors.New("resilience requests_per_second must not be negative")
	}
	if c.Retrieval.TopK < 0 {
		return errors.New("retrieval top_k must not be negative")
	}
	if c.UsesGemini() && c.Google.APIKey == "" {
		return fmt.Errorf("%s is not set; it is required for the gemini provider", c.Google.APIKeyEnv)
	}
	return nil
}

// EmbedderModel returns the embedding model for the selected provider.
// For ollama, ollama.model wins over the top-level model.
func (c *AppConfig) EmbedderModel() string {
	if c.Embedder.Type == "ollama" && c.Embedder.Ollama != nil && c.Embedder.Ollama.Model != "" {
		return c.Embedder.Ollama.Model
	}
	return c.Embedder.Model
}

// LLMModel returns the generation model for the selected provider.
// For ollama, ollama.model wins over the top-level model.
func (c *AppConfig) LLMModel() string {
	if c.LLM.Type == "ollama" && c.LLM.Ollama != nil && c.LLM.Ollama.Model != "" {
		return c.LLM.Ollama.Model
	}
	return c.LLM.Model
}

// UsesGemini reports whether any provider needs a Gemini client.
func (c *AppConfig) UsesGemini() bool {
	return c.Embedder.Type == "gemini" || c.LLM.Type == "gemini"
}
