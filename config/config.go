package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for paperrag.
type Config struct {
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Generate  GenerateConfig  `yaml:"generate"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
}

// IngestConfig holds document ingestion configuration.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`    // window length in characters
	ChunkOverlap int      `yaml:"chunk_overlap"` // characters shared by consecutive windows
	OCRLanguage  string   `yaml:"ocr_language"`
	Includes     []string `yaml:"includes"` // accepted document name patterns
}

// EmbeddingConfig holds the embedding inference service configuration.
type EmbeddingConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Dimension     int    `yaml:"dimension"`  // kept prefix of the native output width
	MaxTokens     int    `yaml:"max_tokens"` // tokenizer truncation length
	BatchSize     int    `yaml:"batch_size"`
	IngestPooling string `yaml:"ingest_pooling"` // "cls" or "mean"
	QueryPooling  string `yaml:"query_pooling"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK          int     `yaml:"top_k"`   // candidates fetched from the index
	FinalK        int     `yaml:"final_k"` // candidates kept after filtering
	MinSimilarity float64 `yaml:"min_similarity"`
}

// GenerateConfig holds the text generation service configuration.
type GenerateConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// StorageConfig holds on-disk layout configuration.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	UploadsDir string `yaml:"uploads_dir"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			ChunkSize:    500,
			ChunkOverlap: 100,
			OCRLanguage:  "eng",
			Includes:     []string{"**/*.pdf"},
		},
		Embedding: EmbeddingConfig{
			BaseURL:       "http://localhost:8081",
			APIKeyEnv:     "PAPERRAG_EMBED_API_KEY",
			Dimension:     128,
			MaxTokens:     512,
			BatchSize:     8,
			IngestPooling: "cls",
			QueryPooling:  "mean",
		},
		Retrieve: RetrieveConfig{
			TopK:          15,
			FinalK:        4,
			MinSimilarity: 0.40,
		},
		Generate: GenerateConfig{
			BaseURL:     "http://localhost:8082/v1",
			APIKeyEnv:   "PAPERRAG_GEN_API_KEY",
			Model:       "qwen2.5-1.5b-instruct",
			MaxTokens:   300,
			Temperature: 0.2,
		},
		Storage: StorageConfig{
			DataDir:    ".paperrag",
			UploadsDir: "uploads",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for paperrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "paperrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".paperrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexPath returns the path to the vector index file.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Storage.DataDir, "paper.index")
}

// MetaPath returns the path to the chunk metadata file written alongside
// the index. The two are always replaced and loaded as a pair.
func (c *Config) MetaPath() string {
	return filepath.Join(c.Storage.DataDir, "meta.json")
}

// CatalogPath returns the path to the ingestion catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Storage.DataDir, "catalog.db")
}

// EnsureDataDir ensures the data directory exists.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.Storage.DataDir, 0755)
}
