// Package config provides configuration loading and structs for the LabIA ingestion pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Source    SourceConfig    `yaml:"source"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Extract   ExtractConfig   `yaml:"extract"`
	Clean     CleanConfig     `yaml:"clean"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Keyword   KeywordConfig   `yaml:"keyword"`
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
}

// SourceConfig describes where the PDFs live.
type SourceConfig struct {
	Directory string `yaml:"directory"`
	Recursive *bool  `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to walk subdirectories; defaults to false when unset.
func (s *SourceConfig) RecursiveOrDefault() bool {
	if s.Recursive != nil {
		return *s.Recursive
	}
	return false
}

// IngestConfig holds orchestrator settings.
type IngestConfig struct {
	Workers       int      `yaml:"workers"`
	TestPatterns  []string `yaml:"test_patterns"`
	SkipUnchanged bool     `yaml:"skip_unchanged"`
	ConfirmToken  string   `yaml:"confirm_token"`
	LogDir        string   `yaml:"log_dir"`
	LogFile       string   `yaml:"log_file"`
	Workbook      *bool    `yaml:"workbook"`
}

// WorkbookOrDefault returns whether the Excel run workbook is written; defaults to true.
func (i *IngestConfig) WorkbookOrDefault() bool {
	if i.Workbook != nil {
		return *i.Workbook
	}
	return true
}

// ExtractConfig holds extraction backend settings.
type ExtractConfig struct {
	MinPageChars     int       `yaml:"min_page_chars"`
	MinDocumentChars int       `yaml:"min_document_chars"`
	Tables           TableConf `yaml:"tables"`
	OCR              OCRConfig `yaml:"ocr"`
}

// TableConf holds table detection settings.
type TableConf struct {
	Disabled   bool    `yaml:"disabled"`
	MinRows    int     `yaml:"min_rows"`
	MinColumns int     `yaml:"min_columns"`
	Tolerance  float64 `yaml:"tolerance"`
}

// OCRConfig holds OCR fallback settings.
type OCRConfig struct {
	Disabled bool    `yaml:"disabled"`
	Language string  `yaml:"language"`
	DPI      float64 `yaml:"dpi"`
}

// CleanConfig holds boilerplate detection settings.
type CleanConfig struct {
	BoilerplateThreshold float64 `yaml:"boilerplate_threshold"`
	MinPages             int     `yaml:"min_pages"`
}

// ChunkConfig holds chunk sizing in tokens.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	QueryModel        string        `yaml:"query_model"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Dimensions        int           `yaml:"dimensions"`
	BatchSize         int           `yaml:"batch_size"`
	MaxRetries        int           `yaml:"max_retries"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Cache             CacheConfig   `yaml:"cache"`
}

// CacheConfig selects the embedding cache.
type CacheConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
}

// StoreConfig holds vector store settings.
type StoreConfig struct {
	Type       string         `yaml:"type"`
	Collection string         `yaml:"collection"`
	Path       string         `yaml:"path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds connection settings for the pgvector store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// ConnString returns the DSN, building a URL from the discrete fields when DSN is empty.
func (p *PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// KeywordConfig holds the bleve index settings.
type KeywordConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

// StorageConfig holds the run ledger location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultTopK    int          `yaml:"default_top_k"`
	MaxTopK        int          `yaml:"max_top_k"`
	KeywordWeight  float64      `yaml:"keyword_weight"`
	SemanticWeight float64      `yaml:"semantic_weight"`
	Candidates     int          `yaml:"candidates"`
	Rerank         RerankConfig `yaml:"rerank"`
}

// RerankConfig tunes the metadata-aware re-ranking applied after fusion.
type RerankConfig struct {
	Disabled           bool    `yaml:"disabled"`
	ContentWeight      float64 `yaml:"content_weight"`
	MetadataWeight     float64 `yaml:"metadata_weight"`
	PhraseMultiplier   float64 `yaml:"phrase_multiplier"`
	TableMultiplier    float64 `yaml:"table_multiplier"`
	NegationMultiplier float64 `yaml:"negation_multiplier"`
}

// ApplyDefaults fills unset weights and multipliers.
func (r *RerankConfig) ApplyDefaults() {
	if r.ContentWeight == 0 {
		r.ContentWeight = 0.15
	}
	if r.MetadataWeight == 0 {
		r.MetadataWeight = 0.25
	}
	if r.PhraseMultiplier == 0 {
		r.PhraseMultiplier = 1.2
	}
	if r.TableMultiplier == 0 {
		r.TableMultiplier = 1.15
	}
	if r.NegationMultiplier == 0 {
		r.NegationMultiplier = 0.5
	}
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads and parses the config file at path, applies environment overrides, expands paths,
// and applies defaults. A missing file is not an error: defaults and environment are used and
// relative paths resolve against the working directory.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			configDir = filepath.Dir(path)
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	cfg.Source.Directory = expandPath(cfg.Source.Directory, configDir)
	cfg.Ingest.LogDir = expandPath(cfg.Ingest.LogDir, configDir)
	if cfg.Ingest.LogFile != "" {
		cfg.Ingest.LogFile = expandPath(cfg.Ingest.LogFile, configDir)
	}
	cfg.Embedding.Cache.Path = expandPath(cfg.Embedding.Cache.Path, configDir)
	cfg.Keyword.Path = expandPath(cfg.Keyword.Path, configDir)
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks settings that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", c.Chunk.Overlap, c.Chunk.Size)
	}
	if c.Clean.BoilerplateThreshold <= 0 || c.Clean.BoilerplateThreshold >= 1 {
		return fmt.Errorf("boilerplate threshold must be in (0,1), got %v", c.Clean.BoilerplateThreshold)
	}
	switch c.Store.Type {
	case "memory", "pgvector":
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	switch c.Embedding.Provider {
	case "gemini", "openai", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "gemini" && c.Embedding.APIKey == "" {
		return errors.New("gemini embedding provider requires an API key (GOOGLE_API_KEY)")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
