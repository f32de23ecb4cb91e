package config

import "time"

// DefaultCollection is the collection the retrieval application reads.
const DefaultCollection = "labia_embeddings"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Source.Directory == "" {
		cfg.Source.Directory = "./data/raw"
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 2
	}
	if cfg.Ingest.ConfirmToken == "" {
		cfg.Ingest.ConfirmToken = "SI"
	}
	if cfg.Ingest.LogDir == "" {
		cfg.Ingest.LogDir = "./data/logs"
	}
	if cfg.Extract.MinPageChars == 0 {
		cfg.Extract.MinPageChars = 20
	}
	if cfg.Extract.MinDocumentChars == 0 {
		cfg.Extract.MinDocumentChars = 50
	}
	if cfg.Extract.Tables.MinRows == 0 {
		cfg.Extract.Tables.MinRows = 2
	}
	if cfg.Extract.Tables.MinColumns == 0 {
		cfg.Extract.Tables.MinColumns = 2
	}
	if cfg.Extract.Tables.Tolerance == 0 {
		cfg.Extract.Tables.Tolerance = 4
	}
	if cfg.Extract.OCR.Language == "" {
		cfg.Extract.OCR.Language = "spa"
	}
	if cfg.Extract.OCR.DPI == 0 {
		cfg.Extract.OCR.DPI = 300
	}
	if cfg.Clean.BoilerplateThreshold == 0 {
		cfg.Clean.BoilerplateThreshold = 0.5
	}
	if cfg.Clean.MinPages == 0 {
		cfg.Clean.MinPages = 2
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = 1024
	}
	if cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Overlap = 150
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		default:
			cfg.Embedding.Model = "models/embedding-001"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Dimensions = 1536
		case "mock":
			cfg.Embedding.Dimensions = 384
		default:
			cfg.Embedding.Dimensions = 768
		}
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 5
	}
	if cfg.Embedding.BaseDelay == 0 {
		cfg.Embedding.BaseDelay = time.Second
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 5
	}
	if cfg.Embedding.Cache.Type == "" {
		cfg.Embedding.Cache.Type = "disk"
	}
	if cfg.Embedding.Cache.Path == "" {
		cfg.Embedding.Cache.Path = "./data/cache/embeddings"
	}
	if cfg.Embedding.Cache.Size == 0 {
		cfg.Embedding.Cache.Size = 10000
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "pgvector"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = DefaultCollection
	}
	pg := &cfg.Store.Postgres
	if pg.Host == "" {
		pg.Host = "localhost"
	}
	if pg.Port == 0 {
		pg.Port = 5432
	}
	if pg.Database == "" {
		pg.Database = "labia_db"
	}
	if pg.User == "" {
		pg.User = "postgres"
	}
	if pg.SSLMode == "" {
		pg.SSLMode = "disable"
	}
	if cfg.Keyword.Path == "" {
		cfg.Keyword.Path = "./data/indices/bleve"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/ledger.db"
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 50
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.3
		cfg.Search.SemanticWeight = 0.7
	}
	if cfg.Search.Candidates == 0 {
		cfg.Search.Candidates = 50
	}
	cfg.Search.Rerank.ApplyDefaults()
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}
