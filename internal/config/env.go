package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads variables from a .env file without overriding variables already set.
// A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values with the environment variables used by the retrieval
// application, so both sides share one .env.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("LABIA_RAW_DIR"); v != "" {
		cfg.Source.Directory = v
	}
	if v := os.Getenv("LABIA_COLLECTION"); v != "" {
		cfg.Store.Collection = v
	}
	if v := getEnvInt("RETRIEVAL_K"); v > 0 {
		cfg.Search.DefaultTopK = v
	}
	pg := &cfg.Store.Postgres
	if v := os.Getenv("DATABASE_URL"); v != "" {
		pg.DSN = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		pg.Host = v
	}
	if v := getEnvInt("POSTGRES_PORT"); v > 0 {
		pg.Port = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		pg.Database = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		pg.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		pg.Password = v
	}
}

func getEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
