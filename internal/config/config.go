package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/vbonduro/roadiebag/internal/db"
)

type Config struct {
	ListenAddr  string
	DBDriver    string
	DBPath      string
	DatabaseURL string
	LogLevel    string
	LogFile     string
	// RandomSeed fixes the draw sequence. Nil means seed from entropy.
	RandomSeed *uint64
}

// Load reads configuration from the environment. Variables in the file named
// by ENV_FILE (default .env) are applied first, without overriding anything
// already set. A missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DBPath:      getEnv("DB_PATH", "/data/roadiebag.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
	}

	if s := getEnv("RANDOM_SEED", ""); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RANDOM_SEED %q: %w", s, err)
		}
		cfg.RandomSeed = &seed
	}

	return cfg, nil
}

// DSN is the data source for the configured driver: a file path for SQLite,
// a connection URL for PostgreSQL. The driver name is interpreted exactly as
// db.ParseDialect does.
func (c *Config) DSN() string {
	if d, err := db.ParseDialect(c.DBDriver); err == nil && d == db.Postgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
