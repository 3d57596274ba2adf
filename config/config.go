// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config is the process configuration.
type Config struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"rpgchat"`

	StorageBackend string   `env:"STORAGE_BACKEND" envDefault:"mongo"`
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT"`

	TypingRate            int           `env:"TYPING_CHARS_PER_SECOND" envDefault:"30"`
	CharacterFetchRetries int           `env:"CHARACTER_FETCH_RETRIES" envDefault:"2"`
	CharacterFetchDelay   time.Duration `env:"CHARACTER_FETCH_DELAY" envDefault:"1s"`
}

// LoadDotenv copies variables from .env style files into the environment.
// Variables already set win. With no arguments it reads ./.env.
func LoadDotenv(files ...string) error {
	return godotenv.Load(files...)
}

// Parse reads and validates the configuration from the environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORAGE_BACKEND=%s", StorageMongo)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.TypingRate <= 0 {
		return fmt.Errorf("TYPING_CHARS_PER_SECOND must be positive, got %d", c.TypingRate)
	}
	if c.CharacterFetchRetries < 0 {
		return fmt.Errorf("CHARACTER_FETCH_RETRIES must not be negative, got %d", c.CharacterFetchRetries)
	}
	return nil
}
