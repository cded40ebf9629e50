package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Scrape ScrapeConfig
	Files  FilesConfig
	Store  StoreConfig
	LLM    LLMConfig
}

// ScrapeConfig holds portal scraping configuration
type ScrapeConfig struct {
	BaseURL     string
	EntryPath   string
	OutputFile  string
	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration
	RunBudget   time.Duration
}

// FilesConfig holds downloaded-PDF storage configuration
type FilesConfig struct {
	BaseDir string
}

// StoreConfig holds database configuration. DSN (Postgres) wins when set;
// otherwise Path selects a SQLite database file.
type StoreConfig struct {
	DSN  string
	Path string
}

// LLMConfig holds LLM extraction configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			BaseURL:     getEnv("BASE_URL", ""),
			EntryPath:   getEnv("ENTRY_PATH", "/en/online-business/quotation/detention-demurrage.html"),
			OutputFile:  getEnv("OUTPUT_FILE", "scrape_results.json"),
			MaxRetries:  getEnvAsInt("MAX_RETRIES", 3),
			RetryDelay:  getEnvAsDuration("RETRY_DELAY", 2*time.Second),
			HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
			RunBudget:   getEnvAsDuration("RUN_BUDGET", 0),
		},
		Files: FilesConfig{
			BaseDir: getEnv("FILES_DIR", "files"),
		},
		Store: StoreConfig{
			DSN:  getEnv("DB_URL", ""),
			Path: getEnv("DB_PATH", "scraper_data.db"),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4-turbo"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// plain integers are read as seconds (RETRY_DELAY=2 style env files)
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ValidateScrape checks the fields the scraping entry point needs.
func (c *Config) ValidateScrape() error {
	if c.Scrape.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "BASE_URL is required", ErrInvalidInput)
	}
	if c.Scrape.MaxRetries < 1 {
		return NewAppError("CONFIG_ERROR", "MAX_RETRIES must be at least 1", ErrInvalidInput)
	}
	return nil
}

// ValidateExtract checks the fields the extraction entry point needs.
func (c *Config) ValidateExtract() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}
