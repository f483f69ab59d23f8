package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultUser is the portfolio owner when GITHUB_USER is not set
const DefaultUser = "tambunjb"

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubUser   string
	GitHubToken  string // optional; requests are unauthenticated when empty
	GitHubAPIURL string
	GitHubRawURL string
	ReadmeBranch string
	ReadmePath   string
	ListRetries  int

	// Repository selection
	IncludeForks    bool
	IncludeArchived bool

	// Site export
	OutputDir string
	SiteTitle string

	// Storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// Preview server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string

	LogLevel string
}

// Load loads the configuration from environment variables. Variables are
// first read from envFiles, or from ./.env when none are given; variables
// already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
	} else {
		// Load .env file if it exists (ignore error if not found)
		_ = godotenv.Load()
	}

	listRetries, err := getEnvInt("LIST_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	includeForks, err := getEnvBool("INCLUDE_FORKS", true)
	if err != nil {
		return nil, err
	}
	includeArchived, err := getEnvBool("INCLUDE_ARCHIVED", true)
	if err != nil {
		return nil, err
	}

	return &Config{
		GitHubUser:      getEnv("GITHUB_USER", DefaultUser),
		GitHubToken:     getEnv("GITHUB_TOKEN", ""),
		GitHubAPIURL:    getEnv("GITHUB_API_URL", "https://api.github.com/"),
		GitHubRawURL:    getEnv("GITHUB_RAW_URL", "https://raw.githubusercontent.com/"),
		ReadmeBranch:    getEnv("README_BRANCH", "main"),
		ReadmePath:      getEnv("README_PATH", "README.md"),
		ListRetries:     listRetries,
		IncludeForks:    includeForks,
		IncludeArchived: includeArchived,
		OutputDir:       getEnv("OUTPUT_DIR", "./out"),
		SiteTitle:       getEnv("SITE_TITLE", ""),
		StorageType:     getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:      getEnv("SQLITE_PATH", "./portfolio.db"),
		PostgresURL:     getEnv("POSTGRES_URL", ""),
		APIPort:         getEnv("API_PORT", "8080"),
		APIHost:         getEnv("API_HOST", "localhost"),
		APIEndpoint:     getEnv("API_ENDPOINT", "http://localhost:8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &ConfigError{Field: key, Message: "must be a boolean"}
	}
	return b, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHubUser == "" {
		return &ConfigError{Field: "GITHUB_USER", Message: "GitHub user is required"}
	}
	if c.ListRetries < 0 {
		return &ConfigError{Field: "LIST_RETRIES", Message: "must not be negative"}
	}
	if c.ReadmeBranch == "" || c.ReadmePath == "" {
		return &ConfigError{Field: "README_BRANCH", Message: "README branch and path are required"}
	}
	return c.ValidateStorage()
}

// ValidateStorage checks only the storage settings. The preview server takes
// the user from the request path, so it needs nothing more.
func (c *Config) ValidateStorage() error {
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
