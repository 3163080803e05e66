package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                string
	BackendURL          string
	DatabaseURL         string
	OpenAIAPIKey        string
	DefaultLanguage     string
	SimilarityThreshold float64
	MaxResults          int
	RetentionDays       int
	PersistBuffer       int
	SlackBotToken       string
	SlackOpsChannel     string
	LogLevel            string
	LogFormat           string
	Environment         string
}

func Load() *Config {
	return &Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		BackendURL:          getEnvOrDefault("RAG_BACKEND_URL", "http://localhost:8090"),
		DatabaseURL:         getEnvOrDefault("DATABASE_URL", "postgres://localhost/lingocache?sslmode=disable"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		DefaultLanguage:     getEnvOrDefault("DEFAULT_LANGUAGE", "en"),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.6),
		MaxResults:          getEnvInt("MAX_RESULTS", 5),
		RetentionDays:       getEnvInt("RETENTION_DAYS", 30),
		PersistBuffer:       getEnvInt("PERSIST_BUFFER", 64),
		SlackBotToken:       os.Getenv("SLACK_BOT_TOKEN"),
		SlackOpsChannel:     os.Getenv("SLACK_OPS_CHANNEL"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "text"),
		Environment:         getEnvOrDefault("ENVIRONMENT", "development"),
	}
}

// Validate checks the settings the orchestration service needs.
func (c *Config) Validate() error {
	var problems []string

	if c.BackendURL == "" {
		problems = append(problems, "RAG_BACKEND_URL is required")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		problems = append(problems, "RAG_BACKEND_URL must be an http(s) URL")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		problems = append(problems, "SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.MaxResults <= 0 {
		problems = append(problems, "MAX_RESULTS must be positive")
	}
	if c.RetentionDays <= 0 {
		problems = append(problems, "RETENTION_DAYS must be positive")
	}
	if c.SlackBotToken != "" && !strings.HasPrefix(c.SlackBotToken, "xoxb-") {
		problems = append(problems, "SLACK_BOT_TOKEN must start with 'xoxb-'")
	}
	if c.SlackBotToken != "" && c.SlackOpsChannel == "" {
		problems = append(problems, "SLACK_OPS_CHANNEL is required when SLACK_BOT_TOKEN is set")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if !contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		problems = append(problems, "LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		problems = append(problems, "LOG_FORMAT must be one of: text, json")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ValidateBackend checks the settings the bundled ragstore backend needs.
func (c *Config) ValidateBackend() error {
	var problems []string

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.OpenAIAPIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Environment) == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring invalid %s=%q\n", key, raw)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring invalid %s=%q\n", key, raw)
		return defaultValue
	}
	return v
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
