// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	AdminJWTSecret string
}

// ForumConfig holds everything needed to talk to the forum API
type ForumConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string // the bot's publishing identity
	Password     string
	UserAgent    string
	ReadRPS      float64 // client-side read limiter
	WriteSpacing time.Duration
}

// TaxonomyConfig holds the taxonomy table and lookup API settings
type TaxonomyConfig struct {
	TablePath string // CSV override; empty means the embedded table
	APIBase   string
	APIKey    string
}

// VaultConfig holds the persistent mirror settings
type VaultConfig struct {
	URI string // Postgres DSN; empty disables the live vault
}

// PipelineConfig holds ingestion timing knobs
type PipelineConfig struct {
	Lookback           time.Duration
	CommentInterval    time.Duration
	SubmissionInterval time.Duration
	PageSize           int
}

// Config holds the complete application configuration
type Config struct {
	Server          *ServerConfig
	Forum           *ForumConfig
	Taxonomy        *TaxonomyConfig
	Vault           *VaultConfig
	Pipeline        *PipelineConfig
	Reviewers       []string
	NonParticipants []string
	LogLevel        string
	Debug           bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
	}
}

// DefaultPipelineConfig provides default ingestion timings
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Lookback:           36 * time.Hour,
		CommentInterval:    60 * time.Second,
		SubmissionInterval: 180 * time.Second,
		PageSize:           100,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// A missing .env is fine; env vars may be set directly.
	for _, location := range []string{".env", "../../.env"} {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	serverConfig := DefaultConfig()
	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			serverConfig.Port = port
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}
	serverConfig.AdminJWTSecret = os.Getenv("ADMIN_JWT_SECRET")

	forum := &ForumConfig{
		BaseURL:      getEnvOrDefault("FORUM_BASE_URL", "https://oauth.reddit.com"),
		ClientID:     os.Getenv("FORUM_CLIENT_ID"),
		ClientSecret: os.Getenv("FORUM_CLIENT_SECRET"),
		Username:     os.Getenv("FORUM_USERNAME"),
		Password:     os.Getenv("FORUM_PASSWORD"),
		UserAgent:    getEnvOrDefault("FORUM_USER_AGENT", "bird-board/1.0"),
		ReadRPS:      0.9,
		WriteSpacing: 10 * time.Second,
	}
	if rps := os.Getenv("FORUM_READ_RPS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil && v > 0 {
			forum.ReadRPS = v
		}
	}
	if spacing := os.Getenv("FORUM_WRITE_SPACING_SECONDS"); spacing != "" {
		if v, err := strconv.Atoi(spacing); err == nil && v > 0 {
			forum.WriteSpacing = time.Duration(v) * time.Second
		}
	}
	if forum.Username == "" {
		return nil, fmt.Errorf("FORUM_USERNAME environment variable is required")
	}

	taxonomy := &TaxonomyConfig{
		TablePath: os.Getenv("TAXONOMY_TABLE"),
		APIBase:   getEnvOrDefault("TAXONOMY_API_URL", "https://api.ebird.org/v2"),
		APIKey:    os.Getenv("TAXONOMY_API_KEY"),
	}

	vault := &VaultConfig{URI: os.Getenv("DATABASE_URL")}

	pipeline := DefaultPipelineConfig()
	if hours := os.Getenv("LOOKBACK_HOURS"); hours != "" {
		if v, err := strconv.Atoi(hours); err == nil && v > 0 {
			pipeline.Lookback = time.Duration(v) * time.Hour
		}
	}
	if secs := os.Getenv("COMMENT_POLL_SECONDS"); secs != "" {
		if v, err := strconv.Atoi(secs); err == nil && v > 0 {
			pipeline.CommentInterval = time.Duration(v) * time.Second
		}
	}
	if secs := os.Getenv("SUBMISSION_POLL_SECONDS"); secs != "" {
		if v, err := strconv.Atoi(secs); err == nil && v > 0 {
			pipeline.SubmissionInterval = time.Duration(v) * time.Second
		}
	}

	config := &Config{
		Server:          serverConfig,
		Forum:           forum,
		Taxonomy:        taxonomy,
		Vault:           vault,
		Pipeline:        pipeline,
		Reviewers:       splitList(os.Getenv("REVIEWERS")),
		NonParticipants: splitList(os.Getenv("NON_PARTICIPANTS")),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:           os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
