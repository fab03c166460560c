// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Export   ExportConfig   `mapstructure:"export"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// UpstreamConfig holds settings for the SellerQI aggregation API that
// serves the pre-computed category payloads.
type UpstreamConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	PageLimit  int    `mapstructure:"page_limit"`
	MaxRetries int    `mapstructure:"max_retries"`
}

func (u UpstreamConfig) RequestTimeout() time.Duration {
	if u.Timeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(u.Timeout) * time.Millisecond
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	IssueIndex string   `mapstructure:"issue_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls category-cache freshness.
type CacheConfig struct {
	PageTTL      int `mapstructure:"page_ttl"`      // seconds, default 300
	DashboardTTL int `mapstructure:"dashboard_ttl"` // seconds, default 3600
	JanitorTTL   int `mapstructure:"janitor_ttl"`   // seconds, hard Redis expiry
}

func (c CacheConfig) PageFreshness() time.Duration {
	if c.PageTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.PageTTL) * time.Second
}

func (c CacheConfig) DashboardFreshness() time.Duration {
	if c.DashboardTTL <= 0 {
		return time.Hour
	}
	return time.Duration(c.DashboardTTL) * time.Second
}

func (c CacheConfig) JanitorExpiry() time.Duration {
	if c.JanitorTTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JanitorTTL) * time.Second
}

// AlertsConfig holds settings for issue-threshold notifications.
type AlertsConfig struct {
	IssueThreshold int `mapstructure:"issue_threshold"`
	Email          struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// ExportConfig holds CSV/NDJSON export settings.
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
