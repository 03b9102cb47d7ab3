// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Snapshot backends.
const (
	SnapshotLocal  = "local"
	SnapshotGCS    = "gcs"
	SnapshotMemory = "memory"
)

// EnvPrefix prefixes every environment override, e.g. GRADCAFE_DB_DSN.
const EnvPrefix = "GRADCAFE"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the dashboard HTTP server.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ReadTimeoutSeconds     int `mapstructure:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// ScrapeConfig governs the listing crawl.
type ScrapeConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	MaxEntries     int    `mapstructure:"max_entries"`
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// RequestsPerSecond throttles page fetches per host; 0 disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// Headless modes.
const (
	HeadlessOff    = "off"
	HeadlessAlways = "always"
	// HeadlessAuto re-fetches through Chrome only pages that look client-rendered.
	HeadlessAuto = "auto"
)

// HeadlessConfig controls when listing pages are fetched through headless Chrome.
type HeadlessConfig struct {
	Mode          string `mapstructure:"mode"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	WaitSelector  string `mapstructure:"wait_selector"`
	SettleMillis  int    `mapstructure:"settle_ms"`
}

// SnapshotConfig selects where the dataset snapshot lives.
type SnapshotConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN                    string `mapstructure:"dsn"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
}

// PubSubConfig holds the run-notification topic. Notifications are off when TopicName
// is empty.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. With an empty path, a config.yaml in
// ".", /etc/gradcafe or $HOME/.gradcafe is used when present; defaults and GRADCAFE_*
// variables apply otherwise.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gradcafe/")
		v.AddConfigPath("$HOME/.gradcafe")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("scrape.base_url", "https://www.thegradcafe.com/survey/")
	v.SetDefault("scrape.max_entries", 30000)
	v.SetDefault("scrape.user_agent", "gradcafe-crawler/0.1")
	v.SetDefault("scrape.respect_robots", false)
	v.SetDefault("scrape.timeout_seconds", 30)
	v.SetDefault("scrape.requests_per_second", 2.0)
	v.SetDefault("headless.mode", HeadlessOff)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.wait_selector", "table")
	v.SetDefault("headless.settle_ms", 0)
	v.SetDefault("snapshot.backend", SnapshotLocal)
	v.SetDefault("snapshot.path", "data/applicant_data.json")
	v.SetDefault("snapshot.gcs_object", "applicant_data.json")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "applicants")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	base, err := url.Parse(c.Scrape.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("scrape.base_url must be an absolute http(s) URL")
	}
	if c.Scrape.MaxEntries < 0 {
		return fmt.Errorf("scrape.max_entries must be >= 0")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	if c.Scrape.RequestsPerSecond < 0 {
		return fmt.Errorf("scrape.requests_per_second must be >= 0")
	}
	switch c.Headless.Mode {
	case HeadlessOff:
	case HeadlessAlways, HeadlessAuto:
		if c.Headless.NavTimeoutSec <= 0 {
			return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
		}
	default:
		return fmt.Errorf("headless.mode must be one of off, always, auto; got %q", c.Headless.Mode)
	}
	switch c.Snapshot.Backend {
	case SnapshotLocal:
		if strings.TrimSpace(c.Snapshot.Path) == "" {
			return fmt.Errorf("snapshot.path is required for the local backend")
		}
	case SnapshotGCS:
		if c.Snapshot.GCSBucket == "" || c.Snapshot.GCSObject == "" {
			return fmt.Errorf("snapshot.gcs_bucket and snapshot.gcs_object are required for the gcs backend")
		}
	case SnapshotMemory:
	default:
		return fmt.Errorf("snapshot.backend must be one of local, gcs, memory; got %q", c.Snapshot.Backend)
	}
	if c.DB.MinConns < 0 || c.DB.MaxConns < 0 || (c.DB.MaxConns > 0 && c.DB.MinConns > c.DB.MaxConns) {
		return fmt.Errorf("db.min_conns must be between 0 and db.max_conns")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required when pubsub.topic_name is set")
	}
	return nil
}

// ScrapeTimeout is the per-page fetch timeout.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// HeadlessEnabled reports whether a headless browser is needed.
func (c Config) HeadlessEnabled() bool {
	return c.Headless.Mode == HeadlessAlways || c.Headless.Mode == HeadlessAuto
}

// DatabaseEnabled reports whether a DSN is configured.
func (c Config) DatabaseEnabled() bool {
	return c.DB.DSN != ""
}
