// config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidDriver            = errors.New("database.driver must be one of: mysql, postgres, sqlite3")
	ErrMissingDatabase          = errors.New("database.dsn, database.dbname or database.path is required")
	ErrNoSources                = errors.New("fetch.sources needs at least one entry")
	ErrSourceMissingURL         = errors.New("fetch.sources entries need current_url and archive_url")
	ErrArchiveURLMissingYear    = errors.New("fetch.sources archive_url must contain {year}")
	ErrInvalidMaxAttempts       = errors.New("fetch.retry.max_attempts must be at least 1")
	ErrInvalidBackoffMultiplier = errors.New("fetch.retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("fetch.retry.attempt_timeout must be positive")
	ErrInvalidConcurrency       = errors.New("fetch.concurrency must be at least 1")
	ErrMissingDataDir           = errors.New("fetch.data_dir is required")
	ErrInvalidChunkSize         = errors.New("ingest.chunk_size must be at least 1")
	ErrNoEncodings              = errors.New("ingest.encodings needs at least one entry")
	ErrInvalidLookback          = errors.New("sync.default_lookback_days must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Export locations published by SAM.gov. The falextracts bucket mirrors the same files without the privacy query.
const (
	DefaultPrimaryCurrentURL = "https://sam.gov/api/prod/fileextractservices/v1/api/download/Contract%20Opportunities/datagov/ContractOpportunitiesFullCSV.csv?privacy=Public"
	DefaultPrimaryArchiveURL = "https://sam.gov/api/prod/fileextractservices/v1/api/download/Contract%20Opportunities/Archived%20Data/FY{year}_archived_opportunities.csv?privacy=Public"
	DefaultMirrorCurrentURL  = "https://falextracts.s3.amazonaws.com/Contract%20Opportunities/datagov/ContractOpportunitiesFullCSV.csv"
	DefaultMirrorArchiveURL  = "https://falextracts.s3.amazonaws.com/Contract%20Opportunities/Archived%20Data/FY{year}_archived_opportunities.csv"
)

type ServerConfig struct {
	Port              string        `yaml:"port"`
	UpdateIntervalStr string        `yaml:"update_interval"` // empty disables the scheduler
	UpdateInterval    time.Duration `yaml:"-"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql, postgres, sqlite3
	DSN      string `yaml:"dsn"`    // overrides the fields below when set
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Path     string `yaml:"path"` // sqlite3 file
}

// ConnString builds the driver specific data source name.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.DBName)
	case "sqlite3":
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", d.Path)
	default:
		// username:password@protocol(address)/dbname?param=value
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4", d.User, d.Password, d.Host, d.Port, d.DBName)
	}
}

// SourceConfig is one download strategy. ArchiveURL carries a {year} placeholder.
type SourceConfig struct {
	Name       string `yaml:"name"`
	CurrentURL string `yaml:"current_url"`
	ArchiveURL string `yaml:"archive_url"`
}

// ArchiveFor returns the archive URL of a fiscal year.
func (s SourceConfig) ArchiveFor(fiscalYear int) string {
	return strings.ReplaceAll(s.ArchiveURL, "{year}", strconv.Itoa(fiscalYear))
}

// RetryPolicy defines retry behavior per source.
type RetryPolicy struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialDelayStr   string        `yaml:"initial_delay"`
	MaxDelayStr       string        `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	AttemptTimeoutStr string        `yaml:"attempt_timeout"`
	InitialDelay      time.Duration `yaml:"-"`
	MaxDelay          time.Duration `yaml:"-"`
	AttemptTimeout    time.Duration `yaml:"-"`
}

// Delay returns the wait before attempt n (1-based). The first attempt never waits.
func (rp RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := float64(rp.InitialDelay)
	for i := 2; i < attempt; i++ {
		delay *= rp.BackoffMultiplier
	}

	if rp.MaxDelay > 0 && time.Duration(delay) > rp.MaxDelay {
		return rp.MaxDelay
	}
	return time.Duration(delay)
}

type FetchConfig struct {
	Sources           []SourceConfig `yaml:"sources"`
	Retry             RetryPolicy    `yaml:"retry"`
	RequestsPerSecond float64        `yaml:"requests_per_second"`
	Concurrency       int            `yaml:"concurrency"`
	DataDir           string         `yaml:"data_dir"`
	ReuseArchives     bool           `yaml:"reuse_archives"`
	UserAgent         string         `yaml:"user_agent"`
}

type IngestConfig struct {
	ChunkSize      int      `yaml:"chunk_size"`
	Encodings      []string `yaml:"encodings"`
	MaxRecordBytes int      `yaml:"max_record_bytes"` // one CSV record, quoted newlines included
}

type SyncConfig struct {
	DefaultLookbackDays int `yaml:"default_lookback_days"`
	BootstrapYears      int `yaml:"bootstrap_years"` // default start year = end year - (bootstrap_years - 1)
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Sync     SyncConfig     `yaml:"sync"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Default returns a configuration that runs against a local sqlite file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.parseDurations(); err != nil {
		panic(err) // defaults are constants
	}
	return cfg
}

// potentialPaths are tried in order when no config path is given.
var potentialPaths = []string{
	"config.yaml",
	"config/config.yaml",
	"/etc/samsync/config.yaml",
}

// LoadConfig reads .env, the YAML file and SAMSYNC_* environment overrides, then validates the result.
// An empty path searches the usual locations and falls back to defaults when none exists.
func LoadConfig(configPath string) (*Config, error) {
	// Both files are optional. Variables already set in the environment win.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if configPath == "" {
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	var cfg Config
	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		slog.Debug("configuration loaded", "path", configPath)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SAMSYNC_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SAMSYNC_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SAMSYNC_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("SAMSYNC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SAMSYNC_DATA_DIR"); v != "" {
		c.Fetch.DataDir = v
	}
	if v := os.Getenv("SAMSYNC_PORT"); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.Driver == "sqlite3" && c.Database.Path == "" && c.Database.DSN == "" {
		c.Database.Path = "samsync.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == "" {
		switch c.Database.Driver {
		case "postgres":
			c.Database.Port = "5432"
		default:
			c.Database.Port = "3306"
		}
	}
	if len(c.Fetch.Sources) == 0 {
		c.Fetch.Sources = []SourceConfig{
			{Name: "primary", CurrentURL: DefaultPrimaryCurrentURL, ArchiveURL: DefaultPrimaryArchiveURL},
			{Name: "mirror", CurrentURL: DefaultMirrorCurrentURL, ArchiveURL: DefaultMirrorArchiveURL},
		}
	}
	if c.Fetch.Retry.MaxAttempts == 0 {
		c.Fetch.Retry.MaxAttempts = 3
	}
	if c.Fetch.Retry.InitialDelayStr == "" {
		c.Fetch.Retry.InitialDelayStr = "2s"
	}
	if c.Fetch.Retry.MaxDelayStr == "" {
		c.Fetch.Retry.MaxDelayStr = "1m"
	}
	if c.Fetch.Retry.BackoffMultiplier == 0 {
		c.Fetch.Retry.BackoffMultiplier = 2.0
	}
	if c.Fetch.Retry.AttemptTimeoutStr == "" {
		c.Fetch.Retry.AttemptTimeoutStr = "30m" // full exports run to several GB
	}
	if c.Fetch.RequestsPerSecond == 0 {
		c.Fetch.RequestsPerSecond = 1
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = 1
	}
	if c.Fetch.DataDir == "" {
		c.Fetch.DataDir = "data"
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "samsync/1.0"
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 5000
	}
	if len(c.Ingest.Encodings) == 0 {
		c.Ingest.Encodings = []string{"utf-8", "windows-1252", "iso-8859-1"}
	}
	if c.Ingest.MaxRecordBytes == 0 {
		c.Ingest.MaxRecordBytes = 8 << 20
	}
	if c.Sync.DefaultLookbackDays == 0 {
		c.Sync.DefaultLookbackDays = 14
	}
	if c.Sync.BootstrapYears == 0 {
		c.Sync.BootstrapYears = 3
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) parseDurations() error {
	var err error
	if c.Fetch.Retry.InitialDelay, err = time.ParseDuration(c.Fetch.Retry.InitialDelayStr); err != nil {
		return fmt.Errorf("failed to parse fetch.retry.initial_delay: %w", err)
	}
	if c.Fetch.Retry.MaxDelay, err = time.ParseDuration(c.Fetch.Retry.MaxDelayStr); err != nil {
		return fmt.Errorf("failed to parse fetch.retry.max_delay: %w", err)
	}
	if c.Fetch.Retry.AttemptTimeout, err = time.ParseDuration(c.Fetch.Retry.AttemptTimeoutStr); err != nil {
		return fmt.Errorf("failed to parse fetch.retry.attempt_timeout: %w", err)
	}
	if c.Server.UpdateIntervalStr != "" {
		if c.Server.UpdateInterval, err = time.ParseDuration(c.Server.UpdateIntervalStr); err != nil {
			return fmt.Errorf("failed to parse server.update_interval: %w", err)
		}
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite3":
	default:
		errs = append(errs, ErrInvalidDriver)
	}
	if c.Database.DSN == "" && c.Database.DBName == "" && c.Database.Path == "" {
		errs = append(errs, ErrMissingDatabase)
	}

	if len(c.Fetch.Sources) == 0 {
		errs = append(errs, ErrNoSources)
	}
	for i, src := range c.Fetch.Sources {
		if src.CurrentURL == "" || src.ArchiveURL == "" {
			errs = append(errs, fmt.Errorf("%w: sources[%d]", ErrSourceMissingURL, i))
			continue
		}
		if !strings.Contains(src.ArchiveURL, "{year}") {
			errs = append(errs, fmt.Errorf("%w: sources[%d]", ErrArchiveURLMissingYear, i))
		}
	}

	if c.Fetch.Retry.MaxAttempts < 1 {
		errs = append(errs, ErrInvalidMaxAttempts)
	}
	if c.Fetch.Retry.BackoffMultiplier < 1.0 {
		errs = append(errs, ErrInvalidBackoffMultiplier)
	}
	if c.Fetch.Retry.AttemptTimeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.Fetch.Concurrency < 1 {
		errs = append(errs, ErrInvalidConcurrency)
	}
	if c.Fetch.DataDir == "" {
		errs = append(errs, ErrMissingDataDir)
	}

	if c.Ingest.ChunkSize < 1 {
		errs = append(errs, ErrInvalidChunkSize)
	}
	if len(c.Ingest.Encodings) == 0 {
		errs = append(errs, ErrNoEncodings)
	}
	if c.Sync.DefaultLookbackDays < 1 {
		errs = append(errs, ErrInvalidLookback)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ErrInvalidLogLevel)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, ErrInvalidLogFormat)
	}

	return errors.Join(errs...)
}

// ExportPath is where the export for key (e.g. "FY2023" or "CURRENT") is stored locally.
func (c *Config) ExportPath(key string) string {
	return filepath.Join(c.Fetch.DataDir, "exports", key+".csv")
}
