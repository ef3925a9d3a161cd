// Package config provides XML-based configuration for the dashboard service.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata" // zone names must resolve in minimal containers
)

// Store drivers.
const (
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"SolarDashboard"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Document store connection and schema
	Store StoreConfig `xml:"Store"`

	// Polling cadence
	Polling PollingConfig `xml:"Polling"`

	// Snapshot cache
	Cache CacheConfig `xml:"Cache"`

	// Local history archive
	Archive ArchiveConfig `xml:"Archive"`

	// Dashboard presentation
	Dashboard DashboardConfig `xml:"Dashboard"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           int    `xml:"Port"`
	BindAddress    string `xml:"BindAddress"`
	EnableCORS     bool   `xml:"EnableCORS"`
	AllowOrigins   string `xml:"AllowOrigins"`
	ReadTimeout    int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout   int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout    int    `xml:"IdleTimeoutSeconds"`
	RequestTimeout int    `xml:"RequestTimeoutSeconds"`
	BodyLimit      string `xml:"BodyLimit"`
}

// StoreConfig selects and connects the document store
type StoreConfig struct {
	Driver          string `xml:"Driver"`
	ProjectID       string `xml:"ProjectID"`
	Database        string `xml:"Database"`
	APIKey          string `xml:"APIKey"`
	BaseURL         string `xml:"BaseURL"`
	Schema          string `xml:"Schema"`
	Collection      string `xml:"Collection"`
	SolarCollection string `xml:"SolarCollection"`
	WindCollection  string `xml:"WindCollection"`
	TimeZone        string `xml:"TimeZone"`
	RequestTimeout  int    `xml:"RequestTimeoutSeconds"`
	RetryCount      int    `xml:"RetryCount"`
	SeedFile        string `xml:"SeedFile"`
}

// PollingConfig contains fetch cadence settings
type PollingConfig struct {
	IntervalSeconds     int  `xml:"IntervalSeconds"`
	FetchTimeoutSeconds int  `xml:"FetchTimeoutSeconds"`
	StrictParsing       bool `xml:"StrictParsing"`
}

// CacheConfig selects where accepted fetch results are kept
type CacheConfig struct {
	Backend       string `xml:"Backend"`
	RedisAddr     string `xml:"RedisAddr"`
	RedisPassword string `xml:"RedisPassword"`
	RedisDB       int    `xml:"RedisDB"`
	KeyPrefix     string `xml:"KeyPrefix"`
	TTLMinutes    int    `xml:"TTLMinutes"`
}

// ArchiveConfig contains DuckDB history settings
type ArchiveConfig struct {
	Enabled     bool   `xml:"Enabled"`
	Path        string `xml:"Path"`
	Threads     int    `xml:"DuckDBThreads"`
	MemoryLimit string `xml:"DuckDBMemoryLimit"`
}

// DashboardConfig contains presentation settings
type DashboardConfig struct {
	LayoutFile string `xml:"LayoutFile"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	LogFormat               string `xml:"LogFormat"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	EnableCompression       bool   `xml:"EnableCompression"`
	CompressionLevel        int    `xml:"CompressionLevel"`
	EnableMetrics           bool   `xml:"EnableMetrics"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           8089,
			BindAddress:    "0.0.0.0",
			EnableCORS:     true,
			AllowOrigins:   "*",
			ReadTimeout:    30,
			WriteTimeout:   30,
			IdleTimeout:    120,
			RequestTimeout: 30,
			BodyLimit:      "1M",
		},
		Store: StoreConfig{
			Driver:          DriverFirestore,
			Database:        "(default)",
			Schema:          "nested",
			Collection:      "solarWindData",
			SolarCollection: "Solar",
			WindCollection:  "Wind",
			TimeZone:        "UTC",
			RequestTimeout:  15,
			RetryCount:      0,
		},
		Polling: PollingConfig{
			IntervalSeconds:     30,
			FetchTimeoutSeconds: 20,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "solar-dashboard:",
			TTLMinutes: 1440,
		},
		Archive: ArchiveConfig{
			Enabled:     true,
			Path:        "./data/history.duckdb",
			Threads:     2,
			MemoryLimit: "256MB",
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			LogFormat:               "json",
			EnableRequestLogging:    true,
			EnableCompression:       true,
			CompressionLevel:        5,
			EnableMetrics:           true,
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Solar Dashboard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("FIRESTORE_PROJECT_ID"); v != "" {
		c.Store.ProjectID = v
	}
	if v := os.Getenv("FIRESTORE_API_KEY"); v != "" {
		c.Store.APIKey = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	// REDIS_ADDR implies the redis backend
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = CacheRedis
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Advanced.LogLevel = v
	}
	if v := os.Getenv("ARCHIVE_PATH"); v != "" {
		c.Archive.Path = v
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	resolve(&c.Archive.Path)
	resolve(&c.Store.SeedFile)
	resolve(&c.Dashboard.LayoutFile)
}

// Validate rejects settings the service cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverFirestore:
		if c.Store.ProjectID == "" {
			errs = append(errs, errors.New("Store.ProjectID is required for the firestore driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown Store.Driver %q", c.Store.Driver))
	}

	switch c.Store.Schema {
	case "nested", "flat":
	default:
		errs = append(errs, fmt.Errorf("unknown Store.Schema %q", c.Store.Schema))
	}

	if _, err := time.LoadLocation(c.Store.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("Store.TimeZone: %w", err))
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown Cache.Backend %q", c.Cache.Backend))
	}

	if c.Polling.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("Polling.IntervalSeconds must be positive"))
	}
	if c.Polling.FetchTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("Polling.FetchTimeoutSeconds must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid Server.Port %d", c.Server.Port))
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		errs = append(errs, errors.New("Archive.Path is required when the archive is enabled"))
	}

	return errors.Join(errs...)
}

// Location returns the zone used for timestamps stored without one.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Store.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PollInterval returns the polling interval.
func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

// FetchTimeout returns the per-fetch timeout.
func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.Polling.FetchTimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached results live; zero keeps them forever.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	if !c.Archive.Enabled {
		return nil
	}
	dir := filepath.Dir(c.Archive.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
