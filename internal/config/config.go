// Package config loads the engine configuration from YAML, applying defaults
// and validating ranges before anything downstream runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the full runtime configuration.
type Config struct {
	Report ReportConfig `yaml:"report"`
	Server ServerConfig `yaml:"server"`
	Source SourceConfig `yaml:"source"`
	Cache  CacheConfig  `yaml:"cache"`
}

// ReportConfig tunes the attribution engine.
type ReportConfig struct {
	// IVThreshold is the minimum IV (exclusive) for a factor to be expanded
	// into drill-down tables. IV is in percent units.
	IVThreshold float64 `yaml:"iv_threshold"`
	// TopN bounds detail tables.
	TopN int `yaml:"top_n"`
	// CostBins is the quantile count for baseline-anchored cost binning.
	CostBins int `yaml:"cost_bins"`
	// MaxCategoryBins caps bin counts for composition factors.
	MaxCategoryBins int `yaml:"max_category_bins"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string  `yaml:"host"`
	Port            int     `yaml:"port"`
	ReadTimeoutSec  int     `yaml:"read_timeout_sec"`
	WriteTimeoutSec int     `yaml:"write_timeout_sec"`
	RateRPS         float64 `yaml:"rate_rps"`
	RateBurst       int     `yaml:"rate_burst"`
}

// SourceConfig selects and configures the table source.
type SourceConfig struct {
	// Driver is one of csv, postgres, clickhouse.
	Driver string `yaml:"driver"`
	// DSN is the connection string for database drivers.
	DSN string `yaml:"dsn"`
	// Dir is the directory holding the CSV tables for the csv driver.
	Dir string `yaml:"dir"`
	// Breaker guards flaky database backends with a circuit breaker.
	Breaker bool `yaml:"breaker"`
}

// CacheConfig configures the caller-side report cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	TTLSec  int    `yaml:"ttl_sec"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Report: ReportConfig{
			IVThreshold:     20,
			TopN:            5,
			CostBins:        10,
			MaxCategoryBins: 20,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeoutSec:  10,
			WriteTimeoutSec: 10,
			RateRPS:         5,
			RateBurst:       10,
		},
		Source: SourceConfig{
			Driver: "csv",
			Dir:    "./data",
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
			TTLSec:  300,
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and driver names.
func (c *Config) Validate() error {
	if c.Report.IVThreshold < 0 {
		return fmt.Errorf("report.iv_threshold must be >= 0, got %v", c.Report.IVThreshold)
	}
	if c.Report.TopN < 1 {
		return fmt.Errorf("report.top_n must be >= 1, got %d", c.Report.TopN)
	}
	if c.Report.CostBins < 2 {
		return fmt.Errorf("report.cost_bins must be >= 2, got %d", c.Report.CostBins)
	}
	if c.Report.MaxCategoryBins < 2 {
		return fmt.Errorf("report.max_category_bins must be >= 2, got %d", c.Report.MaxCategoryBins)
	}
	switch c.Source.Driver {
	case "csv", "postgres", "clickhouse":
	default:
		return fmt.Errorf("source.driver must be csv, postgres or clickhouse, got %q", c.Source.Driver)
	}
	if c.Source.Driver != "csv" && c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required for driver %q", c.Source.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}
	return nil
}
