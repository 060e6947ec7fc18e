// Package config provides YAML configuration with layered defaults.
// Priority: defaults < config file < environment < flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all daftar configuration.
type Config struct {
	Version int `yaml:"version"`

	Server    ServerConfig    `yaml:"server"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig for the dashboard HTTP server.
type ServerConfig struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	MaxUploadMB   int64    `yaml:"max_upload_mb"`
	CORSOrigins   []string `yaml:"cors_origins"`
	OpenBrowser   bool     `yaml:"open_browser"`
	UploadTempDir string   `yaml:"upload_temp_dir"`
}

// AnalysisConfig controls report defaults.
type AnalysisConfig struct {
	// TopRegencies etc. bound the "top N" tables.
	TopRegencies   int `yaml:"top_regencies"`
	TopOccupations int `yaml:"top_occupations"`
	TopSchools     int `yaml:"top_schools"`

	// HighlightRegion is counted in the summary section.
	HighlightRegion string `yaml:"highlight_region"`

	// Engine selects the aggregation engine: native | duckdb.
	Engine string `yaml:"engine"`
}

// CacheConfig for the report cache.
type CacheConfig struct {
	Backend string        `yaml:"backend"` // memory | redis | none
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig for the Redis cache backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
	Prefix   string `yaml:"prefix"`
}

// StorageConfig for job persistence.
type StorageConfig struct {
	JobsFile      string        `yaml:"jobs_file"`
	JobsRetention time.Duration `yaml:"jobs_retention"`
}

// TelemetryConfig for optional OTLP tracing.
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint"`
	SamplingRatio float64 `yaml:"sampling_ratio"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	daftarDir := filepath.Join(homeDir, ".daftar")

	return &Config{
		Version: 1,
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8080,
			MaxUploadMB:   200,
			CORSOrigins:   []string{"*"},
			OpenBrowser:   true,
			UploadTempDir: filepath.Join(os.TempDir(), "daftar"),
		},
		Analysis: AnalysisConfig{
			TopRegencies:    10,
			TopOccupations:  8,
			TopSchools:      10,
			HighlightRegion: "JAWA BARAT",
			Engine:          "native",
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     time.Hour,
			Redis: RedisConfig{
				Address: "localhost:6379",
				Prefix:  "daftar:reports:",
			},
		},
		Storage: StorageConfig{
			JobsFile:      filepath.Join(daftarDir, "jobs.json"),
			JobsRetention: 7 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			Endpoint:      "localhost:4317",
			SamplingRatio: 1.0,
		},
	}
}

// DefaultPath returns the user config file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".daftar", "config.yaml")
}

// Load reads configuration from a YAML file, layered over defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overrides select settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("DAFTAR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DAFTAR_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("DAFTAR_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Address = v
	}
	if v := os.Getenv("DAFTAR_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
}

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalCfg != nil {
		defer globalMu.RUnlock()
		return globalCfg
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		cfg, err := Load(DefaultPath())
		if err != nil {
			cfg = Default()
		}
		globalCfg = cfg
	}
	return globalCfg
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}
