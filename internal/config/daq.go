// Package config loads the acquisition settings.
//
// Every field is optional. A nil field falls back to the default returned by
// its Get method, so a partial file only overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/daq.defaults.json"

const (
	DefaultListenAddress = "192.168.2.54:8080"
	DefaultReadChunkSize = 8196
	DefaultReadTimeout   = 2 * time.Second
	DefaultStatsInterval = time.Minute
	DefaultMasterDir     = "/home/polarbear/data/"
	DefaultSlitCount     = 1140
	DefaultCatalogName   = "runs.db"
)

// DAQConfig is the JSON schema of the acquisition settings.
type DAQConfig struct {
	// Transport
	ListenAddress *string `json:"listen_address,omitempty"`
	ReadChunkSize *int    `json:"read_chunk_size,omitempty"`
	ReadTimeout   *string `json:"read_timeout,omitempty"`   // duration string like "2s"
	StatsInterval *string `json:"stats_interval,omitempty"` // duration string like "1m"

	// Framing
	RetainPartial *bool `json:"retain_partial,omitempty"`

	// Output
	MasterDir   *string `json:"master_dir,omitempty"`
	CatalogPath *string `json:"catalog_path,omitempty"` // defaults to <master_dir>/runs.db

	// Analysis
	SlitCount *int `json:"slit_count,omitempty"`
}

// LoadDAQConfig reads and validates a JSON config file.
func LoadDAQConfig(path string) (*DAQConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &DAQConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *DAQConfig) Validate() error {
	if c.ListenAddress != nil {
		if _, _, err := net.SplitHostPort(*c.ListenAddress); err != nil {
			return fmt.Errorf("invalid listen_address %q: %w", *c.ListenAddress, err)
		}
	}
	if c.ReadChunkSize != nil && *c.ReadChunkSize < 4 {
		return fmt.Errorf("read_chunk_size must be at least 4, got %d", *c.ReadChunkSize)
	}
	for name, v := range map[string]*string{"read_timeout": c.ReadTimeout, "stats_interval": c.StatsInterval} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.SlitCount != nil && *c.SlitCount <= 0 {
		return fmt.Errorf("slit_count must be positive, got %d", *c.SlitCount)
	}
	if c.MasterDir != nil && *c.MasterDir == "" {
		return fmt.Errorf("master_dir must not be empty")
	}
	return nil
}

func (c *DAQConfig) GetListenAddress() string {
	if c.ListenAddress == nil || *c.ListenAddress == "" {
		return DefaultListenAddress
	}
	return *c.ListenAddress
}

func (c *DAQConfig) GetReadChunkSize() int {
	if c.ReadChunkSize == nil {
		return DefaultReadChunkSize
	}
	return *c.ReadChunkSize
}

func (c *DAQConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, DefaultReadTimeout)
}

func (c *DAQConfig) GetStatsInterval() time.Duration {
	return parseDuration(c.StatsInterval, DefaultStatsInterval)
}

func (c *DAQConfig) GetRetainPartial() bool {
	return c.RetainPartial != nil && *c.RetainPartial
}

func (c *DAQConfig) GetMasterDir() string {
	if c.MasterDir == nil {
		return DefaultMasterDir
	}
	return *c.MasterDir
}

// GetCatalogPath returns catalog_path, or runs.db inside the master
// directory.
func (c *DAQConfig) GetCatalogPath() string {
	if c.CatalogPath == nil || *c.CatalogPath == "" {
		return filepath.Join(c.GetMasterDir(), DefaultCatalogName)
	}
	return *c.CatalogPath
}

func (c *DAQConfig) GetSlitCount() int {
	if c.SlitCount == nil {
		return DefaultSlitCount
	}
	return *c.SlitCount
}

func parseDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}
