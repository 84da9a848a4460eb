// Package config loads the netid TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/R167/netid/internal/security"
	"github.com/R167/netid/reachability"
)

const (
	DefaultInterval  = 5 * time.Second
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	minInterval = 100 * time.Millisecond
)

// Config is the configuration for the netid tool. Durations are TOML
// strings such as "5s".
type Config struct {
	// Interval between reachability samples in watch mode.
	Interval time.Duration `toml:"interval"`

	// ProbeAddress is the UDP target used to find the egress interface when
	// no routing table query is available.
	ProbeAddress string `toml:"probe_address"`

	// StateFile is the per-network state database. Empty disables state.
	StateFile string `toml:"state_file"`

	// MetricsAddr serves Prometheus metrics. Empty disables the endpoint.
	MetricsAddr string `toml:"metrics_addr"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// CommandTimeout bounds each platform command such as iw or mmcli.
	CommandTimeout time.Duration `toml:"command_timeout"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

// DefaultStateFile returns the state database path under the user cache
// directory, or "" if there is none.
func DefaultStateFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "netid", "state.db")
}

func (cfg *Config) applyDefaults() {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ProbeAddress == "" {
		cfg.ProbeAddress = reachability.DefaultProbeAddress
	}
	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = reachability.DefaultCommandTimeout
	}
}

// Validate returns nil if the config is valid and otherwise an error is
// returned.
func (cfg *Config) Validate() error {
	if cfg.Interval < minInterval {
		return fmt.Errorf("config: interval must be at least %s, got %s", minInterval, cfg.Interval)
	}
	if cfg.CommandTimeout <= 0 {
		return errors.New("config: command_timeout must be positive")
	}
	if err := security.ValidateProbeAddress(cfg.ProbeAddress); err != nil {
		return fmt.Errorf("config: probe_address: %w", err)
	}
	if cfg.MetricsAddr != "" {
		if err := security.ValidateListenAddress(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("config: metrics_addr: %w", err)
		}
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Load(b)
}
