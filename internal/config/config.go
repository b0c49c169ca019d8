// Package config loads the squidsight configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level squidsight configuration. Paths left empty are
// filled by discovery in the CLI layer; the core packages only ever see
// resolved values.
type Config struct {
	Log     string        `yaml:"log"`    // squid access.log path
	Policy  string        `yaml:"policy"` // squid.conf path
	Runtime RuntimeConfig `yaml:"runtime"`
	Archive ArchiveConfig `yaml:"archive"`
}

// RuntimeConfig names the container runtime and the units squidsight audits.
type RuntimeConfig struct {
	Binary         string `yaml:"binary"`
	ProxyContainer string `yaml:"proxy_container"`
	AgentContainer string `yaml:"agent_container"`
	Network        string `yaml:"network"`
	ProbeTimeoutS  int    `yaml:"probe_timeout_seconds"`
}

// ArchiveConfig configures the local record archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses a squidsight config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply zero-value defaults after unmarshal
	if cfg.Runtime.Binary == "" {
		cfg.Runtime.Binary = "docker"
	}
	if cfg.Runtime.ProbeTimeoutS == 0 {
		cfg.Runtime.ProbeTimeoutS = 5
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = "squidsight.db"
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Binary:         "docker",
			ProxyContainer: "squid-proxy",
			AgentContainer: "agent",
			Network:        "firewall-net",
			ProbeTimeoutS:  5,
		},
		Archive: ArchiveConfig{
			Path: "squidsight.db",
		},
	}
}

// ProbeTimeout returns the probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Runtime.ProbeTimeoutS) * time.Second
}

// Validate checks that the config is consistent.
func (c *Config) Validate() error {
	if c.Runtime.Binary == "" {
		return fmt.Errorf("runtime binary must not be empty")
	}
	if c.Runtime.ProbeTimeoutS < 0 {
		return fmt.Errorf("invalid probe timeout: %d", c.Runtime.ProbeTimeoutS)
	}
	return nil
}
