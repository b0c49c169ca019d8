package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
log: /var/log/squid/access.log
policy: /etc/squid/squid.conf
runtime:
  binary: podman
  proxy_container: fw-proxy
  network: fw-net
archive:
  path: /tmp/archive.db
`
	dir := t.TempDir()
	path := filepath.Join(dir, "squidsight.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Log != "/var/log/squid/access.log" {
		t.Errorf("log = %q", cfg.Log)
	}
	if cfg.Runtime.Binary != "podman" {
		t.Errorf("binary = %q, want podman", cfg.Runtime.Binary)
	}
	if cfg.Runtime.ProxyContainer != "fw-proxy" {
		t.Errorf("proxy_container = %q, want fw-proxy", cfg.Runtime.ProxyContainer)
	}
	// Unset keys fall back to defaults.
	if cfg.Runtime.ProbeTimeoutS != 5 {
		t.Errorf("probe_timeout_seconds = %d, want 5", cfg.Runtime.ProbeTimeoutS)
	}
	if cfg.Archive.Path != "/tmp/archive.db" {
		t.Errorf("archive path = %q", cfg.Archive.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "squidsight.yaml")
	if err := os.WriteFile(path, []byte("log: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should error")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Runtime.Binary != "docker" {
		t.Errorf("default binary = %q, want docker", cfg.Runtime.Binary)
	}
	if cfg.Runtime.ProxyContainer != "squid-proxy" {
		t.Errorf("default proxy_container = %q, want squid-proxy", cfg.Runtime.ProxyContainer)
	}
	if cfg.Runtime.Network != "firewall-net" {
		t.Errorf("default network = %q, want firewall-net", cfg.Runtime.Network)
	}
	if cfg.Archive.Path != "squidsight.db" {
		t.Errorf("default archive path = %q", cfg.Archive.Path)
	}
}

func TestProbeTimeout(t *testing.T) {
	cfg := Defaults()
	if got := cfg.ProbeTimeout(); got != 5*time.Second {
		t.Errorf("probe timeout = %v, want 5s", got)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config should not error: %v", err)
	}
}

func TestValidate_EmptyBinary(t *testing.T) {
	cfg := Defaults()
	cfg.Runtime.Binary = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty runtime binary should be invalid")
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Runtime.ProbeTimeoutS = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative probe timeout should be invalid")
	}
}
