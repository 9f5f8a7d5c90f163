package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	// The documented engine defaults.
	if cfg.Detection.BruteForceThreshold != 5 {
		t.Errorf("brute_force_threshold = %d, want 5", cfg.Detection.BruteForceThreshold)
	}
	if cfg.Detection.BruteForceWindowMinutes != 1 {
		t.Errorf("brute_force_window_minutes = %d, want 1", cfg.Detection.BruteForceWindowMinutes)
	}
	if cfg.Detection.PortScanMinPorts != 10 {
		t.Errorf("port_scan_min_ports = %d, want 10", cfg.Detection.PortScanMinPorts)
	}
	if cfg.Detection.PortScanWindowMinutes != 1 {
		t.Errorf("port_scan_window_minutes = %d, want 1", cfg.Detection.PortScanWindowMinutes)
	}
	if cfg.Detection.RiskHighThreshold != 10 {
		t.Errorf("risk_high_threshold = %d, want 10", cfg.Detection.RiskHighThreshold)
	}
	if cfg.Detection.RiskMediumThreshold != 5 {
		t.Errorf("risk_medium_threshold = %d, want 5", cfg.Detection.RiskMediumThreshold)
	}
	if cfg.Detection.PortScanAllActions {
		t.Error("port_scan_all_actions must default to false")
	}
}

func TestValidate_RejectsNonPositiveParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero brute force threshold", func(c *Config) { c.Detection.BruteForceThreshold = 0 }},
		{"negative brute force window", func(c *Config) { c.Detection.BruteForceWindowMinutes = -1 }},
		{"zero min ports", func(c *Config) { c.Detection.PortScanMinPorts = 0 }},
		{"zero port scan window", func(c *Config) { c.Detection.PortScanWindowMinutes = 0 }},
		{"zero high threshold", func(c *Config) { c.Detection.RiskHighThreshold = 0 }},
		{"zero medium threshold", func(c *Config) { c.Detection.RiskMediumThreshold = 0 }},
		{"medium above high", func(c *Config) {
			c.Detection.RiskMediumThreshold = 20
			c.Detection.RiskHighThreshold = 10
		}},
		{"bad port", func(c *Config) { c.Server.HTTPPort = -1 }},
		{"kafka enabled without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
detection:
  brute_force_threshold: 8
  port_scan_min_ports: 20
server:
  http_port: 9090
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Detection.BruteForceThreshold != 8 {
		t.Errorf("brute_force_threshold = %d, want 8", cfg.Detection.BruteForceThreshold)
	}
	if cfg.Detection.PortScanMinPorts != 20 {
		t.Errorf("port_scan_min_ports = %d, want 20", cfg.Detection.PortScanMinPorts)
	}
	// Unset keys keep defaults.
	if cfg.Detection.RiskHighThreshold != 10 {
		t.Errorf("risk_high_threshold = %d, want default 10", cfg.Detection.RiskHighThreshold)
	}
	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("http_port = %d, want 9090", cfg.Server.HTTPPort)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if cfg.Detection.BruteForceThreshold != 5 {
		t.Errorf("expected defaults, got threshold %d", cfg.Detection.BruteForceThreshold)
	}
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("detection: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}
