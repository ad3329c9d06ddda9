package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := writeConfig(t, `
scales:
  ports:
    - /dev/ttyUSB0
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port: want 8080, got %q", cfg.Port)
	}
	if cfg.Scales.BaudRate != 9600 {
		t.Errorf("BaudRate: want 9600, got %d", cfg.Scales.BaudRate)
	}
	if cfg.Scales.ReconnectAttempts != 5 {
		t.Errorf("ReconnectAttempts: want 5, got %d", cfg.Scales.ReconnectAttempts)
	}
	if cfg.Scales.ReconnectDelay != 5*time.Second {
		t.Errorf("ReconnectDelay: want 5s, got %v", cfg.Scales.ReconnectDelay)
	}
	if cfg.Scales.ReadDelay != 200*time.Millisecond {
		t.Errorf("ReadDelay: want 200ms, got %v", cfg.Scales.ReadDelay)
	}
	if cfg.Scales.ValidationThreshold != 0.5 {
		t.Errorf("ValidationThreshold: want 0.5, got %v", cfg.Scales.ValidationThreshold)
	}
	if cfg.Scales.ValidationRetries != 10 {
		t.Errorf("ValidationRetries: want 10, got %d", cfg.Scales.ValidationRetries)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("TokenTTL: want 1h, got %v", cfg.Auth.TokenTTL)
	}
}

func TestLoad_OverridesAndMultiplePorts(t *testing.T) {
	dir := writeConfig(t, `
port: "9090"
log:
  level: warn
  path: /tmp/station.log
scales:
  ports:
    - /dev/ttyUSB0
    - /dev/ttyUSB1
    - /dev/ttyUSB2
  reconnect_delay: 2s
  validation_threshold: 1.5
firebase:
  enabled: true
  credentials_file: cred.json
  database_url: https://example.firebaseio.com/
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port: want 9090, got %q", cfg.Port)
	}
	if len(cfg.Scales.Ports) != 3 {
		t.Fatalf("Ports: want 3, got %d", len(cfg.Scales.Ports))
	}
	if cfg.Scales.Ports[2] != "/dev/ttyUSB2" {
		t.Errorf("Ports[2]: got %q", cfg.Scales.Ports[2])
	}
	if cfg.Scales.ReconnectDelay != 2*time.Second {
		t.Errorf("ReconnectDelay: want 2s, got %v", cfg.Scales.ReconnectDelay)
	}
	if cfg.Scales.ValidationThreshold != 1.5 {
		t.Errorf("ValidationThreshold: want 1.5, got %v", cfg.Scales.ValidationThreshold)
	}
	if !cfg.Firebase.Enabled {
		t.Error("Firebase.Enabled: want true")
	}
	if cfg.Firebase.PrimaryRef != "weights/304" {
		t.Errorf("PrimaryRef default: got %q", cfg.Firebase.PrimaryRef)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no ports", "port: \"8080\"\n"},
		{"firebase without credentials", `
scales:
  ports: [/dev/ttyUSB0]
firebase:
  enabled: true
`},
		{"mqtt without server", `
scales:
  ports: [/dev/ttyUSB0]
mqtt:
  enabled: true
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeConfig(t, tc.body)
			if _, err := Load(dir); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}
