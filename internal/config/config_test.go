package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Device.Port != DefaultDevicePort {
		t.Errorf("expected device port %d, got %d", DefaultDevicePort, cfg.Device.Port)
	}
	if cfg.Device.LineEnding != "crlf" {
		t.Errorf("expected line ending 'crlf', got '%s'", cfg.Device.LineEnding)
	}
	if cfg.Device.Transport != TransportTCP {
		t.Errorf("expected transport 'tcp', got '%s'", cfg.Device.Transport)
	}
	if cfg.Device.ConnectTimeout != 5*time.Second {
		t.Errorf("expected connect timeout 5s, got %v", cfg.Device.ConnectTimeout)
	}
	if cfg.Device.Host != "" {
		t.Errorf("expected empty host, got '%s'", cfg.Device.Host)
	}
	if cfg.OSC.Prefix != "/tunnins" {
		t.Errorf("expected osc prefix '/tunnins', got '%s'", cfg.OSC.Prefix)
	}
	if cfg.App.Name != "test" {
		t.Errorf("expected app name 'test', got '%s'", cfg.App.Name)
	}
}

func TestLoadDeviceSection(t *testing.T) {
	path := writeConfig(t, `
device:
  host: 192.168.1.50
  port: 23000
  line_ending: lf
  serial:
    timeout: 1s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Device.Host != "192.168.1.50" {
		t.Errorf("expected host 192.168.1.50, got '%s'", cfg.Device.Host)
	}
	if cfg.Device.Port != 23000 {
		t.Errorf("expected port 23000, got %d", cfg.Device.Port)
	}
	if cfg.Device.LineEnding != "lf" {
		t.Errorf("expected line ending 'lf', got '%s'", cfg.Device.LineEnding)
	}
	if cfg.Device.Serial.Timeout != time.Second {
		t.Errorf("expected serial timeout 1s, got %v", cfg.Device.Serial.Timeout)
	}
	if got := cfg.Device.Address(); got != "192.168.1.50:23000" {
		t.Errorf("Address() = %s", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "device:\n  host: 10.0.0.1\n")
	t.Setenv("TUNNINS_DEVICE_HOST", "10.0.0.2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Host != "10.0.0.2" {
		t.Errorf("expected env override 10.0.0.2, got '%s'", cfg.Device.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRejectsInvalidDevice(t *testing.T) {
	path := writeConfig(t, "device:\n  host: not-an-ip\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for non-IPv4 host")
	}
}

func TestValidateDevice(t *testing.T) {
	base := func() DeviceConfig {
		return DeviceConfig{
			Transport:  TransportTCP,
			Host:       "127.0.0.1",
			Port:       22222,
			LineEnding: "crlf",
		}
	}

	tests := []struct {
		name    string
		mutate  func(d *DeviceConfig)
		wantErr bool
	}{
		{"valid", func(d *DeviceConfig) {}, false},
		{"empty host allowed", func(d *DeviceConfig) { d.Host = "" }, false},
		{"hostname rejected", func(d *DeviceConfig) { d.Host = "tunnins.local" }, true},
		{"ipv6 rejected", func(d *DeviceConfig) { d.Host = "::1" }, true},
		{"octet out of range", func(d *DeviceConfig) { d.Host = "10.0.0.256" }, true},
		{"port zero", func(d *DeviceConfig) { d.Port = 0 }, true},
		{"port too large", func(d *DeviceConfig) { d.Port = 70000 }, true},
		{"unknown line ending", func(d *DeviceConfig) { d.LineEnding = "crcr" }, true},
		{"none line ending", func(d *DeviceConfig) { d.LineEnding = "none" }, false},
		{"unknown transport", func(d *DeviceConfig) { d.Transport = "udp" }, true},
		{"serial without port", func(d *DeviceConfig) {
			d.Transport = TransportSerial
			d.Serial.BaudRate = 9600
		}, true},
		{"serial with port", func(d *DeviceConfig) {
			d.Transport = TransportSerial
			d.Serial.Port = "/dev/ttyUSB0"
			d.Serial.BaudRate = 9600
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(&d)
			err := ValidateDevice(&d)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDevice() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
