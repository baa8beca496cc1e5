package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
listen:
  host: 0.0.0.0
  port: 9500
ui:
  update_hz: 5.0
  plot_window_sec: 30.0
http:
  addr: ":8081"
  command_token: "secret"
mqtt:
  broker: "tcp://localhost:1883"
sensors:
  - {name: Temp_C, low: 20.0, high: 30.0}
  - {name: Pressure_bar, low: 1.5, high: 2.0}
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ListenAddr() != "0.0.0.0:9500" {
		t.Errorf("ListenAddr: got %q", cfg.ListenAddr())
	}
	if cfg.UI.UpdateHz != 5.0 {
		t.Errorf("UpdateHz: got %v", cfg.UI.UpdateHz)
	}
	if cfg.HTTP.CommandToken != "secret" {
		t.Errorf("CommandToken: got %q", cfg.HTTP.CommandToken)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if len(cfg.Sensors) != 2 || cfg.Sensors[0].Name != "Temp_C" {
		t.Errorf("Sensors: got %#v", cfg.Sensors)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("sensors:\n  - {name: s1, low: 0.0, high: 1.0}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ListenAddr() != "127.0.0.1:9000" {
		t.Errorf("default ListenAddr: got %q", cfg.ListenAddr())
	}
	if cfg.UI.UpdateHz != 10.0 {
		t.Errorf("default UpdateHz: got %v", cfg.UI.UpdateHz)
	}
	if cfg.UI.PlotWindowSec != 60.0 {
		t.Errorf("default PlotWindowSec: got %v", cfg.UI.PlotWindowSec)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("default HTTP.Addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("MQTT should default to disabled, got %q", cfg.MQTT.Broker)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"invalid yaml", "sensors: [", "parse config"},
		{"no sensors", "listen: {port: 9000}\n", "no sensors"},
		{"duplicate names", "sensors:\n  - {name: a, low: 0, high: 1}\n  - {name: a, low: 0, high: 1}\n", "duplicate sensor name"},
		{"unnamed sensor", "sensors:\n  - {low: 0, high: 1}\n", "has no name"},
		{"inverted limits", "sensors:\n  - {name: a, low: 5, high: 1}\n", "must be below"},
		{"equal limits", "sensors:\n  - {name: a, low: 5, high: 5}\n", "must be below"},
		{"bad port", "listen: {port: 70000}\nsensors:\n  - {name: a, low: 0, high: 1}\n", "invalid listen port"},
		{"bad update_hz", "ui: {update_hz: -1}\nsensors:\n  - {name: a, low: 0, high: 1}\n", "update_hz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sensors) != 2 {
		t.Errorf("Sensors: got %d, want 2", len(cfg.Sensors))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
