// Package config loads and validates the dashboard's YAML configuration.
// Configuration is read once at startup; a bad config fails the process
// before the core starts.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Listen  Listen   `yaml:"listen"`
	UI      UI       `yaml:"ui"`
	HTTP    HTTP     `yaml:"http"`
	MQTT    MQTT     `yaml:"mqtt"`
	Sensors []Sensor `yaml:"sensors"`
}

// Listen is the telemetry listener bind address.
type Listen struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// UI controls the consumer refresh loop.
type UI struct {
	UpdateHz      float64 `yaml:"update_hz"`
	PlotWindowSec float64 `yaml:"plot_window_sec"`
}

// HTTP configures the read-only query API. CommandToken, when set, enables
// the operator command endpoint behind a static shared secret.
type HTTP struct {
	Addr         string `yaml:"addr"`
	CommandToken string `yaml:"command_token"`
}

// MQTT configures optional event publishing. An empty broker disables it.
type MQTT struct {
	Broker string `yaml:"broker"`
}

// Sensor is one configured sensor with its alarm limits.
type Sensor struct {
	Name string  `yaml:"name"`
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse parses and validates a raw YAML document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen.Host == "" {
		c.Listen.Host = "127.0.0.1"
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = 9000
	}
	if c.UI.UpdateHz == 0 {
		c.UI.UpdateHz = 10.0
	}
	if c.UI.PlotWindowSec == 0 {
		c.UI.PlotWindowSec = 60.0
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

func (c *Config) validate() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("config: no sensors defined")
	}
	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.Name == "" {
			return fmt.Errorf("config: sensor %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate sensor name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Low >= s.High {
			return fmt.Errorf("config: sensor %q: low (%v) must be below high (%v)", s.Name, s.Low, s.High)
		}
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("config: invalid listen port %d", c.Listen.Port)
	}
	if c.UI.UpdateHz <= 0 {
		return fmt.Errorf("config: ui.update_hz must be positive")
	}
	return nil
}

// ListenAddr returns the host:port string for the telemetry listener.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Listen.Host, strconv.Itoa(c.Listen.Port))
}
