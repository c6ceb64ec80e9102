// Package config loads the server settings from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs to start.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// DatabasePath is the SQLite file shared by all sessions.
	DatabasePath string `yaml:"database_path"`

	// SessionSecret signs the session cookies. Required.
	SessionSecret string `yaml:"session_secret"`

	// SessionTimeoutMinutes logs a session out after this much
	// inactivity.
	SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`

	// FailureModesPath is the failure-mode catalog CSV.
	FailureModesPath string `yaml:"failure_modes_path"`

	// MotorSpecsPath is the motor specification sheet CSV.
	MotorSpecsPath string `yaml:"motor_specs_path"`

	// SecureCookies marks session cookies Secure. Leave off unless the
	// server sits behind TLS; browsers drop Secure cookies over plain
	// HTTP.
	SecureCookies bool `yaml:"secure_cookies"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
}

// Default returns the settings used when no config file is given.
func Default() Config {
	return Config{
		ListenAddr:            ":8084",
		DatabasePath:          "reports.db",
		SessionTimeoutMinutes: 5,
		FailureModesPath:      "failure_modes.csv",
		MotorSpecsPath:        "motor_specs.csv",
	}
}

// Load reads and parses a config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
