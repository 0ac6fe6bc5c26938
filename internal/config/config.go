// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the on-disk YAML configuration for the daemon,
// generalizing the flag-plus-file loader shape of a small RV-controller
// service to this emulator's LIN/MQTT fields.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Serial is the local UART connection to the LIN transceiver.
type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Remote is an optional WebSocket bridge connection, used in place of
// Serial when the LIN dongle is attached to a different host.
type Remote struct {
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	SkipTLSVerify bool   `yaml:"skip_tls_verify"`
}

// MQTT is the broker this daemon publishes telemetry to and subscribes
// to set-requests from.
type MQTT struct {
	BrokerURL string `yaml:"broker_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Prefix    string `yaml:"prefix"`
}

// Config is the full on-disk configuration document.
type Config struct {
	ConfigFile string `yaml:"-"`
	LogLevel   zerolog.Level `yaml:"-"`

	NAD                byte          `yaml:"nad"`
	SupplierID         uint16        `yaml:"supplier_id"`
	FunctionID         uint16        `yaml:"function_id"`
	UpdatesBufferTime  time.Duration `yaml:"updates_buffer_time"`
	DefaultElPower     int           `yaml:"default_el_power_level"`
	DefaultHeatingMode string        `yaml:"default_heating_mode"`

	Serial Serial `yaml:"serial"`
	Remote Remote `yaml:"remote"`
	MQTT   MQTT   `yaml:"mqtt"`
}

// Load reads the YAML file at configPath and validates the result. It
// returns an error on a missing or malformed file: this daemon has no
// sane default bus configuration to fall back to. The command layer
// owns flag parsing (via cobra) and passes the resolved path and log
// level in here.
func Load(configPath, logLevel string) (Config, error) {
	cfg := Config{ConfigFile: configPath, LogLevel: parseLogLevel(logLevel)}

	file, err := os.Open(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.NAD == 0 {
		cfg.NAD = 0x03
	}
	if cfg.SupplierID == 0 {
		cfg.SupplierID = 0x7FFF
	}
	if cfg.FunctionID == 0 {
		cfg.FunctionID = 0xFFFF
	}
	if cfg.UpdatesBufferTime == 0 {
		cfg.UpdatesBufferTime = 1 * time.Second
	}
	if cfg.DefaultElPower == 0 {
		cfg.DefaultElPower = 900
	}
	if cfg.DefaultHeatingMode == "" {
		cfg.DefaultHeatingMode = "eco"
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 9600
	}
	if cfg.MQTT.Prefix == "" {
		cfg.MQTT.Prefix = "inetbox"
	}
}

func (cfg *Config) validate() error {
	if cfg.Serial.Port == "" && cfg.Remote.URL == "" {
		return fmt.Errorf("either serial.port or remote.url must be set")
	}
	if cfg.Serial.Port != "" && cfg.Remote.URL != "" {
		return fmt.Errorf("serial.port and remote.url are mutually exclusive")
	}
	if cfg.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url must be set")
	}
	return nil
}
