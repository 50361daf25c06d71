package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the admin server process.
type ServerConfig struct {
	ApiAddr       string `json:"api_addr"`
	LogLevel      string `json:"log_level"`
	DataDir       string `json:"data_dir"`
	DatabasePath  string `json:"database_path"`
	PubDir        string `json:"pub_dir"`
	DashboardPath string `json:"dashboard_path"`
}

// Config is the top-level configuration struct, persisted as one JSON file
// next to the binary.
type Config struct {
	Server *ServerConfig `json:"server_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:       ":7297",
		LogLevel:      "info",
		DataDir:       "./data",
		DatabasePath:  "./data/freedom.db?_journal_mode=WAL&_busy_timeout=5000",
		PubDir:        "./pub",
		DashboardPath: "./data/dashboard.html",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := &Config{
		Server: DefaultServerConfig(),
	}

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err = SaveConfig(path, config); err != nil {
				// The server can still run on defaults; warn and continue.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveConfig atomically persists the configuration to disk.
func SaveConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
