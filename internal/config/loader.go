package config

// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/lutronfader)
//   2. Environment variables
//   3. Config file
//   4. Defaults

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadFromEnv.
const (
	EnvHost     = "LUTRON_HOST"
	EnvPort     = "LUTRON_PORT"
	EnvUsername = "LUTRON_USERNAME"
	EnvPassword = "LUTRON_PASSWORD"
	EnvPingZone = "LUTRON_PING_ZONE"
	EnvConfig   = "LUTRON_CONFIG"
)

// Parse decodes a YAML document over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and parses the YAML file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path when it is non-empty (or LUTRON_CONFIG when path is
// empty) and overlays the environment. It does not validate.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv overlays non-empty LUTRON_* variables onto cfg.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Password = v
	}

	port, err := envInt(EnvPort)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}

	zone, err := envInt(EnvPingZone)
	if err != nil {
		return err
	}
	if zone != 0 {
		cfg.PingZone = zone
	}
	return nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}
