// Package config loads the hub connection settings and zone names used by
// the lutronfader CLI.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/zberg/go-lutronfader/pkg/lutron"
)

// Config describes one hub and the zones known on it.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// PingZone is the keep-alive zone. Zero means "first known zone".
	PingZone int `yaml:"ping_zone"`

	// Zones maps friendly names to zone ids.
	Zones map[string]int `yaml:"zones"`

	// Lights are manually defined lights.
	Lights []LightConfig `yaml:"lights"`
}

// LightConfig is a named light bound to a zone.
type LightConfig struct {
	Name   string `yaml:"name"`
	ZoneID int    `yaml:"zone_id"`
}

// Default returns a config with every optional field at its default.
func Default() *Config {
	return &Config{
		Port:     lutron.DefaultPort,
		Username: lutron.DefaultUsername,
		Password: lutron.DefaultPassword,
	}
}

// Validate checks the config for missing or out-of-range values.
func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.PingZone < 0 {
		errs = append(errs, fmt.Errorf("ping_zone %d must be positive", c.PingZone))
	}
	for name, zone := range c.Zones {
		if zone < 1 {
			errs = append(errs, fmt.Errorf("zone %q: id %d must be positive", name, zone))
		}
	}
	for i, l := range c.Lights {
		if l.Name == "" {
			errs = append(errs, fmt.Errorf("lights[%d]: name is required", i))
		}
		if l.ZoneID < 1 {
			errs = append(errs, fmt.Errorf("lights[%d]: zone_id %d must be positive", i, l.ZoneID))
		}
	}
	return errors.Join(errs...)
}

// EffectivePingZone returns the configured ping zone, falling back to the
// lowest known zone and finally to zone 1.
func (c *Config) EffectivePingZone() int {
	if c.PingZone > 0 {
		return c.PingZone
	}
	lowest := 0
	for _, z := range c.Zones {
		if lowest == 0 || z < lowest {
			lowest = z
		}
	}
	for _, l := range c.Lights {
		if lowest == 0 || l.ZoneID < lowest {
			lowest = l.ZoneID
		}
	}
	if lowest > 0 {
		return lowest
	}
	return lutron.DefaultPingZone
}

// ResolveZone accepts a zone id or a configured zone or light name.
func (c *Config) ResolveZone(arg string) (int, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		if id < 1 {
			return 0, fmt.Errorf("%w: %d", lutron.ErrInvalidZone, id)
		}
		return id, nil
	}
	if id, ok := c.Zones[arg]; ok {
		return id, nil
	}
	for _, l := range c.Lights {
		if l.Name == arg {
			return l.ZoneID, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown zone %q", lutron.ErrInvalidZone, arg)
}

// NamedZone pairs a name with its zone id.
type NamedZone struct {
	Name string
	Zone int
}

// NamedZones lists zone mappings and manual lights ordered by zone id.
func (c *Config) NamedZones() []NamedZone {
	out := make([]NamedZone, 0, len(c.Zones)+len(c.Lights))
	for name, zone := range c.Zones {
		out = append(out, NamedZone{Name: name, Zone: zone})
	}
	for _, l := range c.Lights {
		out = append(out, NamedZone{Name: l.Name, Zone: l.ZoneID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Zone != out[j].Zone {
			return out[i].Zone < out[j].Zone
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SessionOptions converts the config into session options.
func (c *Config) SessionOptions() []lutron.Option {
	return []lutron.Option{
		lutron.WithPort(c.Port),
		lutron.WithCredentials(c.Username, c.Password),
		lutron.WithPingZone(c.EffectivePingZone()),
	}
}
