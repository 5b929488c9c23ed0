// Package config loads the runtime configuration from a YAML file, with
// sensible defaults when no file is given.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	World World `yaml:"world"`
	Sim   Sim   `yaml:"sim"`
	API   API   `yaml:"api"`
	DB    DB    `yaml:"db"`
	Log   Log   `yaml:"log"`
}

type World struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"` // 0 = draw a fresh seed

	TreeLevel float64 `yaml:"tree_level"`
	RockLevel float64 `yaml:"rock_level"`
	PondLevel float64 `yaml:"pond_level"`
}

type Sim struct {
	TickIntervalMs int     `yaml:"tick_interval_ms"`
	Speed          float64 `yaml:"speed"`
	Citizens       int     `yaml:"citizens"`
	Children       int     `yaml:"children"`
	Adventurers    int     `yaml:"adventurers"`
}

type API struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type DB struct {
	Path string `yaml:"path"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		World: World{
			Width:     200,
			Height:    100,
			TreeLevel: 0.72,
			RockLevel: 0.80,
			PondLevel: 0.78,
		},
		Sim: Sim{
			TickIntervalMs: 1000,
			Speed:          1.0,
			Citizens:       12,
			Children:       4,
			Adventurers:    3,
		},
		API: API{
			Enabled: true,
			Listen:  ":8100",
		},
		DB: DB{
			Path: "townsim.db",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.World.Width < 16 || c.World.Height < 16 {
		return fmt.Errorf("world too small: %dx%d, minimum 16x16", c.World.Width, c.World.Height)
	}
	if c.Sim.TickIntervalMs <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive, got %d", c.Sim.TickIntervalMs)
	}
	if c.Sim.Speed < 0 {
		return fmt.Errorf("speed must not be negative, got %v", c.Sim.Speed)
	}
	if c.Sim.Citizens < 0 || c.Sim.Children < 0 || c.Sim.Adventurers < 0 {
		return fmt.Errorf("population counts must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
