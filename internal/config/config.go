// Package config loads the arena demo configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives cmd/arena: the tick loop, logging, metrics and the scripted
// game session.
type Config struct {
	TickRate           time.Duration `yaml:"tick_rate"`
	MaxTicks           int           `yaml:"max_ticks"`
	MaxCommandsPerTick int           `yaml:"max_commands_per_tick"`
	LogLevel           string        `yaml:"log_level"`
	MetricsAddr        string        `yaml:"metrics_addr"`
	Arena              Arena         `yaml:"arena"`
}

// Arena scripts a session: enemies die at a fixed cadence, the shop closes
// after a fixed number of ticks, the player dies on reaching DeathAtRound.
type Arena struct {
	EnemiesPerRound int `yaml:"enemies_per_round"`
	KillEvery       int `yaml:"kill_every"`     // ticks between enemy deaths
	ShopTicks       int `yaml:"shop_ticks"`     // ticks before the shop closes
	DeathAtRound    int `yaml:"death_at_round"` // 0 = the player never dies
	Restarts        int `yaml:"restarts"`       // restarts requested from game over
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		TickRate:           16667 * time.Microsecond, // 60 FPS
		MaxTicks:           600,
		MaxCommandsPerTick: 1000,
		LogLevel:           "info",
		Arena: Arena{
			EnemiesPerRound: 3,
			KillEvery:       10,
			ShopTicks:       20,
			DeathAtRound:    3,
			Restarts:        1,
		},
	}
}

// Load reads path on top of Default. An empty path returns Default.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("yaml decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate must be positive, got %s", c.TickRate))
	}
	if c.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("max_ticks must not be negative, got %d", c.MaxTicks))
	}
	if c.MaxCommandsPerTick <= 0 {
		errs = append(errs, fmt.Errorf("max_commands_per_tick must be positive, got %d", c.MaxCommandsPerTick))
	}
	if c.Arena.EnemiesPerRound <= 0 {
		errs = append(errs, fmt.Errorf("arena.enemies_per_round must be positive, got %d", c.Arena.EnemiesPerRound))
	}
	if c.Arena.KillEvery <= 0 {
		errs = append(errs, fmt.Errorf("arena.kill_every must be positive, got %d", c.Arena.KillEvery))
	}
	if c.Arena.ShopTicks <= 0 {
		errs = append(errs, fmt.Errorf("arena.shop_ticks must be positive, got %d", c.Arena.ShopTicks))
	}
	if c.Arena.DeathAtRound < 0 {
		errs = append(errs, fmt.Errorf("arena.death_at_round must not be negative, got %d", c.Arena.DeathAtRound))
	}
	if c.Arena.Restarts < 0 {
		errs = append(errs, fmt.Errorf("arena.restarts must not be negative, got %d", c.Arena.Restarts))
	}
	return errors.Join(errs...)
}
