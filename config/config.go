package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `toml:"app" yaml:"app"`
	Runner  RunnerConfig  `toml:"runner" yaml:"runner"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Scripts ScriptsConfig `toml:"scripts" yaml:"scripts"`
}

type AppConfig struct {
	Name string `toml:"name" yaml:"name"`
}

type RunnerConfig struct {
	Mode     string        `toml:"mode" yaml:"mode"` // "loop" or "once"
	Wait     time.Duration `toml:"wait" yaml:"wait"` // minimum time per pass in loop mode
	MaxTicks uint64        `toml:"max_ticks" yaml:"max_ticks"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

type ScriptsConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
}

// Load reads a TOML file, or a YAML file when the extension is .yaml or
// .yml, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Runner.Mode {
	case "loop", "once":
	default:
		return fmt.Errorf("runner.mode must be loop or once, got %q", c.Runner.Mode)
	}
	if c.Runner.Wait < 0 {
		return fmt.Errorf("runner.wait must not be negative, got %s", c.Runner.Wait)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name: "gekko",
		},
		Runner: RunnerConfig{
			Mode: "loop",
			Wait: 16 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
