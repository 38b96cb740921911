// Package config loads the serve configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/buzzauk/sixarm/internal/gesture"
	"github.com/buzzauk/sixarm/internal/motion"
	"github.com/buzzauk/sixarm/pkg/domain"
)

// Duration wraps time.Duration so configs can say "15ms" or "1s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML accepts Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the full serve configuration.
type Config struct {
	Listen   string        `yaml:"listen"`
	LogLevel string        `yaml:"log_level"`
	Tick     Duration      `yaml:"tick"`
	Pulse    PulseConfig   `yaml:"pulse"`
	Motion   MotionConfig  `yaml:"motion"`
	Timing   TimingConfig  `yaml:"timing"`
	Storage  StorageConfig `yaml:"storage"`
	Driver   DriverConfig  `yaml:"driver"`
}

// PulseConfig bounds every channel's pulse width.
type PulseConfig struct {
	Min uint16 `yaml:"min"`
	Max uint16 `yaml:"max"`
}

// MotionConfig tunes the smoother.
type MotionConfig struct {
	Deadzone int `yaml:"deadzone"`
}

// TimingConfig tunes gesture recognition and playback pacing.
type TimingConfig struct {
	Debounce     Duration `yaml:"debounce"`
	DoubleWindow Duration `yaml:"double_window"`
	Hold         Duration `yaml:"hold"`
	StepDelay    Duration `yaml:"step_delay"`
}

// StorageConfig selects the step store backend.
type StorageConfig struct {
	Backend string      `yaml:"backend"` // file, redis or memory
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig locates the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// DriverConfig selects the hardware driver and its channel map.
type DriverConfig struct {
	Backend string `yaml:"backend"` // sim or maestro
	Port    string `yaml:"port"`
	Baud    int    `yaml:"baud"`

	// Pots lists the analog input channel per position channel.
	Pots [domain.NumChannels]int `yaml:"pots"`
	// Buttons maps the four panel buttons to input channels.
	Buttons ButtonChannels `yaml:"buttons"`
	// Indicator lists the R, G and B output channels; a negative
	// first entry disables the indicator.
	Indicator [3]int `yaml:"indicator"`
}

// ButtonChannels maps panel buttons to driver channels.
type ButtonChannels struct {
	Record int `yaml:"record"`
	Run    int `yaml:"run"`
	Stop   int `yaml:"stop"`
	Clear  int `yaml:"clear"`
}

// PulseRange converts the configured bounds.
func (c *Config) PulseRange() domain.PulseRange {
	return domain.PulseRange{Min: c.Pulse.Min, Max: c.Pulse.Max}
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration bytes, fills defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Tick == 0 {
		cfg.Tick = Duration(15 * time.Millisecond)
	}

	if cfg.Pulse.Min == 0 {
		cfg.Pulse.Min = domain.DefaultMinPulse
	}
	if cfg.Pulse.Max == 0 {
		cfg.Pulse.Max = domain.DefaultMaxPulse
	}

	if cfg.Motion.Deadzone == 0 {
		cfg.Motion.Deadzone = motion.DefaultDeadzone
	}

	if cfg.Timing.Debounce == 0 {
		cfg.Timing.Debounce = Duration(gesture.DefaultDebounce)
	}
	if cfg.Timing.DoubleWindow == 0 {
		cfg.Timing.DoubleWindow = Duration(gesture.DefaultDoubleWindow)
	}
	if cfg.Timing.Hold == 0 {
		cfg.Timing.Hold = Duration(gesture.DefaultHoldThreshold)
	}
	if cfg.Timing.StepDelay == 0 {
		cfg.Timing.StepDelay = Duration(time.Second)
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "sixarm.steps"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.Redis.Key == "" {
		cfg.Storage.Redis.Key = "sixarm:steps"
	}

	if cfg.Driver.Backend == "" {
		cfg.Driver.Backend = "sim"
	}
	if cfg.Driver.Port == "" {
		cfg.Driver.Port = "/dev/ttyACM0"
	}
	if cfg.Driver.Baud == 0 {
		cfg.Driver.Baud = 57600
	}
	var zeroPots [domain.NumChannels]int
	if cfg.Driver.Pots == zeroPots {
		// Servos sit on channels 0-5, so inputs start at 6.
		for i := range cfg.Driver.Pots {
			cfg.Driver.Pots[i] = domain.NumChannels + i
		}
	}
	if cfg.Driver.Buttons == (ButtonChannels{}) {
		cfg.Driver.Buttons = ButtonChannels{Record: 12, Run: 13, Stop: 14, Clear: 15}
	}
	if cfg.Driver.Indicator == [3]int{} {
		cfg.Driver.Indicator = [3]int{16, 17, 18}
	}
}

func (c *Config) validate() error {
	if c.Pulse.Min >= c.Pulse.Max {
		return fmt.Errorf("pulse.min %d must be below pulse.max %d", c.Pulse.Min, c.Pulse.Max)
	}
	switch c.Storage.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.Driver.Backend {
	case "sim", "maestro":
	default:
		return fmt.Errorf("unknown driver.backend %q", c.Driver.Backend)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}
