// Package config loads keylamp's TOML configuration.
package config

import (
	"codeberg.org/miketth/keylamp/pkg/palette"
	"codeberg.org/miketth/keylamp/pkg/retry"
	"codeberg.org/miketth/keylamp/pkg/serialport"
	"errors"
	"fmt"
	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"os"
	"time"
)

var ErrInvalid = errors.New("invalid config")

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	Debug   bool    `toml:"debug"`
	Serial  Serial  `toml:"serial"`
	Bus     Bus     `toml:"bus"`
	Palette Palette `toml:"palette"`
	Metrics Metrics `toml:"metrics"`
	XKB     XKB     `toml:"xkb"`

	probe  serialport.ProbeConfig
	policy retry.Policy
	idle   palette.Color
	off    palette.Color
	colors map[string]palette.Color
}

type Serial struct {
	Baud        int      `toml:"baud"`
	Settle      string   `toml:"settle"`
	ReadTimeout string   `toml:"read_timeout"`
	Prefixes    []string `toml:"prefixes"`
	Probe       string   `toml:"probe"`
	Ack         string   `toml:"ack"`
}

type Bus struct {
	Attempts int    `toml:"attempts"`
	Interval string `toml:"interval"`
}

type Palette struct {
	Store    string            `toml:"store"`
	Database string            `toml:"database"`
	Idle     string            `toml:"idle"`
	Off      string            `toml:"off"`
	Layouts  map[string]string `toml:"layouts"`
}

type Metrics struct {
	Listen string `toml:"listen"`
}

type XKB struct {
	Rules string `toml:"rules"`
}

func Default() *Config {
	return &Config{
		Serial: Serial{
			Baud:        9600,
			Settle:      "2s",
			ReadTimeout: "1s",
			Prefixes:    []string{"/dev/ttyUSB", "/dev/ttyACM"},
			Probe:       "?",
			Ack:         "ARDUINO_OK",
		},
		Bus: Bus{
			Attempts: 15,
			Interval: "1s",
		},
		Palette: Palette{
			Store: StoreMemory,
			Idle:  "gray",
			Off:   "black",
		},
		XKB: XKB{
			Rules: "/usr/share/X11/xkb/rules/evdev.xml",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/keylamp/config.toml.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile("keylamp/config.toml")
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func DefaultDatabasePath() (string, error) {
	path, err := xdg.DataFile("keylamp/palette.db")
	if err != nil {
		return "", fmt.Errorf("resolve database path: %w", err)
	}
	return path, nil
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the raw values and prepares the typed settings.
func (c *Config) Validate() error {
	settle, err := parseDuration("serial.settle", c.Serial.Settle)
	if err != nil {
		return err
	}
	readTimeout, err := parseDuration("serial.read_timeout", c.Serial.ReadTimeout)
	if err != nil {
		return err
	}
	interval, err := parseDuration("bus.interval", c.Bus.Interval)
	if err != nil {
		return err
	}

	if c.Serial.Baud <= 0 {
		return fmt.Errorf("%w: serial.baud must be positive", ErrInvalid)
	}
	if c.Serial.Probe == "" || c.Serial.Ack == "" {
		return fmt.Errorf("%w: serial.probe and serial.ack are required", ErrInvalid)
	}
	if len(c.Serial.Prefixes) == 0 {
		return fmt.Errorf("%w: serial.prefixes is empty", ErrInvalid)
	}
	if c.Bus.Attempts < 1 {
		return fmt.Errorf("%w: bus.attempts must be at least 1", ErrInvalid)
	}

	switch c.Palette.Store {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("%w: palette.store %q", ErrInvalid, c.Palette.Store)
	}

	if c.idle, err = parseColor("palette.idle", c.Palette.Idle); err != nil {
		return err
	}
	if c.off, err = parseColor("palette.off", c.Palette.Off); err != nil {
		return err
	}

	c.colors = palette.Defaults()
	if c.Palette.Layouts != nil {
		c.colors = make(map[string]palette.Color, len(c.Palette.Layouts))
		for layout, name := range c.Palette.Layouts {
			color, err := parseColor("palette.layouts."+layout, name)
			if err != nil {
				return err
			}
			c.colors[layout] = color
		}
	}

	c.probe = serialport.ProbeConfig{
		Settle:      settle,
		ReadTimeout: readTimeout,
		Request:     []byte(c.Serial.Probe),
		Ack:         c.Serial.Ack,
	}
	c.policy = retry.Policy{Attempts: c.Bus.Attempts, Interval: interval}

	return nil
}

func (c *Config) Probe() serialport.ProbeConfig {
	return c.probe
}

func (c *Config) BusPolicy() retry.Policy {
	return c.policy
}

func (c *Config) Idle() palette.Color {
	return c.idle
}

func (c *Config) Off() palette.Color {
	return c.off
}

// Colors is the layout table from the config file, or the built-in one.
func (c *Config) Colors() map[string]palette.Color {
	return c.colors
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalid, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalid, key)
	}
	return d, nil
}

func parseColor(key, value string) (palette.Color, error) {
	color, err := palette.ParseColor(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalid, key, err)
	}
	return color, nil
}
