package config

import (
	"codeberg.org/miketth/keylamp/pkg/palette"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	probe := cfg.Probe()
	assert.Equal(t, 2*time.Second, probe.Settle)
	assert.Equal(t, time.Second, probe.ReadTimeout)
	assert.Equal(t, []byte("?"), probe.Request)
	assert.Equal(t, "ARDUINO_OK", probe.Ack)
	assert.Equal(t, 9600, cfg.Serial.Baud)

	assert.Equal(t, 15, cfg.BusPolicy().Attempts)
	assert.Equal(t, time.Second, cfg.BusPolicy().Interval)

	assert.Equal(t, palette.Gray, cfg.Idle())
	assert.Equal(t, palette.Black, cfg.Off())
	assert.Equal(t, palette.Defaults(), cfg.Colors())
	assert.Equal(t, StoreMemory, cfg.Palette.Store)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
debug = true

[serial]
settle = "500ms"
prefixes = ["/dev/ttyACM"]

[bus]
attempts = 3

[palette]
store = "sqlite"
idle = "white"

[palette.layouts]
de = "green"
us = "3"

[metrics]
listen = "127.0.0.1:9310"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 500*time.Millisecond, cfg.Probe().Settle)
	assert.Equal(t, []string{"/dev/ttyACM"}, cfg.Serial.Prefixes)
	assert.Equal(t, 3, cfg.BusPolicy().Attempts)
	assert.Equal(t, StoreSQLite, cfg.Palette.Store)
	assert.Equal(t, palette.White, cfg.Idle())
	assert.Equal(t, map[string]palette.Color{"de": palette.Green, "us": palette.Blue}, cfg.Colors())
	assert.Equal(t, "127.0.0.1:9310", cfg.Metrics.Listen)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"bad duration": "[serial]\nsettle = \"soon\"\n",
		"bad baud":     "[serial]\nbaud = 0\n",
		"bad attempts": "[bus]\nattempts = 0\n",
		"bad store":    "[palette]\nstore = \"redis\"\n",
		"bad color":    "[palette.layouts]\nus = \"purple\"\n",
		"bad idle":     "[palette]\nidle = \"7\"\n",
		"no prefixes":  "[serial]\nprefixes = []\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, "[serial\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
