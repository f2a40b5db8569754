package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resinctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	m := Default()
	require.NoError(t, m.Validate())
	assert.Equal(t, uint16(40000), m.PlatformConfig().MaxPosition)
	assert.Equal(t, uint8(20), m.PlatformConfig().StepsPerUnit)
	assert.Equal(t, 50*time.Millisecond, m.Platform.Driver().Settle)
	assert.Equal(t, rpio.Low, m.Platform.Driver().ForwardLevel)
	assert.Equal(t, uint8(14), m.Controller().TiltAngle.Default)
}

func TestLoadEmptyPath(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), m)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
poll_interval = "20ms"

[log]
level = "debug"

[platform]
dir = 12
settle = "80ms"
forward_high = true

[platform.bottom]
pin = 16
active_high = false
pull = "up"

[settings]
backend = "file"
path = "/tmp/settings.toml"

[limits.platform_speed]
min = 1
max = 6
default = 3
`)
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, m.PollInterval)
	assert.Equal(t, "debug", m.Log.Level)
	assert.Equal(t, 12, m.Platform.Dir)
	// Untouched values keep defaults.
	assert.Equal(t, 17, m.Platform.Step)
	assert.Equal(t, 80*time.Millisecond, m.Platform.Settle)
	assert.Equal(t, rpio.High, m.Platform.Driver().ForwardLevel)
	assert.Equal(t, 16, m.Platform.Bottom.Pin)
	assert.False(t, m.Platform.Bottom.ActiveHigh)
	assert.True(t, m.Platform.Top.ActiveHigh)
	assert.Equal(t, "file", m.Settings.Backend)
	assert.Equal(t, uint8(6), m.Controller().PlatformSpeed.Max)
	assert.Equal(t, uint8(100), m.Controller().Layer.Max)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[platform]
stepz = 3
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "platform.stepz")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	m := Default()
	m.Platform.Step = 40
	m.Tilt.Clock = 0
	m.PollInterval = 0
	m.Settings.Backend = "floppy"
	m.Limits.Layer.Default = 0
	err := m.Validate()
	require.Error(t, err)
	for _, s := range []string{"platform.step", "tilt.clock_hz", "poll_interval", "floppy", "limits.layer"} {
		assert.ErrorContains(t, err, s)
	}

	m = Default()
	m.Settings.Backend = "file"
	m.Settings.Path = ""
	assert.ErrorContains(t, m.Validate(), "settings.path")
}
