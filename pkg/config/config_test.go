package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/teleracer/pkg/racecar"
	"github.com/gwillem/teleracer/pkg/teleop"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teleracer.json")
	assert.False(t, Exists(path))

	cfg := Default()
	cfg.Controller.ThrottleAxis = 4
	cfg.Controller.TickInterval = 20 * time.Millisecond
	cfg.Car = racecar.DefaultConfig(racecar.BackendMaestro)
	cfg.Car.Port = "/dev/ttyACM0"
	require.NoError(t, cfg.Save(path))
	assert.True(t, Exists(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoad_PartialController(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teleracer.json")
	data := `{"controller": {"device_index": 1}, "car": {"backend": "dry-run", "steering_gain": -0.5}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := teleop.DefaultConfig()
	want.DeviceIndex = 1
	assert.Equal(t, want, cfg.Controller)
	assert.Equal(t, float32(-0.5), cfg.Car.SteeringGain)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	malformed := filepath.Join(dir, "malformed.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{"controller": {"tick_interval": "fast"}}`), 0644))
	_, err := Load(malformed)
	require.Error(t, err)
	assert.NotErrorIs(t, err, os.ErrNotExist)

	inverted := filepath.Join(dir, "inverted.json")
	require.NoError(t, os.WriteFile(inverted, []byte(`{"controller": {"throttle_out_min": 0.5, "throttle_out_max": 0.1}}`), 0644))
	_, err = Load(inverted)
	assert.ErrorIs(t, err, teleop.ErrInvalidConfig)
}

func TestExists_Directory(t *testing.T) {
	assert.False(t, Exists(t.TempDir()))
}
