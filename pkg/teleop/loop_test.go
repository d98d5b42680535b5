package teleop

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopTick_InvertsSteeringAndMapsThrottle(t *testing.T) {
	dev := newFakeDevice(0.5, 0, 0, 1.0)
	car := &fakeCar{}
	cfg := DefaultConfig()
	loop := NewLoop(NewSampler(dev, cfg), car, cfg)

	cmd, err := loop.Tick()
	require.NoError(t, err)

	assert.Equal(t, float32(-0.5), cmd.Steering)
	assert.InDelta(t, 0.3, cmd.Throttle, 1e-6)
	assert.Equal(t, 1, dev.pumpCount())

	writes := car.history()
	require.Len(t, writes, 2)
	assert.Equal(t, "steering", writes[0].field, "steering is written before throttle")
	assert.Equal(t, "throttle", writes[1].field)
}

func TestLoopTick_CustomRange(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	car := &fakeCar{}
	cfg := DefaultConfig()
	cfg.ThrottleOutMin = -0.6
	cfg.ThrottleOutMax = 0.2
	loop := NewLoop(NewSampler(dev, cfg), car, cfg)

	cmd, err := loop.Tick()
	require.NoError(t, err)
	assert.InDelta(t, -0.2, cmd.Throttle, 1e-6)
}

func TestLoopTick_DeviceReadError(t *testing.T) {
	dev := newFakeDevice(0.1) // no throttle axis 3
	car := &fakeCar{}
	cfg := DefaultConfig()
	loop := NewLoop(NewSampler(dev, cfg), car, cfg)

	_, err := loop.Tick()
	require.Error(t, err)

	var te *TickError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, PhaseSample, te.Phase)
	assert.ErrorIs(t, err, ErrDeviceRead)
	assert.Empty(t, car.history(), "nothing is actuated when sampling fails")
}

func TestLoopTick_ActuatorError(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	car := &fakeCar{failField: "throttle"}
	cfg := DefaultConfig()
	loop := NewLoop(NewSampler(dev, cfg), car, cfg)

	_, err := loop.Tick()
	require.Error(t, err)

	var te *TickError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, PhaseActuate, te.Phase)
	assert.ErrorIs(t, err, ErrActuatorWrite)
}

func TestLoopTick_DegenerateRange(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	car := &fakeCar{}
	cfg := DefaultConfig()
	loop := NewLoop(NewSampler(dev, cfg), car, cfg)
	loop.inMin, loop.inMax = 1, 1

	_, err := loop.Tick()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDegenerateDomain)

	var te *TickError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, PhaseMap, te.Phase)
}

func TestSampler_DeadzoneAndInversion(t *testing.T) {
	dev := newFakeDevice(0.04, 0, 0, 0.8)
	cfg := DefaultConfig()
	cfg.Deadzone = 0.05
	cfg.InvertThrottle = true

	r, err := NewSampler(dev, cfg).Sample()
	require.NoError(t, err)
	assert.Equal(t, float32(0), r.Steering)
	assert.True(t, math.Abs(float64(r.ThrottleRaw+0.8)) < 1e-6)
}
