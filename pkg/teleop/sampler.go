package teleop

import (
	"fmt"
	"math"
)

// DeviceOpener opens input devices by index.
type DeviceOpener interface {
	// Open returns an error wrapping ErrNoDevice if nothing is present at index.
	Open(index uint32) (InputDevice, error)
}

// InputDevice is an open multi-axis input device such as a gamepad.
type InputDevice interface {
	// PumpEvents drains buffered device events into the axis state. It must be
	// called before reading axes on every tick.
	PumpEvents()
	// Axis returns the normalized axis value in [-1, 1]. Errors wrap
	// ErrDeviceRead.
	Axis(index uint32) (float32, error)
	Close() error
}

// AxisReading is the raw steering and throttle input of one tick.
type AxisReading struct {
	Steering    float32
	ThrottleRaw float32
}

// Sampler reads the configured steering and throttle axes from a device.
type Sampler struct {
	dev            InputDevice
	steeringAxis   uint32
	throttleAxis   uint32
	deadzone       float32
	invertThrottle bool
}

// NewSampler creates a sampler for dev using the axes named in cfg.
func NewSampler(dev InputDevice, cfg Config) *Sampler {
	return &Sampler{
		dev:            dev,
		steeringAxis:   cfg.SteeringAxis,
		throttleAxis:   cfg.ThrottleAxis,
		deadzone:       cfg.Deadzone,
		invertThrottle: cfg.InvertThrottle,
	}
}

// Sample pumps device events and reads both axes.
func (s *Sampler) Sample() (AxisReading, error) {
	s.dev.PumpEvents()

	steering, err := s.dev.Axis(s.steeringAxis)
	if err != nil {
		return AxisReading{}, fmt.Errorf("steering axis %d: %w", s.steeringAxis, err)
	}
	throttle, err := s.dev.Axis(s.throttleAxis)
	if err != nil {
		return AxisReading{}, fmt.Errorf("throttle axis %d: %w", s.throttleAxis, err)
	}
	if s.invertThrottle {
		throttle = -throttle
	}

	return AxisReading{
		Steering:    s.applyDeadzone(steering),
		ThrottleRaw: s.applyDeadzone(throttle),
	}, nil
}

func (s *Sampler) applyDeadzone(v float32) float32 {
	if s.deadzone > 0 && float32(math.Abs(float64(v))) < s.deadzone {
		return 0
	}
	return v
}
