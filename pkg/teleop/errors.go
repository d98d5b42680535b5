package teleop

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice is returned by Start when no input device exists at the
	// configured index. No background loop is started.
	ErrNoDevice = errors.New("no input device")

	// ErrDeviceRead reports a disconnected device or an axis index the device
	// does not have.
	ErrDeviceRead = errors.New("device read failed")

	// ErrDegenerateDomain is returned by MapValue when inMin == inMax.
	ErrDegenerateDomain = errors.New("degenerate mapping domain")

	// ErrActuatorWrite reports a failed write to the steering or throttle actuator.
	ErrActuatorWrite = errors.New("actuator write failed")

	// ErrAlreadyRunning is returned by Start while a loop is running or stopping.
	ErrAlreadyRunning = errors.New("already running")

	// ErrInvalidConfig is returned for a Config that fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// MappingError is returned by MapValue for an empty input range.
type MappingError struct {
	Value float32
	InMin float32
	InMax float32
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map %g: input range [%g, %g] is empty", e.Value, e.InMin, e.InMax)
}

func (e *MappingError) Unwrap() error { return ErrDegenerateDomain }

// Phase names the step of a tick that failed.
type Phase string

const (
	PhaseSample  Phase = "sample"
	PhaseMap     Phase = "map"
	PhaseActuate Phase = "actuate"
)

// TickError is the terminal error of a control loop run.
type TickError struct {
	Phase Phase
	Err   error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %s: %v", e.Phase, e.Err)
}

func (e *TickError) Unwrap() error { return e.Err }
