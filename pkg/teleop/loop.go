package teleop

import (
	"errors"
	"fmt"
)

// Actuator drives the vehicle. Gain and offset are configured once per run;
// steering and throttle are written on every tick.
type Actuator interface {
	SetThrottleGain(gain float32) error
	SetSteeringOffset(offset float32) error
	SetSteering(value float32) error
	SetThrottle(value float32) error
}

// Command is the actuator-ready output of one tick.
type Command struct {
	Steering float32
	Throttle float32
}

// Loop performs single control ticks. It holds no state between ticks.
type Loop struct {
	sampler *Sampler
	car     Actuator
	inMin   float32
	inMax   float32
	outMin  float32
	outMax  float32
}

// NewLoop creates a loop that samples through sampler and writes to car.
func NewLoop(sampler *Sampler, car Actuator, cfg Config) *Loop {
	return &Loop{
		sampler: sampler,
		car:     car,
		inMin:   -1,
		inMax:   1,
		outMin:  cfg.ThrottleOutMin,
		outMax:  cfg.ThrottleOutMax,
	}
}

// Tick samples the device, maps the reading and writes steering then throttle.
// Any failure is returned as a *TickError.
func (l *Loop) Tick() (Command, error) {
	reading, err := l.sampler.Sample()
	if err != nil {
		return Command{}, &TickError{Phase: PhaseSample, Err: err}
	}

	cmd, err := l.mapReading(reading)
	if err != nil {
		return Command{}, &TickError{Phase: PhaseMap, Err: err}
	}

	if err := l.car.SetSteering(cmd.Steering); err != nil {
		return cmd, &TickError{Phase: PhaseActuate, Err: actuatorErr("steering", err)}
	}
	if err := l.car.SetThrottle(cmd.Throttle); err != nil {
		return cmd, &TickError{Phase: PhaseActuate, Err: actuatorErr("throttle", err)}
	}
	return cmd, nil
}

// mapReading inverts steering (the gamepad reports right as negative) and
// scales throttle into the configured output range.
func (l *Loop) mapReading(r AxisReading) (Command, error) {
	throttle, err := MapValue(r.ThrottleRaw, l.inMin, l.inMax, l.outMin, l.outMax)
	if err != nil {
		return Command{}, err
	}
	return Command{Steering: -r.Steering, Throttle: throttle}, nil
}

func actuatorErr(what string, err error) error {
	if errors.Is(err, ErrActuatorWrite) {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return fmt.Errorf("write %s: %w: %w", what, ErrActuatorWrite, err)
}
