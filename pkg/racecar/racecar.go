package racecar

import (
	"context"
	"fmt"
	"sync"

	"github.com/gwillem/teleracer/pkg/teleop"
)

// DefaultSteeringGain matches the servo linkage of the stock JetRacer. The
// sign flips the servo direction; the magnitude limits the lock angle.
const DefaultSteeringGain = -0.65

// DefaultThrottleGain is used until the controller sets its own gain.
const DefaultThrottleGain = 0.8

// State is a point-in-time copy of the car's inputs and outputs.
type State struct {
	SteeringGain   float32
	SteeringOffset float32
	ThrottleGain   float32
	Steering       float32 // last commanded steering, [-1, 1]
	Throttle       float32 // last commanded throttle
	SteeringOut    int     // raw target sent to the steering channel
	ThrottleOut    int     // raw target sent to the throttle channel

	// SteeringActual and ThrottleActual are the raw targets mapped back to
	// [-1, 1] through the calibration, after gain, offset and clamping.
	SteeringActual float32
	ThrottleActual float32
}

// Racecar turns normalized steering and throttle commands into channel
// targets. Writing steering sends steering*gain+offset; writing throttle sends
// throttle*gain. Both are clamped to [-1, 1] before calibration.
type Racecar struct {
	ch     Channels
	cal    Calibration
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
}

// New creates a car on top of an open backend.
func New(ch Channels, cal Calibration, steeringGain float32) (*Racecar, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Racecar{
		ch:     ch,
		cal:    cal,
		ctx:    ctx,
		cancel: cancel,
		state: State{
			SteeringGain: steeringGain,
			ThrottleGain: DefaultThrottleGain,
			SteeringOut:  cal[Steering].Center,
			ThrottleOut:  cal[Throttle].Center,
		},
	}, nil
}

// SetThrottleGain sets the factor applied to subsequent throttle writes.
func (r *Racecar) SetThrottleGain(gain float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.ThrottleGain = gain
	return nil
}

// SetSteeringOffset sets the trim added to subsequent steering writes.
func (r *Racecar) SetSteeringOffset(offset float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.SteeringOffset = offset
	return nil
}

// SetSteering moves the steering servo.
func (r *Racecar) SetSteering(value float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := teleop.Clamp(value*r.state.SteeringGain+r.state.SteeringOffset, -1, 1)
	raw, err := r.write(Steering, out)
	if err != nil {
		return err
	}
	r.state.Steering = value
	r.state.SteeringOut = raw
	r.state.SteeringActual = r.cal[Steering].Normalize(raw)
	return nil
}

// SetThrottle drives the ESC.
func (r *Racecar) SetThrottle(value float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := teleop.Clamp(value*r.state.ThrottleGain, -1, 1)
	raw, err := r.write(Throttle, out)
	if err != nil {
		return err
	}
	r.state.Throttle = value
	r.state.ThrottleOut = raw
	r.state.ThrottleActual = r.cal[Throttle].Normalize(raw)
	return nil
}

func (r *Racecar) write(name ChannelName, norm float32) (int, error) {
	cc := r.cal[name]
	raw := cc.Denormalize(norm)
	if err := r.ch.SetTarget(r.ctx, cc.ID, raw); err != nil {
		return 0, fmt.Errorf("%s channel %d: %w: %w", name, cc.ID, teleop.ErrActuatorWrite, err)
	}
	return raw, nil
}

// Snapshot returns a copy of the current state. It is safe to call from any
// goroutine.
func (r *Racecar) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close aborts pending writes and closes the backend.
func (r *Racecar) Close() error {
	r.cancel()
	return r.ch.Close()
}

var _ teleop.Actuator = (*Racecar)(nil)
