// Package teleop provides the joystick teleoperation control loop for a
// steered vehicle.
package teleop

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Controller manages the teleoperation control loop. It owns the only
// background goroutine of a run; Start creates it and Stop joins it.
type Controller struct {
	cfg     Config
	opener  DeviceOpener
	car     Actuator
	logger  *log.Logger
	verbose bool

	mu       sync.Mutex
	state    LoopState
	starting bool // Start is opening the device outside the lock
	stopCh  chan struct{}
	done    chan struct{} // closed when the run goroutine exits; nil without a run
	runID   string
	lastErr error

	stateCh chan Snapshot
	logCh   chan string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger mirrors log messages to l in addition to the Logs channel.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithVerbose enables a log line for every tick.
func WithVerbose(v bool) Option {
	return func(c *Controller) { c.verbose = v }
}

// NewController creates a controller reading from devices opened by opener
// and driving car.
func NewController(cfg Config, opener DeviceOpener, car Actuator, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opener == nil || car == nil {
		return nil, fmt.Errorf("%w: device opener and actuator are required", ErrInvalidConfig)
	}

	c := &Controller{
		cfg:     cfg,
		opener:  opener,
		car:     car,
		logger:  log.New(io.Discard, "", 0),
		stateCh: make(chan Snapshot, 1),
		logCh:   make(chan string, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// States returns a channel that receives telemetry snapshots. Only the most
// recent snapshot is kept if the reader falls behind.
func (c *Controller) States() <-chan Snapshot {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() float64 {
	return c.cfg.Hz()
}

// State returns the current lifecycle state.
func (c *Controller) State() LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that ended the last run, or nil if it was stopped
// cleanly or is still running.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// RunID returns the identifier of the current or most recent run.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Done returns a channel closed when the current run exits, whether through
// Stop or a tick error. It returns nil if no run was started.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Controller) log(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	c.logger.Print(line)
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), line)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start opens the input device and begins the control loop in the
// background. A missing device is reported here and no loop is started.
// The device is opened without holding the controller lock; a concurrent
// Start during that window returns ErrAlreadyRunning.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.starting || c.state == Running || c.state == Stopping {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.starting = true
	prev := c.done
	c.mu.Unlock()

	if prev != nil {
		// A run that ended on its own has already recorded its state.
		<-prev
	}

	dev, err := c.acquire()
	if err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
		return err
	}

	loop := NewLoop(NewSampler(dev, c.cfg), c.car, c.cfg)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.starting = false
	c.runID = uuid.NewString()
	c.lastErr = nil
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	c.state = Running

	c.log("Teleoperation started at %.0f Hz (device %d, run %s)", c.cfg.Hz(), c.cfg.DeviceIndex, c.runID)

	go c.run(loop, dev, c.runID, c.stopCh, c.done)
	return nil
}

// acquire opens the input device and forwards gain and offset to the car.
func (c *Controller) acquire() (InputDevice, error) {
	dev, err := c.opener.Open(c.cfg.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("open input device %d: %w", c.cfg.DeviceIndex, err)
	}

	if err := c.car.SetThrottleGain(c.cfg.ThrottleGain); err != nil {
		dev.Close()
		return nil, fmt.Errorf("set throttle gain: %w: %w", ErrActuatorWrite, err)
	}
	if err := c.car.SetSteeringOffset(c.cfg.SteeringOffset); err != nil {
		dev.Close()
		return nil, fmt.Errorf("set steering offset: %w: %w", ErrActuatorWrite, err)
	}
	return dev, nil
}

// Stop signals the loop to exit after its current tick and waits for the
// background goroutine to finish. If a device or actuator call blocks
// forever, Stop blocks with it. Stop is a no-op when nothing is running.
func (c *Controller) Stop() {
	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return
	case Running:
		c.state = Stopping
		close(c.stopCh)
	}
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return
	}
	<-done

	c.mu.Lock()
	if c.done == done {
		c.state = Stopped
		c.done, c.stopCh = nil, nil
	}
	c.mu.Unlock()
}

func (c *Controller) run(loop *Loop, dev InputDevice, runID string, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	var (
		tick   uint64
		runErr error
		last   Command
	)

	for {
		cmd, err := loop.Tick()
		tick++
		if err != nil {
			runErr = err
			break
		}
		last = cmd

		if c.verbose {
			c.log("Steering: %.3f, Throttle: %.3f", cmd.Steering, cmd.Throttle)
		}
		c.sendState(Snapshot{
			RunID:     runID,
			Tick:      tick,
			Command:   cmd,
			State:     Running,
			Timestamp: time.Now(),
		})

		select {
		case <-stop:
		case <-ticker.C:
		}
		select {
		case <-stop:
			c.shutdown(dev, runID, tick, last, nil)
			return
		default:
		}
	}

	c.shutdown(dev, runID, tick, last, runErr)
}

// shutdown neutralizes the car, releases the device and records how the run
// ended.
func (c *Controller) shutdown(dev InputDevice, runID string, tick uint64, last Command, runErr error) {
	if runErr != nil {
		c.log("Error: %v", runErr)
	}

	if err := c.car.SetThrottle(0); err != nil {
		c.log("Warning: failed to zero throttle: %v", err)
	}
	if err := c.car.SetSteering(0); err != nil {
		c.log("Warning: failed to center steering: %v", err)
	}
	if err := dev.Close(); err != nil {
		c.log("Warning: failed to close input device: %v", err)
	}

	c.mu.Lock()
	if runErr != nil {
		c.lastErr = runErr
		c.state = Stopped
	}
	c.mu.Unlock()

	// The final snapshot reports the run as over even while Stop is still
	// joining.
	c.sendState(Snapshot{
		RunID:     runID,
		Tick:      tick,
		Command:   last,
		State:     Stopped,
		Timestamp: time.Now(),
		Err:       runErr,
	})
	c.log("Teleoperation stopped")
}

func (c *Controller) sendState(s Snapshot) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}
