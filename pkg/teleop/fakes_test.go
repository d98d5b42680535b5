package teleop

import (
	"fmt"
	"sync"
)

type fakeDevice struct {
	mu      sync.Mutex
	axes    []float32
	pumps   int
	reads   int
	failAt  int // fail the read with this 1-based count; 0 never fails
	closed  bool
	blockCh chan struct{}
}

func newFakeDevice(axes ...float32) *fakeDevice {
	return &fakeDevice{axes: axes}
}

func (d *fakeDevice) PumpEvents() {
	d.mu.Lock()
	d.pumps++
	block := d.blockCh
	d.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (d *fakeDevice) Axis(index uint32) (float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.failAt > 0 && d.reads >= d.failAt {
		return 0, fmt.Errorf("joystick unplugged: %w", ErrDeviceRead)
	}
	if int(index) >= len(d.axes) {
		return 0, fmt.Errorf("axis %d out of range: %w", index, ErrDeviceRead)
	}
	return d.axes[index], nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) setAxis(index int, v float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.axes[index] = v
}

func (d *fakeDevice) pumpCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pumps
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeOpener struct {
	dev    InputDevice
	opened int
}

func (o *fakeOpener) Open(index uint32) (InputDevice, error) {
	if o.dev == nil {
		return nil, fmt.Errorf("joystick %d: %w", index, ErrNoDevice)
	}
	o.opened++
	return o.dev, nil
}

type write struct {
	field string
	value float32
}

type fakeCar struct {
	mu        sync.Mutex
	writes    []write
	failField string
}

func (c *fakeCar) set(field string, v float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if field == c.failField {
		return fmt.Errorf("i2c bus gone")
	}
	c.writes = append(c.writes, write{field, v})
	return nil
}

func (c *fakeCar) SetThrottleGain(v float32) error   { return c.set("throttle_gain", v) }
func (c *fakeCar) SetSteeringOffset(v float32) error { return c.set("steering_offset", v) }
func (c *fakeCar) SetSteering(v float32) error       { return c.set("steering", v) }
func (c *fakeCar) SetThrottle(v float32) error       { return c.set("throttle", v) }

func (c *fakeCar) history() []write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]write(nil), c.writes...)
}

// gatedOpener blocks Open until release is closed.
type gatedOpener struct {
	dev     InputDevice
	entered chan struct{}
	release chan struct{}
}

func newGatedOpener(dev InputDevice) *gatedOpener {
	return &gatedOpener{
		dev:     dev,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (o *gatedOpener) Open(uint32) (InputDevice, error) {
	close(o.entered)
	<-o.release
	return o.dev, nil
}
