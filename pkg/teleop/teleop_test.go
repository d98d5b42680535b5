package teleop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = 5 * time.Millisecond
	return cfg
}

func newTestController(t *testing.T, dev InputDevice, car Actuator) (*Controller, *fakeOpener) {
	t.Helper()
	opener := &fakeOpener{dev: dev}
	ctrl, err := NewController(testConfig(), opener, car)
	require.NoError(t, err)
	return ctrl, opener
}

func waitDone(t *testing.T, ctrl *Controller) {
	t.Helper()
	done := ctrl.Done()
	require.NotNil(t, done)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("control loop did not exit")
	}
}

func TestNewController_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ThrottleOutMin = 0.3
	cfg.ThrottleOutMax = -0.3

	_, err := NewController(cfg, &fakeOpener{}, &fakeCar{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewController(DefaultConfig(), nil, &fakeCar{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStart_NoDevice(t *testing.T) {
	car := &fakeCar{}
	ctrl, _ := newTestController(t, nil, car)

	err := ctrl.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.Equal(t, Idle, ctrl.State())
	assert.Nil(t, ctrl.Done(), "no background loop may be spawned")
	assert.Empty(t, car.history())
}

func TestStartStop(t *testing.T) {
	dev := newFakeDevice(0.5, 0, 0, 1)
	car := &fakeCar{}
	ctrl, _ := newTestController(t, dev, car)

	require.NoError(t, ctrl.Start())
	assert.Equal(t, Running, ctrl.State())
	assert.NotEmpty(t, ctrl.RunID())

	require.Eventually(t, func() bool { return dev.pumpCount() >= 3 }, 2*time.Second, time.Millisecond)

	ctrl.Stop()
	assert.Equal(t, Stopped, ctrl.State())
	assert.NoError(t, ctrl.Err())
	assert.True(t, dev.isClosed(), "device is released on stop")
	assert.Nil(t, ctrl.Done())

	pumps := dev.pumpCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, pumps, dev.pumpCount(), "no ticks after Stop returns")

	writes := car.history()
	require.GreaterOrEqual(t, len(writes), 6)
	assert.Equal(t, write{"throttle_gain", 0.2}, writes[0])
	assert.Equal(t, write{"steering_offset", 0.1}, writes[1])
	assert.Equal(t, write{"steering", -0.5}, writes[2])
	assert.Equal(t, "throttle", writes[3].field)
	assert.InDelta(t, 0.3, writes[3].value, 1e-6)
	assert.Equal(t, write{"throttle", 0}, writes[len(writes)-2], "throttle is zeroed on exit")
	assert.Equal(t, write{"steering", 0}, writes[len(writes)-1], "steering is centered on exit")
}

func TestStop_Idempotent(t *testing.T) {
	ctrl, _ := newTestController(t, newFakeDevice(0, 0, 0, 0), &fakeCar{})

	ctrl.Stop()
	assert.Equal(t, Idle, ctrl.State())

	require.NoError(t, ctrl.Start())
	ctrl.Stop()
	ctrl.Stop()
	assert.Equal(t, Stopped, ctrl.State())
	assert.NoError(t, ctrl.Err())
}

func TestStart_AlreadyRunning(t *testing.T) {
	ctrl, _ := newTestController(t, newFakeDevice(0, 0, 0, 0), &fakeCar{})

	require.NoError(t, ctrl.Start())
	defer ctrl.Stop()

	assert.ErrorIs(t, ctrl.Start(), ErrAlreadyRunning)
	assert.Equal(t, Running, ctrl.State())
}

func TestRestart(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	ctrl, opener := newTestController(t, dev, &fakeCar{})

	require.NoError(t, ctrl.Start())
	first := ctrl.RunID()
	ctrl.Stop()

	require.NoError(t, ctrl.Start())
	assert.Equal(t, Running, ctrl.State())
	assert.NotEqual(t, first, ctrl.RunID())
	ctrl.Stop()

	assert.Equal(t, 2, opener.opened)
	assert.Equal(t, Stopped, ctrl.State())
}

func TestDeviceReadErrorStopsLoop(t *testing.T) {
	dev := newFakeDevice(0.2, 0, 0, 0.1)
	dev.failAt = 5 // third tick
	ctrl, _ := newTestController(t, dev, &fakeCar{})

	require.NoError(t, ctrl.Start())
	waitDone(t, ctrl)

	assert.Equal(t, Stopped, ctrl.State())
	err := ctrl.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceRead)

	var te *TickError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseSample, te.Phase)
	assert.True(t, dev.isClosed(), "device is released when the loop dies")

	// Stop after a self-terminated run is a no-op.
	ctrl.Stop()
	assert.Equal(t, Stopped, ctrl.State())
	assert.ErrorIs(t, ctrl.Err(), ErrDeviceRead)
}

func TestRestartAfterFailure(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	dev.failAt = 1
	ctrl, _ := newTestController(t, dev, &fakeCar{})

	require.NoError(t, ctrl.Start())
	waitDone(t, ctrl)
	require.Error(t, ctrl.Err())

	dev.mu.Lock()
	dev.failAt = 0
	dev.mu.Unlock()

	require.NoError(t, ctrl.Start())
	assert.NoError(t, ctrl.Err(), "a new run clears the previous error")
	ctrl.Stop()
}

func TestStart_ActuatorUnavailable(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	ctrl, _ := newTestController(t, dev, &fakeCar{failField: "throttle_gain"})

	err := ctrl.Start()
	assert.ErrorIs(t, err, ErrActuatorWrite)
	assert.Equal(t, Idle, ctrl.State())
	assert.True(t, dev.isClosed())
}

func TestStates(t *testing.T) {
	dev := newFakeDevice(-0.25, 0, 0, -1)
	ctrl, _ := newTestController(t, dev, &fakeCar{})

	require.NoError(t, ctrl.Start())
	defer ctrl.Stop()

	select {
	case s := <-ctrl.States():
		assert.Equal(t, Running, s.State)
		assert.Equal(t, ctrl.RunID(), s.RunID)
		assert.NotZero(t, s.Tick)
		assert.Equal(t, float32(0.25), s.Command.Steering)
		assert.InDelta(t, -0.3, s.Command.Throttle, 1e-6)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestStopUnblocksAfterSlowTick(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	ctrl, _ := newTestController(t, dev, &fakeCar{})
	require.NoError(t, ctrl.Start())

	block := make(chan struct{})
	dev.mu.Lock()
	dev.blockCh = block
	dev.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		ctrl.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		// The loop may have been between ticks when Stop was called.
	case <-time.After(50 * time.Millisecond):
		assert.Equal(t, Stopping, ctrl.State(), "Stop waits for the in-flight tick")
		close(block)
		<-stopped
		block = nil
	}
	if block != nil {
		close(block)
	}
	assert.Equal(t, Stopped, ctrl.State())
}

func TestConfig_JSONDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.UnmarshalJSON([]byte(`{"throttle_axis": 4, "tick_interval": "50ms"}`)))

	want := DefaultConfig()
	want.ThrottleAxis = 4
	want.TickInterval = 50 * time.Millisecond
	assert.Equal(t, want, cfg)
	assert.InDelta(t, 20, cfg.Hz(), 1e-9)

	data, err := cfg.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tick_interval":"50ms"`)
}

func TestStop_FinalSnapshotIsStopped(t *testing.T) {
	dev := newFakeDevice(0, 0, 0, 0)
	ctrl, _ := newTestController(t, dev, &fakeCar{})

	require.NoError(t, ctrl.Start())
	require.Eventually(t, func() bool { return dev.pumpCount() >= 2 }, 2*time.Second, time.Millisecond)
	runID := ctrl.RunID()
	ctrl.Stop()

	select {
	case s := <-ctrl.States():
		assert.Equal(t, Stopped, s.State)
		assert.Equal(t, runID, s.RunID)
		assert.NoError(t, s.Err)
	default:
		t.Fatal("no final snapshot published")
	}
}

func TestStart_OpenDoesNotHoldLock(t *testing.T) {
	opener := newGatedOpener(newFakeDevice(0, 0, 0, 0))
	ctrl, err := NewController(testConfig(), opener, &fakeCar{})
	require.NoError(t, err)

	started := make(chan error, 1)
	go func() { started <- ctrl.Start() }()
	<-opener.entered

	queried := make(chan LoopState, 1)
	go func() { queried <- ctrl.State() }()
	select {
	case state := <-queried:
		assert.Equal(t, Idle, state)
	case <-time.After(time.Second):
		t.Fatal("State blocked while the device was opening")
	}
	assert.ErrorIs(t, ctrl.Start(), ErrAlreadyRunning, "a second Start during open is rejected")

	close(opener.release)
	require.NoError(t, <-started)
	assert.Equal(t, Running, ctrl.State())
	ctrl.Stop()
	assert.Equal(t, Stopped, ctrl.State())
}

func TestStates_UnreadChannelNeverBlocksLoop(t *testing.T) {
	dev := newFakeDevice(0.1, 0, 0, 0.2)
	ctrl, _ := newTestController(t, dev, &fakeCar{})

	require.NoError(t, ctrl.Start())
	// Nobody reads States; the loop keeps ticking on the latest-only channel.
	require.Eventually(t, func() bool { return dev.pumpCount() >= 10 }, 2*time.Second, time.Millisecond)
	ctrl.Stop()

	assert.Len(t, ctrl.States(), 1, "only the most recent snapshot is buffered")
}
