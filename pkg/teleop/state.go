package teleop

import "time"

// LoopState is the lifecycle state of a Controller.
type LoopState int

const (
	Idle LoopState = iota
	Running
	Stopping
	Stopped
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Snapshot is the telemetry published after every tick and once when a run ends.
type Snapshot struct {
	RunID     string
	Tick      uint64
	Command   Command
	State     LoopState
	Timestamp time.Time
	Err       error
}
