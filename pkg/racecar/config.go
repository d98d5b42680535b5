package racecar

import (
	"context"
	"fmt"
)

// Backend names.
const (
	BackendMaestro = "maestro"
	BackendFeetech = "feetech"
	BackendCAN     = "can"
	BackendDryRun  = "dry-run"
)

// Backends lists the supported backends.
func Backends() []string {
	return []string{BackendMaestro, BackendFeetech, BackendCAN, BackendDryRun}
}

// Config holds the car hardware configuration.
type Config struct {
	Backend      string        `json:"backend"`
	Port         string        `json:"port,omitempty"`          // serial port for maestro and feetech
	Serial       SerialOptions `json:"serial,omitempty"`        // maestro only
	CANInterface string        `json:"can_interface,omitempty"` // can only
	CANBaseID    uint32        `json:"can_base_id,omitempty"`
	SteeringGain float32       `json:"steering_gain"`
	Calibration  Calibration   `json:"calibration,omitempty"`
}

// DefaultConfig returns a configuration for backend with stock calibration.
func DefaultConfig(backend string) Config {
	cfg := Config{
		Backend:      backend,
		SteeringGain: DefaultSteeringGain,
		Calibration:  DefaultCalibration(backend),
	}
	if backend == BackendCAN {
		cfg.CANInterface = "can0"
		cfg.CANBaseID = DefaultCANBaseID
	}
	return cfg
}

// DefaultCalibration returns neutral calibration for a backend.
func DefaultCalibration(backend string) Calibration {
	switch backend {
	case BackendFeetech:
		return Calibration{
			Steering: {ID: 1, Min: 1024, Center: 2048, Max: 3072},
			Throttle: {ID: 2, Min: 1024, Center: 2048, Max: 3072},
		}
	case BackendCAN:
		return Calibration{
			Steering: {ID: 0, Min: -1000, Center: 0, Max: 1000},
			Throttle: {ID: 1, Min: -1000, Center: 0, Max: 1000},
		}
	default:
		// 1.0 ms - 1.5 ms - 2.0 ms in quarter microseconds
		return Calibration{
			Steering: {ID: 0, Min: 4000, Center: 6000, Max: 8000},
			Throttle: {ID: 1, Min: 4000, Center: 6000, Max: 8000},
		}
	}
}

// IsConfigured returns true if the backend has what it needs to connect.
func (c *Config) IsConfigured() bool {
	switch c.Backend {
	case BackendMaestro, BackendFeetech:
		return c.Port != ""
	case BackendCAN:
		return c.CANInterface != ""
	case BackendDryRun:
		return true
	}
	return false
}

// Open connects to the configured backend and returns a car driving it.
func Open(ctx context.Context, cfg Config) (*Racecar, error) {
	cal := cfg.Calibration
	if len(cal) == 0 {
		cal = DefaultCalibration(cfg.Backend)
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	var (
		ch  Channels
		err error
	)
	switch cfg.Backend {
	case BackendMaestro:
		ch, err = OpenMaestro(cfg.Port, cfg.Serial)
	case BackendFeetech:
		ch, err = OpenFeetech(ctx, cfg.Port, cal.IDs()...)
	case BackendCAN:
		baseID := cfg.CANBaseID
		if baseID == 0 {
			baseID = DefaultCANBaseID
		}
		ch, err = OpenCAN(ctx, cfg.CANInterface, baseID)
	case BackendDryRun:
		ch = NewMemoryChannels()
	default:
		return nil, fmt.Errorf("unknown backend %q (want one of %v)", cfg.Backend, Backends())
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}

	car, err := New(ch, cal, cfg.SteeringGain)
	if err != nil {
		ch.Close()
		return nil, err
	}

	// Start from neutral so the ESC arms and the wheels point straight.
	if err := car.SetThrottle(0); err != nil {
		car.Close()
		return nil, err
	}
	if err := car.SetSteering(0); err != nil {
		car.Close()
		return nil, err
	}
	return car, nil
}
