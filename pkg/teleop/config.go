package teleop

import (
	"encoding/json"
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultThrottleGain   = 0.2
	DefaultSteeringOffset = 0.1
	DefaultSteeringAxis   = 0
	DefaultThrottleAxis   = 3
	DefaultThrottleOutMin = -0.3
	DefaultThrottleOutMax = 0.3
	DefaultTickInterval   = 100 * time.Millisecond
)

// Config holds configuration for the controller. It is copied into the
// controller on construction and never changes afterwards.
type Config struct {
	ThrottleGain   float32       `json:"throttle_gain"`
	SteeringOffset float32       `json:"steering_offset"`
	DeviceIndex    uint32        `json:"device_index"`
	SteeringAxis   uint32        `json:"steering_axis"`
	ThrottleAxis   uint32        `json:"throttle_axis"`
	ThrottleOutMin float32       `json:"throttle_out_min"`
	ThrottleOutMax float32       `json:"throttle_out_max"`
	TickInterval   time.Duration `json:"tick_interval"`

	// Deadzone zeroes raw axis readings whose magnitude is below it.
	Deadzone float32 `json:"deadzone,omitempty"`
	// InvertThrottle negates the raw throttle axis before mapping.
	InvertThrottle bool `json:"invert_throttle,omitempty"`
}

// DefaultConfig returns the stock JetRacer gamepad setup.
func DefaultConfig() Config {
	return Config{
		ThrottleGain:   DefaultThrottleGain,
		SteeringOffset: DefaultSteeringOffset,
		SteeringAxis:   DefaultSteeringAxis,
		ThrottleAxis:   DefaultThrottleAxis,
		ThrottleOutMin: DefaultThrottleOutMin,
		ThrottleOutMax: DefaultThrottleOutMax,
		TickInterval:   DefaultTickInterval,
	}
}

// Validate checks the invariants the control loop relies on.
func (c Config) Validate() error {
	if !(c.ThrottleOutMin < c.ThrottleOutMax) {
		return fmt.Errorf("%w: throttle_out_min %g must be below throttle_out_max %g",
			ErrInvalidConfig, c.ThrottleOutMin, c.ThrottleOutMax)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval %s must be positive", ErrInvalidConfig, c.TickInterval)
	}
	if c.Deadzone < 0 || c.Deadzone >= 1 {
		return fmt.Errorf("%w: deadzone %g must be in [0, 1)", ErrInvalidConfig, c.Deadzone)
	}
	return nil
}

// Hz returns the nominal tick frequency.
func (c Config) Hz() float64 {
	if c.TickInterval <= 0 {
		return 0
	}
	return float64(time.Second) / float64(c.TickInterval)
}

type configJSON struct {
	ThrottleGain   float32 `json:"throttle_gain"`
	SteeringOffset float32 `json:"steering_offset"`
	DeviceIndex    uint32  `json:"device_index"`
	SteeringAxis   uint32  `json:"steering_axis"`
	ThrottleAxis   uint32  `json:"throttle_axis"`
	ThrottleOutMin float32 `json:"throttle_out_min"`
	ThrottleOutMax float32 `json:"throttle_out_max"`
	TickInterval   string  `json:"tick_interval"`
	Deadzone       float32 `json:"deadzone,omitempty"`
	InvertThrottle bool    `json:"invert_throttle,omitempty"`
}

// MarshalJSON writes the tick interval as a duration string ("100ms").
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{
		ThrottleGain:   c.ThrottleGain,
		SteeringOffset: c.SteeringOffset,
		DeviceIndex:    c.DeviceIndex,
		SteeringAxis:   c.SteeringAxis,
		ThrottleAxis:   c.ThrottleAxis,
		ThrottleOutMin: c.ThrottleOutMin,
		ThrottleOutMax: c.ThrottleOutMax,
		TickInterval:   c.TickInterval.String(),
		Deadzone:       c.Deadzone,
		InvertThrottle: c.InvertThrottle,
	})
}

// UnmarshalJSON reads a config, keeping defaults for fields that are absent.
func (c *Config) UnmarshalJSON(data []byte) error {
	def := DefaultConfig()
	raw := configJSON{
		ThrottleGain:   def.ThrottleGain,
		SteeringOffset: def.SteeringOffset,
		DeviceIndex:    def.DeviceIndex,
		SteeringAxis:   def.SteeringAxis,
		ThrottleAxis:   def.ThrottleAxis,
		ThrottleOutMin: def.ThrottleOutMin,
		ThrottleOutMax: def.ThrottleOutMax,
		TickInterval:   def.TickInterval.String(),
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	interval, err := time.ParseDuration(raw.TickInterval)
	if err != nil {
		return fmt.Errorf("parse tick_interval: %w", err)
	}
	*c = Config{
		ThrottleGain:   raw.ThrottleGain,
		SteeringOffset: raw.SteeringOffset,
		DeviceIndex:    raw.DeviceIndex,
		SteeringAxis:   raw.SteeringAxis,
		ThrottleAxis:   raw.ThrottleAxis,
		ThrottleOutMin: raw.ThrottleOutMin,
		ThrottleOutMax: raw.ThrottleOutMax,
		TickInterval:   interval,
		Deadzone:       raw.Deadzone,
		InvertThrottle: raw.InvertThrottle,
	}
	return nil
}
