package racecar

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// ChannelCalibration holds calibration data for a single output.
type ChannelCalibration struct {
	ID       int  `json:"id"`
	Min      int  `json:"min"`
	Center   int  `json:"center"`
	Max      int  `json:"max"`
	Reversed bool `json:"reversed,omitempty"`
}

// Calibration holds calibration data for all outputs, keyed by channel name.
type Calibration map[ChannelName]ChannelCalibration

// LoadCalibration reads a {"steering": {...}, "throttle": {...}} file, as
// measured on the bench, and rejects it unless both channels are usable.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	for name := range cal {
		if !slices.Contains(AllChannels(), name) {
			return nil, fmt.Errorf("%s: unknown channel %q", path, name)
		}
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cal, nil
}

// Normalize converts a raw target to a normalized value in the range [-1, 1].
// Each side of Center is scaled separately so asymmetric trims stay centered.
func (c ChannelCalibration) Normalize(raw int) float32 {
	var v float32
	switch {
	case raw >= c.Center:
		if c.Max == c.Center {
			return 0
		}
		v = float32(raw-c.Center) / float32(c.Max-c.Center)
	default:
		if c.Center == c.Min {
			return 0
		}
		v = float32(raw-c.Center) / float32(c.Center-c.Min)
	}
	if c.Reversed {
		v = -v
	}
	return v
}

// Denormalize converts a normalized value [-1, 1] to a raw target. Values
// outside the range are clamped to Min/Max.
func (c ChannelCalibration) Denormalize(norm float32) int {
	if c.Reversed {
		norm = -norm
	}
	if norm > 1 {
		norm = 1
	}
	if norm < -1 {
		norm = -1
	}
	if norm >= 0 {
		return c.Center + int(norm*float32(c.Max-c.Center)+0.5)
	}
	return c.Center - int(-norm*float32(c.Center-c.Min)+0.5)
}

// Validate checks that Min <= Center <= Max and Min < Max.
func (c ChannelCalibration) Validate() error {
	if c.Min > c.Center || c.Center > c.Max || c.Min == c.Max {
		return fmt.Errorf("calibration for id %d: need min <= center <= max and min < max, got %d/%d/%d",
			c.ID, c.Min, c.Center, c.Max)
	}
	return nil
}

// IDs returns the backend IDs for all channels in the calibration.
func (c Calibration) IDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllChannels() to ensure consistent ordering
	for _, name := range AllChannels() {
		if cc, ok := c[name]; ok {
			ids = append(ids, cc.ID)
		}
	}
	return ids
}

// Validate checks every channel the car writes to.
func (c Calibration) Validate() error {
	for _, name := range AllChannels() {
		cc, ok := c[name]
		if !ok {
			return fmt.Errorf("missing calibration for %s", name)
		}
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
