// Package racecar drives the steering servo and drive ESC of a small car.
package racecar

import (
	"context"
	"io"
)

// ChannelName identifies an actuator output.
type ChannelName string

// Outputs of a car.
const (
	Steering ChannelName = "steering"
	Throttle ChannelName = "throttle"
)

// AllChannels returns all channel names in write order.
func AllChannels() []ChannelName {
	return []ChannelName{
		Steering,
		Throttle,
	}
}

// Channels is a backend that moves an output to a raw target. The meaning of
// id and target depends on the backend: a Maestro channel and quarter
// microseconds, a Feetech servo ID and position, or a CAN ID offset and a
// signed per-mille command.
type Channels interface {
	SetTarget(ctx context.Context, id int, target int) error
	io.Closer
}
