package racecar

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// DefaultCANBaseID is the first arbitration ID used for actuator frames.
const DefaultCANBaseID = 0x300

// frameTransmitter is satisfied by *socketcan.Transmitter.
type frameTransmitter interface {
	TransmitFrame(ctx context.Context, frame can.Frame) error
}

// CANChannels sends one frame per target to a drive-by-wire node. The frame
// ID is BaseID+id and the payload is the target as a little-endian int16.
type CANChannels struct {
	BaseID uint32

	tx   frameTransmitter
	conn io.Closer
}

// OpenCAN dials a SocketCAN interface such as can0 or vcan0.
func OpenCAN(ctx context.Context, iface string, baseID uint32) (*CANChannels, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial: %w", err)
	}
	return &CANChannels{
		BaseID: baseID,
		tx:     socketcan.NewTransmitter(conn),
		conn:   conn,
	}, nil
}

// EncodeCANTarget builds the frame for a target.
func EncodeCANTarget(baseID uint32, id, target int) (can.Frame, error) {
	if id < 0 {
		return can.Frame{}, fmt.Errorf("can channel %d out of range", id)
	}
	if target < -32768 || target > 32767 {
		return can.Frame{}, fmt.Errorf("can target %d does not fit int16", target)
	}
	frameID := baseID + uint32(id)
	if frameID > 0x7ff {
		return can.Frame{}, fmt.Errorf("can id 0x%X exceeds standard frame range", frameID)
	}

	var f can.Frame
	f.ID = frameID
	f.Length = 2
	binary.LittleEndian.PutUint16(f.Data[:2], uint16(int16(target)))
	return f, nil
}

// SetTarget transmits the frame for channel id.
func (c *CANChannels) SetTarget(ctx context.Context, id, target int) error {
	frame, err := EncodeCANTarget(c.BaseID, id, target)
	if err != nil {
		return err
	}
	if err := c.tx.TransmitFrame(ctx, frame); err != nil {
		return fmt.Errorf("transmit 0x%X: %w", frame.ID, err)
	}
	return nil
}

// Close closes the socket.
func (c *CANChannels) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
