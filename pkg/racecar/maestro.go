package racecar

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// Maestro compact protocol commands.
const (
	maestroSetTarget = 0x84
	maestroMaxTarget = 0x3fff
)

// SerialOptions describes the serial connection used for a servo controller.
type SerialOptions struct {
	BaudRate int    `json:"baud_rate,omitempty"`
	DataBits int    `json:"data_bits,omitempty"`
	StopBits int    `json:"stop_bits,omitempty"`
	Parity   string `json:"parity,omitempty"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o SerialOptions) Normalize() (SerialOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial opens ports
// with.
func (o SerialOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode, nil
}

// MaestroChannels drives a Pololu Maestro servo controller over its USB
// command port. Targets are in quarter microseconds (6000 = 1.5 ms).
type MaestroChannels struct {
	mu   sync.Mutex
	port io.WriteCloser
	buf  [4]byte
}

// OpenMaestro opens the Maestro command port.
func OpenMaestro(port string, opts SerialOptions) (*MaestroChannels, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return NewMaestro(p), nil
}

// NewMaestro uses an already open command stream.
func NewMaestro(port io.WriteCloser) *MaestroChannels {
	return &MaestroChannels{port: port}
}

// EncodeMaestroTarget builds a compact protocol Set Target command.
func EncodeMaestroTarget(channel, target int) ([]byte, error) {
	if channel < 0 || channel > 0x7f {
		return nil, fmt.Errorf("maestro channel %d out of range", channel)
	}
	if target < 0 || target > maestroMaxTarget {
		return nil, fmt.Errorf("maestro target %d out of range", target)
	}
	return []byte{maestroSetTarget, byte(channel), byte(target & 0x7f), byte(target >> 7 & 0x7f)}, nil
}

// SetTarget sends a Set Target command for channel id.
func (m *MaestroChannels) SetTarget(ctx context.Context, id, target int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd, err := EncodeMaestroTarget(id, target)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(m.buf[:], cmd)
	if _, err := m.port.Write(m.buf[:n]); err != nil {
		return fmt.Errorf("write maestro command: %w", err)
	}
	return nil
}

// Close closes the serial port.
func (m *MaestroChannels) Close() error {
	return m.port.Close()
}

// ListSerialPorts returns the serial ports present on the system.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
