// Package joystick reads gamepads through the Linux joystick API
// (/dev/input/jsN).
package joystick

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gwillem/teleracer/pkg/teleop"
)

// DefaultDir is where the kernel exposes joystick device nodes.
const DefaultDir = "/dev/input"

// Event types from linux/joystick.h.
const (
	eventButton = 0x01
	eventAxis   = 0x02
	eventInit   = 0x80
)

const (
	eventSize = 8
	axisMax   = 32767
)

// Event is one js_event record.
type Event struct {
	Time   uint32 // milliseconds, driver clock
	Value  int16
	Type   uint8
	Number uint8
}

// IsAxis reports whether the event carries an axis position, including the
// synthetic initial-state events sent on open.
func (e Event) IsAxis() bool {
	return e.Type&^eventInit == eventAxis
}

// IsButton reports whether the event carries a button state.
func (e Event) IsButton() bool {
	return e.Type&^eventInit == eventButton
}

// DecodeEvent parses a js_event record.
func DecodeEvent(b []byte) (Event, error) {
	if len(b) < eventSize {
		return Event{}, fmt.Errorf("short joystick event: %d bytes", len(b))
	}
	return Event{
		Time:   binary.LittleEndian.Uint32(b[0:4]),
		Value:  int16(binary.LittleEndian.Uint16(b[4:6])),
		Type:   b[6],
		Number: b[7],
	}, nil
}

// Encode writes the event in js_event layout.
func (e Event) Encode() []byte {
	b := make([]byte, eventSize)
	binary.LittleEndian.PutUint32(b[0:4], e.Time)
	binary.LittleEndian.PutUint16(b[4:6], uint16(e.Value))
	b[6] = e.Type
	b[7] = e.Number
	return b
}

// Normalize converts a raw axis value to [-1, 1].
func Normalize(raw int16) float32 {
	v := float32(raw) / axisMax
	if v < -1 {
		v = -1
	}
	return v
}

// Opener opens joysticks by index from Dir.
type Opener struct {
	Dir string
}

// Open opens /dev/input/js<index>. A missing node reports teleop.ErrNoDevice.
func (o Opener) Open(index uint32) (teleop.InputDevice, error) {
	dev, err := Open(o.Dir, index)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// Open opens joystick index in dir (DefaultDir if empty).
func Open(dir string, index uint32) (*Device, error) {
	if dir == "" {
		dir = DefaultDir
	}
	path := filepath.Join(dir, fmt.Sprintf("js%d", index))

	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, teleop.ErrNoDevice)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewDevice(path, f), nil
}

// Device is an open joystick. Axis state is updated only by PumpEvents.
type Device struct {
	path string
	r    io.ReadCloser

	mu      sync.Mutex
	axes    map[uint8]float32
	buttons map[uint8]bool
	readErr error // set once the stream fails; the device is then disconnected
	buf     [eventSize * 64]byte
	pending []byte
}

// NewDevice wraps an open joystick stream. r must be an *os.File (or anything
// else exposing SyscallConn) for PumpEvents to work.
func NewDevice(path string, r io.ReadCloser) *Device {
	return &Device{
		path:    path,
		r:       r,
		axes:    make(map[uint8]float32),
		buttons: make(map[uint8]bool),
	}
}

// Path returns the device node.
func (d *Device) Path() string {
	return d.path
}

func (d *Device) consume(b []byte) {
	data := append(d.pending, b...)
	for len(data) >= eventSize {
		ev, _ := DecodeEvent(data[:eventSize])
		d.apply(ev)
		data = data[eventSize:]
	}
	d.pending = append(d.pending[:0], data...)
}

func (d *Device) apply(ev Event) {
	switch {
	case ev.IsAxis():
		d.axes[ev.Number] = Normalize(ev.Value)
	case ev.IsButton():
		d.buttons[ev.Number] = ev.Value != 0
	}
}

// Axis returns the last pumped value of an axis.
func (d *Device) Axis(index uint32) (float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return 0, fmt.Errorf("%s disconnected: %w: %w", d.path, teleop.ErrDeviceRead, d.readErr)
	}
	if index > 0xff {
		return 0, fmt.Errorf("%s axis %d: %w", d.path, index, teleop.ErrDeviceRead)
	}
	v, ok := d.axes[uint8(index)]
	if !ok {
		return 0, fmt.Errorf("%s has no axis %d: %w", d.path, index, teleop.ErrDeviceRead)
	}
	return v, nil
}

// Err returns the error that disconnected the device, if any.
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readErr
}

// Axes returns a copy of all known axis values.
func (d *Device) Axes() map[uint8]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uint8]float32, len(d.axes))
	for k, v := range d.axes {
		out[k] = v
	}
	return out
}

// Button returns the last pumped state of a button.
func (d *Device) Button(index uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buttons[index]
}

// Close releases the device node.
func (d *Device) Close() error {
	return d.r.Close()
}

// ParseIndex returns the index of a joystick node such as /dev/input/js2.
func ParseIndex(node string) (uint32, error) {
	name := filepath.Base(node)
	if !strings.HasPrefix(name, "js") {
		return 0, fmt.Errorf("%s is not a joystick node", node)
	}
	index, err := strconv.ParseUint(strings.TrimPrefix(name, "js"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s is not a joystick node: %w", node, err)
	}
	return uint32(index), nil
}

// List returns the joystick nodes in dir, sorted by index.
func List(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type node struct {
		path  string
		index uint32
	}
	var found []node
	for _, e := range entries {
		index, err := ParseIndex(e.Name())
		if err != nil {
			continue
		}
		found = append(found, node{filepath.Join(dir, e.Name()), index})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	nodes := make([]string, len(found))
	for i, n := range found {
		nodes[i] = n.path
	}
	return nodes, nil
}
