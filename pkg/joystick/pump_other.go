//go:build !unix

package joystick

import "fmt"

// PumpEvents marks the device disconnected; joysticks are only supported on
// Linux.
func (d *Device) PumpEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr == nil {
		d.readErr = fmt.Errorf("%s: joystick API not available on this platform", d.path)
	}
}
