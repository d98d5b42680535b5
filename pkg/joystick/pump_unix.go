//go:build unix

package joystick

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/sys/unix"
)

type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

// PumpEvents drains every event currently buffered by the driver without
// blocking. A read error marks the device disconnected.
func (d *Device) PumpEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return
	}
	sc, ok := d.r.(syscallConner)
	if !ok {
		d.readErr = fmt.Errorf("%s does not expose a file descriptor", d.path)
		return
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		d.readErr = err
		return
	}

	for {
		var (
			n    int
			rerr error
		)
		err := rc.Read(func(fd uintptr) bool {
			n, rerr = unix.Read(int(fd), d.buf[:])
			return true // never park in the poller
		})
		switch {
		case err != nil:
			d.readErr = err
			return
		case errors.Is(rerr, unix.EAGAIN):
			return
		case errors.Is(rerr, unix.EINTR):
			continue
		case rerr != nil:
			d.readErr = rerr
			return
		case n == 0:
			d.readErr = io.EOF
			return
		}
		d.consume(d.buf[:n])
	}
}
