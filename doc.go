// Package teleracer drives JetRacer-style RC cars with a gamepad.
//
// A fixed-rate control loop reads the steering and throttle axes of a Linux
// joystick, maps them to steering and throttle commands and writes them to
// the car. The car can be wired through a Pololu Maestro servo controller,
// Feetech STS bus servos or a CAN drive-by-wire node.
//
// # Installation
//
//	go install github.com/gwillem/teleracer/cmd/teleracer@latest
//
// # Usage
//
// First, run setup to pick the joystick axes and the car backend:
//
//	teleracer setup
//
// Check which axis moves with which stick:
//
//	teleracer probe
//
// Then start teleoperation:
//
//	teleracer teleoperate
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/teleracer: CLI with setup, probe and teleoperate commands
//   - pkg/teleop: Control loop, axis mapping and controller lifecycle
//   - pkg/joystick: Linux joystick device reader
//   - pkg/racecar: Car actuator, calibration and hardware backends
//   - pkg/config: Configuration file
package teleracer
