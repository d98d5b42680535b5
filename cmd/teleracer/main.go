package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"teleracer.json" description:"Configuration file"`

	Setup       SetupCommand       `command:"setup" description:"Pick the joystick and car backend and save the configuration"`
	Probe       ProbeCommand       `command:"probe" description:"Show live joystick axis values to identify steering and throttle axes"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Drive the car with the joystick"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "teleracer - joystick teleoperation for JetRacer-style cars"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
