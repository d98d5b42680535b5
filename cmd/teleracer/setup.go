package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/teleracer/pkg/config"
	"github.com/gwillem/teleracer/pkg/joystick"
	"github.com/gwillem/teleracer/pkg/racecar"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	InputDir string `long:"input-dir" default:"/dev/input" description:"Directory with joystick device nodes"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("teleracer setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig(opts.Config, true)
	if err != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Ignoring %v; starting from defaults", err)))
		cfg = config.Default()
	}

	// Step 1: joystick
	fmt.Println(subHeaderStyle.Render("━━━ Joystick ━━━"))
	index, err := pickJoystick(c.InputDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Controller.DeviceIndex = index

	steering, throttle := cfg.Controller.SteeringAxis, cfg.Controller.ThrottleAxis
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uint32]().
				Title("Steering axis").
				Description("Use 'teleracer probe' to see which axis moves").
				Options(axisOptions()...).
				Value(&steering),
			huh.NewSelect[uint32]().
				Title("Throttle axis").
				Options(axisOptions()...).
				Value(&throttle),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	cfg.Controller.SteeringAxis = steering
	cfg.Controller.ThrottleAxis = throttle

	// Step 2: car backend
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Car ━━━"))
	car, err := pickBackend(cfg.Car)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Car = car

	if err := cfg.Save(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("  Joystick: js%d (steering axis %d, throttle axis %d)\n",
		cfg.Controller.DeviceIndex, cfg.Controller.SteeringAxis, cfg.Controller.ThrottleAxis)
	fmt.Printf("  Car:      %s %s\n", cfg.Car.Backend, backendTarget(cfg.Car))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("teleracer teleoperate"))

	return nil
}

func pickJoystick(dir string) (uint32, error) {
	nodes, err := joystick.List(dir)
	if err != nil {
		return 0, fmt.Errorf("list joysticks in %s: %w", dir, err)
	}
	if len(nodes) == 0 {
		return 0, fmt.Errorf("no joysticks found in %s; make sure the gamepad is connected and paired", dir)
	}

	var options []huh.Option[uint32]
	for _, node := range nodes {
		index, err := joystick.ParseIndex(node)
		if err != nil {
			continue
		}
		options = append(options, huh.NewOption(node, index))
	}
	if len(options) == 1 {
		fmt.Printf("  Found joystick %s\n", nodes[0])
		return options[0].Value, nil
	}

	var index uint32
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uint32]().
				Title("Which joystick drives the car?").
				Options(options...).
				Value(&index),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return index, nil
}

func axisOptions() []huh.Option[uint32] {
	options := make([]huh.Option[uint32], 0, 8)
	for i := uint32(0); i < 8; i++ {
		options = append(options, huh.NewOption(fmt.Sprintf("axis %d", i), i))
	}
	return options
}

func pickBackend(current racecar.Config) (racecar.Config, error) {
	backend := current.Backend
	var options []huh.Option[string]
	for _, b := range racecar.Backends() {
		options = append(options, huh.NewOption(backendLabel(b), b))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How are the steering servo and ESC connected?").
				Options(options...).
				Value(&backend),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cfg := current
	if backend != current.Backend {
		cfg = racecar.DefaultConfig(backend)
	}

	switch backend {
	case racecar.BackendMaestro, racecar.BackendFeetech:
		port, err := pickSerialPort(cfg.Port)
		if err != nil {
			return cfg, err
		}
		cfg.Port = port
	case racecar.BackendCAN:
		iface := cfg.CANInterface
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("SocketCAN interface").
					Placeholder("can0").
					Value(&iface).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("interface name is required")
						}
						return nil
					}),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Println()
			os.Exit(0)
		}
		cfg.CANInterface = strings.TrimSpace(iface)
	}

	return cfg, nil
}

func pickSerialPort(current string) (string, error) {
	ports, err := racecar.ListSerialPorts()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}

	var options []huh.Option[string]
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		options = append(options, huh.NewOption(port, port))
	}
	if len(options) == 0 {
		return "", fmt.Errorf("no serial ports found; make sure the servo controller is plugged in")
	}

	port := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Serial port").
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return port, nil
}

func backendLabel(backend string) string {
	switch backend {
	case racecar.BackendMaestro:
		return "Pololu Maestro (USB servo controller)"
	case racecar.BackendFeetech:
		return "Feetech STS serial bus servos"
	case racecar.BackendCAN:
		return "CAN drive-by-wire node (SocketCAN)"
	case racecar.BackendDryRun:
		return "Dry run (no hardware)"
	}
	return backend
}

func backendTarget(cfg racecar.Config) string {
	switch cfg.Backend {
	case racecar.BackendCAN:
		return fmt.Sprintf("on %s (base id 0x%X)", cfg.CANInterface, cfg.CANBaseID)
	case racecar.BackendDryRun:
		return ""
	}
	return "on " + cfg.Port
}
