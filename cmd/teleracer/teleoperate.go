package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/teleracer/pkg/config"
	"github.com/gwillem/teleracer/pkg/joystick"
	"github.com/gwillem/teleracer/pkg/racecar"
	"github.com/gwillem/teleracer/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz       float64 `long:"hz" description:"Control loop frequency (default from config)"`
	InputDir string  `long:"input-dir" default:"/dev/input" description:"Directory with joystick device nodes"`
	DryRun   bool    `long:"dry-run" description:"Run the loop without moving hardware"`
	Headless bool    `long:"headless" description:"No dashboard; log to stderr and stop on SIGINT/SIGTERM"`
	Verbose  bool    `short:"v" long:"verbose" description:"Log every steering and throttle command"`

	Calibration string `long:"calibration" description:"JSON file with steering/throttle calibration, overriding the config"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Command colors
var commandColors = map[string]string{
	"steering": "51",  // cyan
	"throttle": "208", // orange
}

var commandNames = []string{"steering", "throttle"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type teleopModel struct {
	ctrl        *teleop.Controller
	car         *racecar.Racecar
	chart       *streamlinechart.Model
	width       int      // terminal width
	height      int      // terminal height
	logs        []string // last N log messages
	quitting    bool
	last        teleop.Snapshot
	lastCommand *teleop.Command // track previous command to detect movement
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if the command changed since the last snapshot
func (m *teleopModel) hasMovement(cmd teleop.Command) bool {
	if m.lastCommand == nil {
		return true // first reading, consider it movement
	}
	return *m.lastCommand != cmd
}

// Messages from the controller
type stateMsg teleop.Snapshot
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller, car *racecar.Racecar) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-1, 1),
	)

	for _, name := range commandNames {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(commandColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		car:   car,
		chart: &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := teleop.Snapshot(msg)
		m.last = state
		// Only update chart if there's movement (freeze when idle)
		if state.Err == nil && m.hasMovement(state.Command) {
			m.chart.PushDataSet("steering", float64(state.Command.Steering))
			m.chart.PushDataSet("throttle", float64(state.Command.Throttle))
			m.chart.DrawAll()
			cmd := state.Command
			m.lastCommand = &cmd
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("teleracer"))
	sb.WriteString(fmt.Sprintf(" - %.0f Hz - %s - tick %d", m.ctrl.Hz(), m.ctrl.State(), m.last.Tick))
	car := m.car.Snapshot()
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  steering %+.2f → %+.2f (%d)  throttle %+.2f → %+.2f (%d)",
		car.Steering, car.SteeringActual, car.SteeringOut, car.Throttle, car.ThrottleActual, car.ThrottleOut)))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	if err := m.ctrl.Err(); err != nil {
		sb.WriteString(errorStyle.Render("Loop stopped: " + err.Error()))
	}
	sb.WriteString("\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range commandNames {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(commandColors[name])).Bold(true)
		item := colorStyle.Render("━━") + " " + name
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	// Load config
	cfg, err := loadConfig(opts.Config, c.DryRun)
	switch {
	case errors.Is(err, errNoConfig):
		fmt.Fprintf(os.Stderr, "No configuration found in %s. Run 'teleracer setup' first.\n", opts.Config)
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	case config.Exists(opts.Config):
		fmt.Printf("Loaded configuration from %s\n", opts.Config)
	}

	if c.DryRun {
		cfg.Car = racecar.DefaultConfig(racecar.BackendDryRun)
	}
	if c.Calibration != "" {
		cal, err := racecar.LoadCalibration(c.Calibration)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid calibration: %v\n", err)
			os.Exit(1)
		}
		cfg.Car.Calibration = cal
	}
	if !cfg.Car.IsConfigured() {
		fmt.Fprintln(os.Stderr, "Car backend not configured. Run 'teleracer setup' first.")
		os.Exit(1)
	}
	if c.Hz > 0 {
		cfg.Controller.TickInterval = time.Duration(float64(time.Second) / c.Hz)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	// Connect to the car
	car, err := racecar.Open(context.Background(), cfg.Car)
	if err != nil {
		log.Fatalf("Failed to open car: %v", err)
	}
	defer car.Close()

	var ctrlOpts []teleop.Option
	ctrlOpts = append(ctrlOpts, teleop.WithVerbose(c.Verbose))
	if c.Headless {
		ctrlOpts = append(ctrlOpts, teleop.WithLogger(logger))
	}

	// Create controller
	ctrl, err := teleop.NewController(cfg.Controller, joystick.Opener{Dir: c.InputDir}, car, ctrlOpts...)
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	if err := ctrl.Start(); err != nil {
		if errors.Is(err, teleop.ErrNoDevice) {
			fmt.Fprintf(os.Stderr, "%v\nConnect the gamepad or pick another one with 'teleracer setup'.\n", err)
			os.Exit(1)
		}
		return err
	}
	defer ctrl.Stop()

	if c.Headless {
		return runHeadless(ctrl, logger)
	}

	// Run TUI
	p := tea.NewProgram(initialTeleopModel(ctrl, car), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	ctrl.Stop()
	if err := ctrl.Err(); err != nil {
		return fmt.Errorf("control loop: %w", err)
	}
	return nil
}

// runHeadless drives until a shutdown signal or until the loop dies.
func runHeadless(ctrl *teleop.Controller, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Printf("Shutdown requested")
	case <-ctrl.Done():
	}

	ctrl.Stop()
	if err := ctrl.Err(); err != nil {
		return fmt.Errorf("control loop: %w", err)
	}
	return nil
}
