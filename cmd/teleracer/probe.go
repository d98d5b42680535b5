package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/teleracer/pkg/joystick"
)

type ProbeCommand struct {
	InputDir string `long:"input-dir" default:"/dev/input" description:"Directory with joystick device nodes"`
	Device   int    `short:"d" long:"device" default:"-1" description:"Joystick index (default from config)"`
}

func (c *ProbeCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.Config, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	index := cfg.Controller.DeviceIndex
	if c.Device >= 0 {
		index = uint32(c.Device)
	}

	dev, err := joystick.Open(c.InputDir, index)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening joystick: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	fmt.Printf("Probing %s. Move each stick and trigger.\n\n", dev.Path())

	model := probeModel{
		dev:          dev,
		steeringAxis: cfg.Controller.SteeringAxis,
		throttleAxis: cfg.Controller.ThrottleAxis,
		minValues:    make(map[uint8]float32),
		maxValues:    make(map[uint8]float32),
	}
	if _, err := tea.NewProgram(model).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running probe: %v\n", err)
		os.Exit(1)
	}
	return nil
}

// Probe TUI model
type probeModel struct {
	dev          *joystick.Device
	steeringAxis uint32
	throttleAxis uint32
	values       map[uint8]float32
	minValues    map[uint8]float32
	maxValues    map[uint8]float32
	err          error
	quitting     bool
}

type tickMsg time.Time

func probeTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m probeModel) Init() tea.Cmd {
	return probeTick()
}

func (m probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.dev.PumpEvents()
		m.values = m.dev.Axes()
		for axis, v := range m.values {
			if lo, ok := m.minValues[axis]; !ok || v < lo {
				m.minValues[axis] = v
			}
			if hi, ok := m.maxValues[axis]; !ok || v > hi {
				m.maxValues[axis] = v
			}
		}
		if err := m.dev.Err(); err != nil {
			m.err = err
			return m, tea.Quit
		}
		return m, probeTick()
	}

	return m, nil
}

func (m probeModel) role(axis uint8) string {
	switch uint32(axis) {
	case m.steeringAxis:
		return "steering"
	case m.throttleAxis:
		return "throttle"
	}
	return ""
}

// bar renders v in [-1, 1] as a centered gauge.
func bar(v float32, width int) string {
	half := width / 2
	pos := half + int(v*float32(half))
	if pos < 0 {
		pos = 0
	}
	if pos > width {
		pos = width
	}
	cells := []rune(strings.Repeat("·", width+1))
	cells[half] = '│'
	cells[pos] = '█'
	return string(cells)
}

func (m probeModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return fmt.Sprintf("Joystick disconnected: %v\n", m.err)
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableAxisStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRoleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)

	axes := make([]uint8, 0, len(m.values))
	for axis := range m.values {
		axes = append(axes, axis)
	}
	sort.Slice(axes, func(i, j int) bool { return axes[i] < axes[j] })

	rows := make([][]string, 0, len(axes))
	for _, axis := range axes {
		v := m.values[axis]
		rows = append(rows, []string{
			fmt.Sprintf("%d", axis),
			fmt.Sprintf("%+.3f", v),
			bar(v, 20),
			fmt.Sprintf("%+.2f", m.minValues[axis]),
			fmt.Sprintf("%+.2f", m.maxValues[axis]),
			m.role(axis),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Axis", "Value", "", "Min", "Max", "Role").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableAxisStyle
			case 1:
				return tableCurrentStyle
			case 5:
				return tableRoleStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	if len(rows) == 0 {
		sb.WriteString(dimStyle.Render("Waiting for joystick events..."))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
