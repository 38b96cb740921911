package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/buzzauk/sixarm"
	"github.com/buzzauk/sixarm/pkg/adapters/sim"
	"github.com/buzzauk/sixarm/pkg/domain"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the rig against a simulated panel in a terminal UI",
	Long: `Runs the full control loop against in-memory electronics. Keystrokes
synthesize timed press and release edges on the panel buttons, so gestures go
through the same debounce and recognition pipeline the hardware uses.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		blob, err := openBlob(cfg)
		if err != nil {
			fmt.Printf("Error opening storage: %v\n", err)
			os.Exit(1)
		}

		panel := sim.New(cfg.PulseRange())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rig, err := sixarm.New(ctx,
			sixarm.WithBlob(blob),
			sixarm.WithDrivers(sixarm.Drivers{
				Actuator: panel, Sampler: panel, Buttons: panel, Indicator: panel,
			}),
			sixarm.WithPulseRange(cfg.PulseRange()),
			sixarm.WithTick(cfg.Tick.Std()),
			sixarm.WithDeadzone(cfg.Motion.Deadzone),
			sixarm.WithStepDelay(cfg.Timing.StepDelay.Std()),
			sixarm.WithGestureTiming(
				cfg.Timing.Debounce.Std(),
				cfg.Timing.DoubleWindow.Std(),
				cfg.Timing.Hold.Std(),
			),
		)
		if err != nil {
			fmt.Printf("Error initializing rig: %v\n", err)
			os.Exit(1)
		}

		go func() { _ = rig.Run(ctx) }()

		model := newSimModel(panel, cfg.PulseRange(), rig.Watch(ctx))
		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			fmt.Printf("Error running simulator: %v\n", err)
			os.Exit(1)
		}

		cancel()
		if err := rig.Close(); err != nil {
			fmt.Printf("Error closing storage: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(simCmd)
}

// Panel key timings. Taps and gaps sit comfortably inside the default
// double-press window; the hold beat exceeds the hold threshold.
const (
	tapBeat  = 120 * time.Millisecond
	gapBeat  = 100 * time.Millisecond
	holdBeat = 1200 * time.Millisecond
)

type statusMsg domain.Status

type frameMsg time.Time

type simModel struct {
	panel   *sim.Rig
	rng     domain.PulseRange
	watch   <-chan domain.Status
	status  domain.Status
	channel int
	offline bool
}

func newSimModel(panel *sim.Rig, rng domain.PulseRange, watch <-chan domain.Status) simModel {
	return simModel{panel: panel, rng: rng, watch: watch}
}

// Init implements tea.Model interface.
func (m simModel) Init() tea.Cmd {
	return tea.Batch(waitStatus(m.watch), frame())
}

func waitStatus(watch <-chan domain.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-watch
		if !ok {
			return tea.Quit()
		}
		return statusMsg(st)
	}
}

// The pot sliders and button edges change outside the status stream,
// so the view repaints on a modest fixed cadence as well.
func frame() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update implements tea.Model interface.
func (m simModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = domain.Status(msg)
		return m, waitStatus(m.watch)

	case frameMsg:
		return m, frame()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "1", "2", "3", "4", "5", "6":
			m.channel = int(msg.String()[0] - '1')

		case "up", "right", "+", "=":
			m.panel.NudgePot(m.channel, 25)
		case "down", "left", "-":
			m.panel.NudgePot(m.channel, -25)

		case "r":
			m.panel.Tap(sim.ButtonRecord, tapBeat)
		case "R":
			doublePress(m.panel, sim.ButtonRecord, tapBeat)
		case "d":
			doublePress(m.panel, sim.ButtonRecord, holdBeat)

		case "p":
			m.panel.Tap(sim.ButtonRun, tapBeat)
		case "P":
			doublePress(m.panel, sim.ButtonRun, tapBeat)
		case "a":
			doublePress(m.panel, sim.ButtonRun, holdBeat)

		case "s":
			m.panel.Tap(sim.ButtonStop, tapBeat)
		case "S":
			doublePress(m.panel, sim.ButtonStop, tapBeat)

		case "c":
			m.panel.Tap(sim.ButtonClear, holdBeat)

		case "o":
			m.offline = !m.offline
			m.panel.SetOffline(m.offline)
		}
	}
	return m, nil
}

// doublePress taps the button, then presses it again inside the
// double-press window and holds that second press for second.
func doublePress(panel *sim.Rig, b sim.Button, second time.Duration) {
	panel.SetButton(b, true)
	time.AfterFunc(tapBeat, func() { panel.SetButton(b, false) })
	time.AfterFunc(tapBeat+gapBeat, func() { panel.SetButton(b, true) })
	time.AfterFunc(tapBeat+gapBeat+second, func() { panel.SetButton(b, false) })
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Faint(true)
	selectStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// View implements tea.Model interface.
func (m simModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("sixarm simulator"))
	b.WriteString("\n\n")

	swatch := lipgloss.NewStyle().
		Foreground(lipgloss.Color(hexColor(m.status.Mode.Color()))).
		Render("●")
	connected := "connected"
	if !m.status.Connected {
		connected = "OFFLINE"
	}
	fmt.Fprintf(&b, "%s %s   %s steps=%d cursor=%d   %s\n\n",
		swatch, m.status.Mode.Label(),
		labelStyle.Render("bank:"), m.status.StepCount, m.status.Cursor,
		connected)

	pots := m.panel.Pots()
	for ch := 0; ch < domain.NumChannels; ch++ {
		name := fmt.Sprintf("%-13s", domain.ChannelNames[ch])
		if ch == m.channel {
			name = selectStyle.Render(name)
		}
		fmt.Fprintf(&b, " %d %s %s %4d  %s %4d\n",
			ch+1, name,
			gauge(m.status.Current[ch], m.rng, 24), m.status.Current[ch],
			labelStyle.Render("pot"), pots[ch])
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("1-6 select joint   ↑/↓ move pot   o unplug\n"))
	b.WriteString(helpStyle.Render("r record   R toggle mode   d delete last step\n"))
	b.WriteString(helpStyle.Render("p play step   P play once   a loop   s stop   S stop+rewind   c clear (hold)\n"))
	b.WriteString(helpStyle.Render("q quit"))
	return b.String()
}

// gauge renders v's position inside rng as a fixed-width bar.
func gauge(v uint16, rng domain.PulseRange, width int) string {
	span := float64(rng.Max - rng.Min)
	pos := float64(rng.ClampValue(v)-rng.Min) / span
	filled := int(pos*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func hexColor(c domain.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
