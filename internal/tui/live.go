// Package tui is the interactive live tuner: a bubbletea program that runs
// the rig in real time and accepts commander lines.
package tui

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/focsim/internal/commander"
	"github.com/san-kum/focsim/internal/config"
	"github.com/san-kum/focsim/internal/rig"
)

const (
	historyCapacity = 300
	logCapacity     = 8
	frameRate       = 60
)

type screen int

const (
	screenMenu screen = iota
	screenLive
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type param struct {
	owner commander.Tunable
	name  string
}

type Model struct {
	screen  screen
	presets []string
	cursor  int
	hasMenu bool

	name   string
	rig    *rig.Rig
	cmd    *commander.Commander
	out    *bytes.Buffer
	cycles int

	speed    float64
	paused   bool
	editing  bool
	showHelp bool

	params   []param
	selected int

	setpoint []float64
	velocity []float64
	filtered []float64
	output   []float64
	log      []string

	err           error
	width, height int
}

// NewModel starts on the preset menu when cfg is nil, otherwise it goes
// straight to the live view of cfg.
func NewModel(cfg *config.Config) (Model, error) {
	m := Model{
		presets: config.ListPresets(),
		speed:   1,
		width:   80,
		height:  24,
	}
	if cfg == nil {
		m.hasMenu = true
		return m, nil
	}
	if err := m.start(cfg); err != nil {
		return m, err
	}
	return m, nil
}

func (m *Model) start(cfg *config.Config) error {
	r, err := rig.New(cfg)
	if err != nil {
		return err
	}

	out := &bytes.Buffer{}
	m.rig = r
	m.out = out
	m.cmd = commander.ForLoop(out, r,
		commander.WithPID(r.PID()),
		commander.WithFilter(r.Filter()),
		commander.WithEncoder(r.EncoderView()),
	)
	m.name = cfg.Name
	if m.name == "" {
		m.name = "custom"
	}
	m.cycles = int(math.Max(1, math.Round(1/(frameRate*cfg.Dt))))
	m.params = []param{
		{r.PID(), "P"}, {r.PID(), "I"}, {r.PID(), "D"},
		{r.PID(), "ramp"}, {r.PID(), "limit"}, {r.Filter(), "Tf"},
	}
	m.selected = 0
	m.paused = false
	m.editing = false
	m.err = nil
	m.clearHistory()
	m.log = []string{"press : to type a commander line, :@ lists commands"}
	m.screen = screenLive
	return nil
}

func (m Model) Init() tea.Cmd {
	if m.screen == screenLive {
		return tick()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.screen == screenMenu {
			return m.menuKey(msg)
		}
		if m.editing {
			return m.editKey(msg)
		}
		return m.liveKey(msg)
	case tickMsg:
		if m.screen != screenLive {
			return m, nil
		}
		if !m.paused {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance runs one frame worth of control cycles and records the last one.
func (m *Model) advance() {
	steps := int(float64(m.cycles) * m.speed)
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		if _, err := m.rig.Step(); err != nil {
			m.err = err
			m.paused = true
			m.appendLog("loop stopped: " + err.Error())
			return
		}
	}
	s := m.rig.Last()
	m.setpoint = push(m.setpoint, s.Setpoint)
	m.velocity = push(m.velocity, s.Velocity)
	m.filtered = push(m.filtered, s.Filtered)
	m.output = push(m.output, s.Output)
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m *Model) clearHistory() {
	m.setpoint = make([]float64, 0, historyCapacity)
	m.velocity = make([]float64, 0, historyCapacity)
	m.filtered = make([]float64, 0, historyCapacity)
	m.output = make([]float64, 0, historyCapacity)
}

func (m Model) liveKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.hasMenu {
			m.screen = screenMenu
			m.err = nil
			return m, tea.ClearScreen
		}
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "r":
		m.rig.Reset()
		m.err = nil
		m.paused = false
		m.clearHistory()
	case ":", "/":
		m.editing = true
	case "tab":
		m.selected = (m.selected + 1) % len(m.params)
	case "shift+tab":
		m.selected = (m.selected + len(m.params) - 1) % len(m.params)
	case "up", "k":
		m.adjust(1.05)
	case "down", "j":
		m.adjust(0.95)
	case "+", "=":
		m.speed = math.Min(m.speed*2, 16)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.25)
	case "0":
		m.speed = 1
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// editKey feeds keystrokes to the commander byte by byte.
func (m Model) editKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		_ = m.cmd.HandleByte('\r')
		m.editing = false
	case tea.KeyEsc:
		_ = m.cmd.HandleByte(0x03)
		m.editing = false
	case tea.KeyBackspace, tea.KeyDelete:
		_ = m.cmd.HandleByte(0x7f)
	case tea.KeyRunes, tea.KeySpace:
		for _, r := range msg.Runes {
			if r < 128 {
				_ = m.cmd.HandleByte(byte(r))
			}
		}
	}
	m.drainLog()
	return m, nil
}

func (m *Model) adjust(factor float64) {
	p := m.params[m.selected]
	v := p.owner.GetParams()[p.name]
	if v == 0 && factor > 1 {
		v = 0.01
	} else {
		v *= factor
	}
	_ = p.owner.SetParam(p.name, v)
}

func (m *Model) drainLog() {
	if m.out.Len() == 0 {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(m.out.String(), "\n"), "\n") {
		m.appendLog(line)
	}
	m.out.Reset()
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > logCapacity {
		m.log = m.log[len(m.log)-logCapacity:]
	}
}

func (m Model) View() string {
	if m.screen == screenMenu {
		return m.viewMenu()
	}

	chart := "waiting for samples..."
	if len(m.velocity) > 1 {
		chartWidth := m.width - 60
		if chartWidth < 30 {
			chartWidth = 30
		}
		chart = asciigraph.PlotMany([][]float64{m.setpoint, m.velocity, m.filtered},
			asciigraph.Height(14),
			asciigraph.Width(chartWidth),
			asciigraph.SeriesColors(asciigraph.Gray, asciigraph.Green, asciigraph.Magenta),
			asciigraph.Caption("velocity rad/s: target, true, filtered"),
		)
	}
	left := chartStyle.Render(chart + "\n\n" + dim.Render("output  ") + sparkline(m.output, 40))

	s := m.rig.Last()
	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	b.WriteString(m.status() + "\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", s.Time))
	row("Target", fmt.Sprintf("%.2f", s.Setpoint))
	row("Velocity", fmt.Sprintf("%.2f", s.Velocity))
	row("Estimate", fmt.Sprintf("%.2f", s.Estimated))
	row("Filtered", fmt.Sprintf("%.2f", s.Filtered))
	row("Finite", fmt.Sprintf("%.2f", s.Finite))
	row("Output", fmt.Sprintf("%.3f V", s.Output))
	row("Load", fmt.Sprintf("%.4f N*m", m.rig.Load()))

	b.WriteString("\nPARAMETERS\n")
	for i, p := range m.params {
		line := fmt.Sprintf("%-6s %10.4f", p.name, p.owner.GetParams()[p.name])
		if i == m.selected {
			b.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\nMETRICS\n")
	metrics := m.rig.Metrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString("  " + dim.Render(fmt.Sprintf("%-15s", name)) + yellow.Render(fmt.Sprintf("%.4f", metrics[name])) + "\n")
	}

	b.WriteString("\n")
	for _, line := range m.log {
		b.WriteString(dim.Render(line) + "\n")
	}
	if m.editing {
		b.WriteString(promptStyle.Render("> ") + white.Render(m.cmd.Pending()) + magenta.Render("▋") + "\n")
	}

	b.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit ?:Help\n:Command TAB:Param ↑↓:Tune +-:Speed"))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, statsStyle.Render(b.String()))
	if m.showHelp {
		return helpText + "\n\n" + body
	}
	return body
}

func (m Model) status() string {
	speed := fmt.Sprintf(" x%g", m.speed)
	switch {
	case m.err != nil:
		return red.Render("STOPPED: " + m.err.Error())
	case m.paused:
		return yellow.Render("PAUSED") + dim.Render(speed)
	default:
		return green.Render("RUNNING") + dim.Render(speed)
	}
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Reset rig                ║
║  Q        - Quit                     ║
║  :        - Commander line           ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  + / -    - Faster / slower          ║
║  0        - Real time                ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// Run starts the tuner on cfg, or on the preset menu when cfg is nil.
func Run(cfg *config.Config) error {
	m, err := NewModel(cfg)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
