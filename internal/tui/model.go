// Package tui provides the BubbleTea-based terminal front end for the timer.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/worktimer/internal/audio"
	"github.com/jmylchreest/worktimer/internal/timer"
)

const (
	volumeStep   = 10 // percent
	maxVolumePct = int(audio.MaxVolume * 100)
	volumeBarLen = 15
	statusTTL    = 2 * time.Second
)

// Session is the running timer the TUI drives.
type Session interface {
	Toggle() timer.Phase
	Reset() bool
	AddDuration(d time.Duration)
	Advance() bool
	State() timer.State
	SetMusicVolume(volume float64)
	MusicVolume() float64
	Channels() []audio.Status
}

// Model is the main TUI model.
type Model struct {
	session Session
	tick    time.Duration
	now     func() time.Time

	// Components
	help help.Model
	keys KeyMap

	// State
	showHelp bool
	width    int
	height   int

	// Status message
	statusMsg string
	statusErr bool
	statusSeq int
}

type tickMsg time.Time

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct {
	seq int
}

// New creates a TUI model that advances session every tick.
func New(session Session, tick time.Duration) Model {
	if tick <= 0 {
		tick = time.Second / 30
	}
	return Model{
		session: session,
		tick:    tick,
		now:     time.Now,
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.session.Advance() {
			var cmd tea.Cmd
			m, cmd = m.setStatus("Time is up! Press space to stop the alert", false)
			return m, tea.Batch(cmd, m.tickCmd())
		}
		return m, m.tickCmd()

	case statusMsg:
		return m.setStatus(msg.text, msg.isErr)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.session.Toggle()
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		if !m.session.Reset() {
			return m.setStatus("Stop the timer before resetting", true)
		}
		return m, nil

	case key.Matches(msg, m.keys.AddMinute):
		m.session.AddDuration(timer.OneMinute)
		return m, nil

	case key.Matches(msg, m.keys.AddTenMinutes):
		m.session.AddDuration(timer.TenMinutes)
		return m, nil

	case key.Matches(msg, m.keys.VolumeUp):
		return m.stepVolume(volumeStep)

	case key.Matches(msg, m.keys.VolumeDown):
		return m.stepVolume(-volumeStep)
	}

	return m, nil
}

// stepVolume moves the music volume by delta percent, snapped to whole percents.
func (m Model) stepVolume(delta int) (tea.Model, tea.Cmd) {
	pct := volumePercent(m.session.MusicVolume()) + delta
	pct = max(0, min(pct, maxVolumePct))
	m.session.SetMusicVolume(float64(pct) / 100)
	return m.setStatus(fmt.Sprintf("Music volume %d%%", pct), false)
}

func (m Model) setStatus(text string, isErr bool) (Model, tea.Cmd) {
	m.statusMsg = text
	m.statusErr = isErr
	m.statusSeq++
	seq := m.statusSeq
	return m, tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// View renders the TUI.
func (m Model) View() string {
	state := m.session.State()

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("worktimer") + "\n\n")

	b.WriteString("  " + clockStyle(state.Phase).Render(timer.FormatDuration(state.Remaining)) + "\n\n")

	button := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(clockStyle(state.Phase).GetForeground()).
		Render(state.Phase.Label())
	hint := labelStyle.Render(m.endsIn(state))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, "  ", button, "  ", hint) + "\n\n")

	b.WriteString("  " + labelStyle.Render("music ") + volumeBar(m.session.MusicVolume()) + "\n")

	for _, ch := range m.session.Channels() {
		if ch.Err == nil {
			continue
		}
		b.WriteString("  " + lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("! "+ch.Err.Error()) + "\n")
	}

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		b.WriteString("\n  " + statusStyle.Render(m.statusMsg) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

// endsIn describes when the countdown finishes.
func (m Model) endsIn(state timer.State) string {
	switch state.Phase {
	case timer.PhaseRunning:
		now := m.now()
		return "ends " + humanize.RelTime(now.Add(state.Remaining), now, "ago", "from now")
	case timer.PhaseAlerting:
		return "time is up"
	default:
		if state.Remaining == 0 {
			return "press 1 or 0 to add time"
		}
		return "paused"
	}
}

func clockStyle(phase timer.Phase) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch phase {
	case timer.PhaseRunning:
		return style.Foreground(lipgloss.Color("10"))
	case timer.PhaseAlerting:
		return style.Foreground(lipgloss.Color("9")).Blink(true)
	default:
		return style.Foreground(lipgloss.Color("7"))
	}
}

func volumeBar(volume float64) string {
	pct := volumePercent(volume)
	filled := pct * volumeBarLen / maxVolumePct
	bar := strings.Repeat("█", filled) + strings.Repeat("░", volumeBarLen-filled)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

func volumePercent(volume float64) int {
	return int(math.Round(volume * 100))
}

// RunOptions configures the TUI.
type RunOptions struct {
	Session      Session
	TickInterval time.Duration
}

// Run starts the TUI and blocks until the user quits.
func Run(opts RunOptions) error {
	m := New(opts.Session, opts.TickInterval)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err := p.Run()
	return err
}
