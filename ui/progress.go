// Package ui renders a live progress view of a collection run.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/cstatic/cstatic/engine"
)

// UpdateMsg carries a fresh counter snapshot into the UI. The runner sends
// one per tick.
type UpdateMsg struct {
	Snapshot engine.Snapshot
}

// DoneMsg tells the UI the run has finished.
type DoneMsg struct{}

// Model implements the tea.Model interface over the engine's run counters.
type Model struct {
	snapshot engine.Snapshot
	workers  int
	faster   bool
	done     bool

	spinner  spinner.Model
	progress progress.Model

	width  int
	height int

	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

// NewModel creates a progress model for a run with the given pool size.
func NewModel(workers int, faster bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		workers:      workers,
		faster:       faster,
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient()),
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

	case UpdateMsg:
		m.snapshot = msg.Snapshot

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	mode := "sequential"
	if m.faster {
		mode = fmt.Sprintf("%d workers", m.workers)
	}
	header := fmt.Sprintf("%s cstatic %s", m.spinner.View(),
		m.titleStyle.Render("Static File Collector"))
	sb.WriteString(header + "\n")

	snap := m.snapshot
	attempted := snap.Completed + snap.Failed
	var percent float64
	if snap.Discovered > 0 {
		percent = float64(attempted) / float64(snap.Discovered)
	}

	info := fmt.Sprintf("%d/%d files | %s | %s",
		attempted, snap.Discovered,
		humanize.Bytes(uint64(snap.BytesDone)), mode)
	if snap.Failed > 0 {
		info += " | " + m.errorStyle.Render(fmt.Sprintf("%d failed", snap.Failed))
	}

	sb.WriteString(m.infoStyle.Render(info) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n")

	help := m.infoStyle.Render("q/ctrl+c: quit")
	if m.done {
		help = m.successStyle.Render("Collection complete!")
	}
	sb.WriteString("\n" + help)

	return sb.String()
}
