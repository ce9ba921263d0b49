package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rfbwld/rfbwld/internal/admin"
)

// statTickMsg drives StatusModel's periodic stats refresh, adapted from
// the teacher's InlineServerModel tick loop.
type statTickMsg time.Time

func statTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return statTickMsg(t) })
}

// StatusModel is a minimal local-terminal status view for `rfbwld serve`,
// grounded on the teacher's InlineServerModel pattern (spinner + styled
// status line + ticker-driven refresh) but with no log buffer or SSH
// auth prompt, since this program has nothing to approve interactively.
type StatusModel struct {
	statsFn  admin.StatsFunc
	spinner  spinner.Model
	stats    admin.Stats
	quitting bool
}

// NewStatusModel builds a status view that polls statsFn once per second.
func NewStatusModel(statsFn admin.StatsFunc) *StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &StatusModel{statsFn: statsFn, spinner: s}
}

func (m *StatusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, statTick())
}

func (m *StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case statTickMsg:
		m.stats = m.statsFn()
		return m, statTick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *StatusModel) View() string {
	if m.quitting {
		return ""
	}

	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	goodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	idleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	viewer := idleStyle.Render("waiting for a viewer")
	if m.stats.ViewerActive {
		viewer = goodStyle.Render(m.stats.ViewerAddr)
	}

	return fmt.Sprintf(
		"%s %s\n%s %s  %s %dx%d  %s %.1f  %s %d  %s %s\n\n%s\n",
		m.spinner.View(), nameStyle.Render("rfbwld"),
		labelStyle.Render("backend:"), m.stats.Backend,
		labelStyle.Render("output:"), m.stats.OutputWidth, m.stats.OutputHeight,
		labelStyle.Render("fps:"), m.stats.FPS,
		labelStyle.Render("damage:"), m.stats.LastDamage,
		labelStyle.Render("viewer:"), viewer,
		idleStyle.Render("press q to detach (the session keeps running)"),
	)
}
