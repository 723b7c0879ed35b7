// Package dashboard shows the signed-in user, task totals and recent
// notifications.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/stats"
	"github.com/nhle/sprintsync/internal/theme"
)

const recentLimit = 8

// Model is the dashboard view.
type Model struct {
	user          model.User
	summary       stats.Summary
	notifications []model.Notification
	width         int
	height        int
}

// New creates an empty dashboard.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetUser sets the account shown in the greeting.
func (m *Model) SetUser(u model.User) {
	m.user = u
}

// SetTasks recomputes the totals.
func (m *Model) SetTasks(tasks []model.Task) {
	m.summary = stats.Summarize(tasks)
}

// SetNotifications replaces the recent activity list, newest first.
func (m *Model) SetNotifications(ns []model.Notification) {
	if len(ns) > recentLimit {
		ns = ns[:recentLimit]
	}
	m.notifications = ns
}

// View renders the dashboard.
func (m Model) View() string {
	name := m.user.Username
	if name == "" {
		name = "there"
	}
	greeting := theme.TitleStyle.Render(fmt.Sprintf("Welcome back, %s", name))

	var counts []string
	for _, st := range model.Statuses {
		counts = append(counts, theme.StatusStyle(st).Render(
			fmt.Sprintf("%s %d", st.Label(), m.summary.ByStatus[st])))
	}
	totals := lipgloss.JoinHorizontal(lipgloss.Top, counts...)

	lines := []string{
		greeting,
		fmt.Sprintf("%d tasks · %s tracked", m.summary.Total, stats.FormatMinutes(m.summary.TotalMinutes)),
		totals,
		m.progressBar(),
	}
	if m.summary.Provisional > 0 {
		lines = append(lines, theme.PendingStyle.Render(
			fmt.Sprintf("%d task(s) waiting for the server", m.summary.Provisional)))
	}

	lines = append(lines, "", theme.TitleStyle.Render("Recent activity"))
	if len(m.notifications) == 0 {
		lines = append(lines, theme.HelpStyle.Render("Nothing yet."))
	}
	for _, n := range m.notifications {
		ts := lipgloss.NewStyle().Foreground(theme.ColorGray).Render(n.CreatedAt.Local().Format(time.Kitchen))
		lines = append(lines, ts+" "+theme.NotificationStyle(n.Kind).Render(n.Message))
	}

	return theme.PanelStyle.
		Width(max(m.width-4, 20)).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) progressBar() string {
	width := min(max(m.width-24, 10), 50)
	filled := int(m.summary.Completion() * float64(width))
	bar := lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%% done", bar, m.summary.Completion()*100)
}

// SetSize updates the dashboard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
