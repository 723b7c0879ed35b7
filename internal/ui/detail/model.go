package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/keys"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/theme"
	"github.com/nhle/sprintsync/internal/ui"
)

// BackMsg signals the parent to navigate back to the previous view.
type BackMsg struct{}

// ReloadMsg asks the parent to refetch the displayed task from the server.
type ReloadMsg struct {
	TaskID string
}

// Model is the task detail view component.
type Model struct {
	task     model.Task
	found    bool
	loading  bool
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// TaskID returns the id of the displayed task, or "" when none is shown.
func (m Model) TaskID() string {
	if !m.found {
		return ""
	}
	return m.task.ID
}

// SetTask replaces the displayed task. ok is false when the task has
// disappeared from the cache.
func (m *Model) SetTask(task model.Task, ok bool) {
	sameTask := m.found && ok && m.task.ID == task.ID
	m.task = task
	m.found = ok
	m.viewport.SetContent(m.renderContent())
	if !sameTask {
		m.viewport.GotoTop()
	}
}

// SetLoading toggles the reload indicator.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	m.viewport.SetContent(m.renderContent())
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		}

		if m.found {
			task := m.task
			switch {
			case key.Matches(msg, m.keys.Edit):
				return m, func() tea.Msg { return ui.EditTaskMsg{Task: task} }
			case key.Matches(msg, m.keys.Delete):
				return m, func() tea.Msg { return ui.DeleteTaskMsg{TaskID: task.ID} }
			case key.Matches(msg, m.keys.CycleStatus):
				next := task.Status.Next()
				return m, func() tea.Msg { return ui.ChangeStatusMsg{TaskID: task.ID, Status: next} }
			case key.Matches(msg, m.keys.Refresh):
				if task.IsProvisional() {
					return m, nil
				}
				return m, func() tea.Msg { return ReloadMsg{TaskID: task.ID} }
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if !m.found {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("This task no longer exists")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if !m.found {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	badges := []string{theme.StatusStyle(task.Status).Render(task.Status.Label())}
	if task.IsProvisional() {
		badges = append(badges, "  ", theme.PendingStyle.Render("saving…"))
	}
	if m.loading {
		badges = append(badges, "  ", theme.PendingStyle.Render("reloading…"))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-9s", label)), valStyle.Render(value))
	}

	sections = append(sections, row("ID:", task.ID))
	sections = append(sections, row("Tracked:", formatMinutes(task.TotalMinutes)))
	if !task.CreatedAt.IsZero() {
		sections = append(sections, row("Created:", task.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	if task.UpdatedAt != nil {
		sections = append(sections, row("Updated:", task.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(1, min(m.width-4, 80))))
	sections = append(sections, "", separator, "")

	descHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, descHeaderStyle.Render("Description"))

	body := task.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}

func formatMinutes(total int) string {
	if total <= 0 {
		return "nothing yet"
	}
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}
