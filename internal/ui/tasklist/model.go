package tasklist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/keys"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/theme"
	"github.com/nhle/sprintsync/internal/ui"
)

// Model is the main task list view component.
type Model struct {
	list         list.Model
	keys         *keys.KeyMap
	all          []model.Task
	statusFilter *model.Status
	query        string
	searchMode   bool
	searchInput  textinput.Model
	width        int
	height       int
}

// New creates a new task list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, TaskDelegate{}, width, height-2)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search tasks..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetTasks replaces the rows with a fresh cache snapshot, keeping the
// cursor on the same task when it is still visible.
func (m *Model) SetTasks(tasks []model.Task) tea.Cmd {
	m.all = tasks
	return m.apply()
}

// Selected returns the task under the cursor.
func (m Model) Selected() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = strings.TrimSpace(m.searchInput.Value())
		return m, m.apply()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.apply()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return ui.NewTaskMsg{} }

	case key.Matches(msg, m.keys.Select):
		task, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ui.ShowTaskMsg{TaskID: task.ID} }

	case key.Matches(msg, m.keys.Edit):
		task, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ui.EditTaskMsg{Task: task} }

	case key.Matches(msg, m.keys.Delete):
		task, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ui.DeleteTaskMsg{TaskID: task.ID} }

	case key.Matches(msg, m.keys.CycleStatus):
		task, ok := m.Selected()
		if !ok {
			return m, nil
		}
		next := task.Status.Next()
		return m, func() tea.Msg { return ui.ChangeStatusMsg{TaskID: task.ID, Status: next} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterState):
		m.cycleStatusFilter()
		return m, m.apply()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// cycleStatusFilter steps through all, todo, in progress, done.
func (m *Model) cycleStatusFilter() {
	if m.statusFilter == nil {
		st := model.Statuses[0]
		m.statusFilter = &st
		return
	}
	for i, st := range model.Statuses {
		if st == *m.statusFilter {
			if i == len(model.Statuses)-1 {
				m.statusFilter = nil
				return
			}
			next := model.Statuses[i+1]
			m.statusFilter = &next
			return
		}
	}
	m.statusFilter = nil
}

func (m *Model) apply() tea.Cmd {
	var selectedID string
	if task, ok := m.Selected(); ok {
		selectedID = task.ID
	}

	visible := Filter(m.all, m.statusFilter, m.query)
	items := make([]list.Item, len(visible))
	cursor := 0
	for i, task := range visible {
		items[i] = TaskItem{Task: task}
		if task.ID == selectedID {
			cursor = i
		}
	}

	m.list.Title = m.title()
	cmd := m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(cursor)
	}
	return cmd
}

func (m Model) title() string {
	if m.statusFilter == nil {
		return "Tasks"
	}
	return "Tasks · " + m.statusFilter.Label()
}

// Filter returns the tasks matching the status (when set) whose title or
// description contains query, case-insensitively.
func Filter(tasks []model.Task, status *model.Status, query string) []model.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if status != nil && t.Status != *status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// View renders the task list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no tasks are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.statusFilter != nil || m.query != "" {
		return style.Render("No matching tasks.\nTry adjusting your filters.")
	}

	return style.Render("No tasks yet.\n\nPress n to create one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
