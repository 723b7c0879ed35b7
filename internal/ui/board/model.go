// Package board renders tasks as status columns and lets the user drag a
// card from one column to another with the mouse or the keyboard.
package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/drag"
	"github.com/nhle/sprintsync/internal/keys"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/stats"
	"github.com/nhle/sprintsync/internal/theme"
	"github.com/nhle/sprintsync/internal/ui"
)

// Rows above the first card in a column: the top border and the header.
const cardOffset = 2

// Model is the board view.
type Model struct {
	keys     *keys.KeyMap
	drag     *drag.Controller
	columns  map[model.Status][]model.Task
	focus    int
	rows     map[model.Status]int
	top      int
	width    int
	height   int
	lastMove string
}

// New creates a board view that issues drops through mover.
func New(k *keys.KeyMap, mover drag.Mover, width, height int) Model {
	return Model{
		keys:    k,
		drag:    drag.New(mover),
		columns: make(map[model.Status][]model.Task),
		rows:    make(map[model.Status]int),
		width:   width,
		height:  height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Dragging reports whether a card is picked up.
func (m Model) Dragging() bool {
	return m.drag.Active()
}

// DragState returns the drag controller state.
func (m Model) DragState() drag.State {
	return m.drag.State()
}

// SetTasks regroups the board from a fresh cache snapshot.
func (m *Model) SetTasks(tasks []model.Task) {
	m.columns = stats.GroupByStatus(tasks)
	for _, st := range model.Statuses {
		if n := len(m.columns[st]); m.rows[st] >= n {
			m.rows[st] = max(n-1, 0)
		}
	}
}

// SetTop records the screen row where the board starts, for mouse hit
// testing.
func (m *Model) SetTop(top int) {
	m.top = top
}

// Selected returns the focused card.
func (m Model) Selected() (model.Task, bool) {
	st := m.focusedStatus()
	col := m.columns[st]
	row := m.rows[st]
	if row < 0 || row >= len(col) {
		return model.Task{}, false
	}
	return col[row], true
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.drag.Active() {
			return m.handleDragKeys(msg)
		}
		return m.handleNormalKeys(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.focus = (m.focus + len(model.Statuses) - 1) % len(model.Statuses)
	case key.Matches(msg, m.keys.Right):
		m.focus = (m.focus + 1) % len(model.Statuses)
	case key.Matches(msg, m.keys.Up):
		if st := m.focusedStatus(); m.rows[st] > 0 {
			m.rows[st]--
		}
	case key.Matches(msg, m.keys.Down):
		if st := m.focusedStatus(); m.rows[st] < len(m.columns[st])-1 {
			m.rows[st]++
		}

	case key.Matches(msg, m.keys.Grab):
		task, ok := m.Selected()
		if !ok {
			return m, nil
		}
		if err := m.drag.Begin(task); err != nil {
			return m, errCmd(err)
		}
		if err := m.drag.Enter(m.focusedStatus()); err != nil {
			return m, errCmd(err)
		}

	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return ui.NewTaskMsg{} }
	case key.Matches(msg, m.keys.Select):
		if task, ok := m.Selected(); ok {
			return m, func() tea.Msg { return ui.ShowTaskMsg{TaskID: task.ID} }
		}
	case key.Matches(msg, m.keys.Edit):
		if task, ok := m.Selected(); ok {
			return m, func() tea.Msg { return ui.EditTaskMsg{Task: task} }
		}
	case key.Matches(msg, m.keys.Delete):
		if task, ok := m.Selected(); ok {
			return m, func() tea.Msg { return ui.DeleteTaskMsg{TaskID: task.ID} }
		}
	case key.Matches(msg, m.keys.CycleStatus):
		if task, ok := m.Selected(); ok {
			next := task.Status.Next()
			return m, func() tea.Msg { return ui.ChangeStatusMsg{TaskID: task.ID, Status: next} }
		}
	}
	return m, nil
}

func (m Model) handleDragKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.focus = (m.focus + len(model.Statuses) - 1) % len(model.Statuses)
		return m, m.enter(m.focusedStatus())
	case key.Matches(msg, m.keys.Right):
		m.focus = (m.focus + 1) % len(model.Statuses)
		return m, m.enter(m.focusedStatus())
	case key.Matches(msg, m.keys.Grab), key.Matches(msg, m.keys.Select):
		return m.drop()
	case key.Matches(msg, m.keys.Back):
		m.drag.Cancel()
	}
	return m, nil
}

// handleMouse maps a press on a card to Begin, motion to Enter or Leave
// and release to Drop.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || m.drag.Active() {
			return m, nil
		}
		st, ok := m.columnAt(msg.X, msg.Y)
		if !ok {
			return m, nil
		}
		row := msg.Y - m.top - cardOffset
		col := m.columns[st]
		if row < 0 || row >= len(col) {
			return m, nil
		}
		m.focus = statusIndex(st)
		m.rows[st] = row
		if err := m.drag.Begin(col[row]); err != nil {
			return m, errCmd(err)
		}
		return m, m.enter(st)

	case tea.MouseActionMotion:
		if !m.drag.Active() {
			return m, nil
		}
		st, ok := m.columnAt(msg.X, msg.Y)
		if !ok {
			m.drag.Leave()
			return m, nil
		}
		m.focus = statusIndex(st)
		return m, m.enter(st)

	case tea.MouseActionRelease:
		if !m.drag.Active() {
			return m, nil
		}
		if _, ok := m.columnAt(msg.X, msg.Y); !ok {
			m.drag.Leave()
		}
		return m.drop()
	}
	return m, nil
}

func (m Model) enter(st model.Status) tea.Cmd {
	if err := m.drag.Enter(st); err != nil {
		return errCmd(err)
	}
	return nil
}

func (m Model) drop() (Model, tea.Cmd) {
	sess, _ := m.drag.Session()
	mut, err := m.drag.Drop(context.Background())
	if err != nil {
		return m, errCmd(err)
	}
	if mut != nil {
		m.lastMove = fmt.Sprintf("%s → %s", sess.Task.Title, sess.Over.Label())
	}
	return m, nil
}

// columnAt returns the column under the screen cell (x, y).
func (m Model) columnAt(x, y int) (model.Status, bool) {
	if y < m.top || y >= m.top+m.height {
		return "", false
	}
	w := m.columnWidth()
	if w <= 0 || x < 0 {
		return "", false
	}
	i := x / w
	if i >= len(model.Statuses) {
		return "", false
	}
	return model.Statuses[i], true
}

func (m Model) columnWidth() int {
	return m.width / len(model.Statuses)
}

func (m Model) focusedStatus() model.Status {
	return model.Statuses[m.focus]
}

func statusIndex(st model.Status) int {
	for i, s := range model.Statuses {
		if s == st {
			return i
		}
	}
	return 0
}

func errCmd(err error) tea.Cmd {
	return func() tea.Msg { return ui.ErrorMsg{Err: err} }
}

// View renders the board.
func (m Model) View() string {
	sess, dragging := m.drag.Session()
	hovering := m.drag.State() == drag.Hovering

	// Column frames add two cells of border and two of padding.
	inner := max(m.columnWidth()-4, 4)
	cols := make([]string, 0, len(model.Statuses))
	for i, st := range model.Statuses {
		tasks := m.columns[st]
		var b strings.Builder
		b.WriteString(theme.StatusStyle(st).Render(fmt.Sprintf("%s (%d)", st.Label(), len(tasks))))
		for row, t := range tasks {
			b.WriteString("\n")
			selected := i == m.focus && row == m.rows[st]
			picked := dragging && t.ID == sess.Task.ID
			title := truncate(t.Title, inner)
			if t.IsProvisional() {
				title = theme.PendingStyle.Render(title)
			}
			b.WriteString(theme.CardStyle(selected, picked).Render(title))
		}
		over := hovering && sess.Over == st
		cols = append(cols, theme.ColumnStyle(inner+2, i == m.focus, over).
			Height(max(m.height-cardOffset-1, 1)).
			Render(b.String()))
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	if dragging {
		return board
	}
	if m.lastMove != "" {
		board = lipgloss.JoinVertical(lipgloss.Left, board, theme.HelpStyle.Render("moved "+m.lastMove))
	}
	return board
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
