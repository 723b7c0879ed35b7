package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/keys"
	"github.com/nhle/sprintsync/internal/theme"
)

// Context names the screen the overlay was opened from.
type Context int

const (
	ContextList Context = iota
	ContextBoard
	ContextDetail
	ContextOther
)

type section struct {
	title   string
	context Context
	groups  [][]key.Binding
}

// Model is the help overlay. Bindings are grouped by the screen they act
// on and the screen it was opened from is listed first.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	context Context
	width   int
	height  int
}

// New creates the help overlay for k.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:    k,
		help:    help.New(),
		context: ContextOther,
		width:   width,
		height:  height,
	}
}

// Init returns nil.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetContext selects which section is shown first.
func (m *Model) SetContext(c Context) {
	m.context = c
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) sections() []section {
	k := m.keys
	return []section{
		{"Task list", ContextList, [][]key.Binding{
			{k.Up, k.Down, k.Select},
			{k.Search, k.FilterState},
		}},
		{"Board", ContextBoard, [][]key.Binding{
			{k.Left, k.Right, k.Up, k.Down, k.Select},
			{k.Grab, k.Back},
		}},
		{"Task detail", ContextDetail, [][]key.Binding{
			{k.Up, k.Down, k.Back},
		}},
	}
}

// ordered returns the screen sections with the current one first, then
// the bindings that work everywhere.
func (m Model) ordered() []section {
	all := m.sections()
	out := make([]section, 0, len(all)+1)
	for _, s := range all {
		if s.context == m.context {
			out = append(out, s)
		}
	}
	for _, s := range all {
		if s.context != m.context {
			out = append(out, s)
		}
	}

	k := m.keys
	return append(out, section{"Everywhere", ContextOther, [][]key.Binding{
		{k.New, k.Edit, k.Delete, k.CycleStatus, k.Refresh},
		{k.ListView, k.BoardView, k.Dashboard},
		{k.Command, k.Help, k.Logout, k.Quit},
	}})
}

// View renders the help overlay.
func (m Model) View() string {
	m.help.Width = m.width - 4
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	currentStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

	parts := []string{theme.TitleStyle.Render("Keyboard Shortcuts")}
	for i, s := range m.ordered() {
		head := headStyle.Render(s.title)
		if i == 0 && s.context == m.context && m.context != ContextOther {
			head += " " + currentStyle.Render("(this screen)")
		}
		parts = append(parts, "", head, m.help.FullHelpView(s.groups))
		if s.context == ContextBoard {
			parts = append(parts, theme.HelpStyle.Render(
				"Pick a card up with space, move it with h/l and drop it with space. Mouse drag works too."))
		}
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
