package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/theme"
)

// CreateTaskMsg is dispatched when a new task is submitted via the form.
type CreateTaskMsg struct {
	Title       string
	Description string
}

// UpdateTaskMsg is dispatched when an existing task is edited via the form.
// Only changed fields are set in Patch.
type UpdateTaskMsg struct {
	TaskID string
	Patch  model.TaskPatch
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// SuggestRequestMsg asks the app to fetch a description suggestion for
// the current title.
type SuggestRequestMsg struct {
	Title string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	editMode   bool
	original   model.Task
	suggesting bool
	notice     string
	width      int
	height     int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for creating a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	m.fb.title = ""
	m.fb.description = ""
	m.suggesting = false
	m.notice = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.original = task
	m.fb.title = task.Title
	m.fb.description = task.Description
	m.suggesting = false
	m.notice = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// ApplySuggestion fills the description with text. The form is rebuilt so
// the text area shows the new value.
func (m *Model) ApplySuggestion(text string, err error) tea.Cmd {
	m.suggesting = false
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	m.notice = "Suggestion applied"
	m.fb.description = text
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+a":
			return m.requestSuggestion()
		case "esc":
			return m, func() tea.Msg { return CancelMsg{} }
		}
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

func (m Model) requestSuggestion() (Model, tea.Cmd) {
	if m.suggesting {
		return m, nil
	}
	title := strings.TrimSpace(m.fb.title)
	if title == "" {
		m.notice = "Enter a title first"
		return m, nil
	}
	m.suggesting = true
	m.notice = "Asking for a suggestion…"
	return m, func() tea.Msg { return SuggestRequestMsg{Title: title} }
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	content := theme.TitleStyle.Render(titleText) + "\n" + m.form.View()
	if m.notice != "" {
		content += "\n" + theme.HelpStyle.Render(m.notice)
	}
	content += "\n" + theme.HelpStyle.Render("ctrl+a: suggest description · esc: cancel")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	title := strings.TrimSpace(m.fb.title)
	description := strings.TrimSpace(m.fb.description)

	if !m.editMode {
		return func() tea.Msg { return CreateTaskMsg{Title: title, Description: description} }
	}

	var patch model.TaskPatch
	if title != m.original.Title {
		patch.Title = &title
	}
	if description != m.original.Description {
		patch.Description = &description
	}
	if patch.IsEmpty() {
		return func() tea.Msg { return CancelMsg{} }
	}
	id := m.original.ID
	return func() tea.Msg { return UpdateTaskMsg{TaskID: id, Patch: patch} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
