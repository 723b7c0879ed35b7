// Package login renders the sign-in and sign-up form shown while no
// session is active.
package login

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/session"
	"github.com/nhle/sprintsync/internal/theme"
)

// Mode selects between signing in and creating an account.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// SubmitMsg is dispatched when the form is completed.
type SubmitMsg struct {
	Mode         Mode
	Registration session.Registration
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	mode     Mode
	username string
	email    string
	password string
	confirm  string
}

// Model is the login view.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	err    string
	busy   bool
	width  int
	height int
}

// New creates the login view in sign-in mode.
func New(width, height int) Model {
	m := Model{
		fb:     &formBindings{mode: ModeLogin},
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Reset clears the password fields and restarts the form, keeping the
// username. err is shown above the form when non-empty.
func (m *Model) Reset(err string) tea.Cmd {
	m.busy = false
	m.err = err
	m.fb.password = ""
	m.fb.confirm = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		m.err = ""
		submit := SubmitMsg{
			Mode: m.fb.mode,
			Registration: session.Registration{
				Username:        m.fb.username,
				Email:           m.fb.email,
				Password:        m.fb.password,
				ConfirmPassword: m.fb.confirm,
			},
		}
		return m, func() tea.Msg { return submit }
	}
	if m.form.State == huh.StateAborted {
		return m, tea.Quit
	}

	return m, cmd
}

// View renders the login view.
func (m Model) View() string {
	title := "Sign in to SprintSync"
	if m.fb.mode == ModeRegister {
		title = "Create a SprintSync account"
	}

	parts := []string{theme.TitleStyle.Render(title)}
	if m.err != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err))
	}
	if m.busy {
		parts = append(parts, theme.HelpStyle.Render("Signing in…"))
	} else {
		parts = append(parts, m.form.View())
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		theme.PanelStyle.Width(m.formWidth()+4).Render(content))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Mode]().
				Title("Account").
				Options(
					huh.NewOption("Sign in", ModeLogin),
					huh.NewOption("Create account", ModeRegister),
				).
				Value(&m.fb.mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm),
		).WithHideFunc(func() bool { return fb.mode != ModeRegister }),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w > 60 {
		w = 60
	}
	if w < 30 {
		w = 30
	}
	return w
}
