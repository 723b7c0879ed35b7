package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/theme"
)

// ConfigMode represents the current state of the settings view.
type ConfigMode int

const (
	ModeForm           ConfigMode = iota // Editing settings
	ModeValidating                       // Checking the API address
	ModeValidateResult                   // API check failed
)

const probeTimeout = 10 * time.Second

// ConfigDoneMsg signals the settings view closed without saving.
type ConfigDoneMsg struct{}

// ConfigSavedMsg carries the configuration that was written to disk.
type ConfigSavedMsg struct {
	Config model.AppConfig
}

// validateResultMsg carries the result of the API reachability check.
type validateResultMsg struct {
	err error
}

// configSavedInternalMsg is sent after the config file was written.
type configSavedInternalMsg struct {
	cfg model.AppConfig
	err error
}

// Prober checks that an API answers at baseURL.
type Prober func(ctx context.Context, baseURL string) error

// Saver writes cfg to the config file.
type Saver func(cfg model.AppConfig) error

// formFields holds the values huh binds to. They live on the heap so the
// pointers survive Model copies.
type formFields struct {
	baseURL     string
	timeout     string
	pollSeconds string
	defaultView string
	persist     bool
}

// Model is the Bubble Tea model for the settings view.
type Model struct {
	mode    ConfigMode
	base    model.AppConfig
	pending model.AppConfig

	form *huh.Form
	fb   *formFields

	validError error
	spinner    spinner.Model

	// Status message for transient feedback
	statusMsg string

	probe         Prober
	save          Saver
	width, height int
}

// New creates a settings view that checks addresses with probe and
// persists with save.
func New(probe Prober, save Saver, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		fb:      &formFields{},
		probe:   probe,
		save:    save,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init returns nil; Start builds the form.
func (m Model) Init() tea.Cmd {
	return nil
}

// Start opens the form pre-filled from cfg.
func (m *Model) Start(cfg model.AppConfig) tea.Cmd {
	m.base = cfg
	m.statusMsg = ""
	m.validError = nil
	m.fb = &formFields{
		baseURL:     cfg.API.BaseURL,
		timeout:     strconv.Itoa(cfg.API.TimeoutSec),
		pollSeconds: strconv.Itoa(cfg.Sync.PollIntervalSec),
		defaultView: cfg.Display.DefaultView,
		persist:     cfg.Session.Persist,
	}
	return m.openForm()
}

func (m *Model) openForm() tea.Cmd {
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case validateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		if msg.err != nil {
			m.validError = msg.err
			m.mode = ModeValidateResult
			return m, nil
		}
		return m, m.write(m.pending)

	case configSavedInternalMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			cmd := m.openForm()
			return m, cmd
		}
		cfg := msg.cfg
		return m, func() tea.Msg { return ConfigSavedMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			// Only allow escape during validation
			if msg.String() == "esc" {
				cmd := m.openForm()
				return m, cmd
			}
			return m, nil
		case ModeValidateResult:
			return m.handleValidateResultKeys(msg)
		case ModeForm:
			if msg.String() == "esc" {
				return m, func() tea.Msg { return ConfigDoneMsg{} }
			}
		}
	}

	return m.updateForm(msg)
}

// handleValidateResultKeys processes key events on the failed-check screen.
func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		return m, m.write(m.pending)
	case "r":
		return m.validate()
	case "n", "esc":
		cmd := m.openForm()
		return m, cmd
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode != ModeForm {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.pending = m.fb.apply(m.base)
		return m.validate()
	case huh.StateAborted:
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	}
	return m, cmd
}

func (m Model) validate() (Model, tea.Cmd) {
	m.mode = ModeValidating
	m.validError = nil
	return m, tea.Batch(m.spinner.Tick, m.check(m.pending.API.BaseURL))
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API address").
				Description("Root URL of the task API").
				Placeholder("http://localhost:8000").
				Value(&fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Request timeout").
				Description("Seconds before a single request gives up").
				Value(&fb.timeout).
				Validate(validateSeconds(1)),
			huh.NewInput().
				Title("Refresh interval").
				Description("Seconds between background refreshes, 0 to disable").
				Value(&fb.pollSeconds).
				Validate(validateSeconds(0)),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Start in").
				Options(
					huh.NewOption("List", "list"),
					huh.NewOption("Board", "board"),
				).
				Value(&fb.defaultView),
			huh.NewConfirm().
				Title("Remember login").
				Description("Keep the session in the system keyring between runs").
				Value(&fb.persist),
		),
	).WithWidth(m.formWidth())
}

// apply returns base with the form values written over it. Values have
// already passed validation.
func (fb *formFields) apply(base model.AppConfig) model.AppConfig {
	cfg := base
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(fb.baseURL), "/")
	cfg.API.TimeoutSec, _ = strconv.Atoi(strings.TrimSpace(fb.timeout))
	cfg.Sync.PollIntervalSec, _ = strconv.Atoi(strings.TrimSpace(fb.pollSeconds))
	cfg.Display.DefaultView = fb.defaultView
	cfg.Session.Persist = fb.persist
	return cfg
}

// check returns a command that probes baseURL.
func (m Model) check(baseURL string) tea.Cmd {
	probe := m.probe
	return func() tea.Msg {
		if probe == nil {
			return validateResultMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		return validateResultMsg{err: probe(ctx, baseURL)}
	}
}

// write returns a command that persists cfg.
func (m Model) write(cfg model.AppConfig) tea.Cmd {
	save := m.save
	return func() tea.Msg {
		return configSavedInternalMsg{cfg: cfg, err: save(cfg)}
	}
}

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		return m.viewForm()
	}
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}

	var b strings.Builder
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n")
	b.WriteString(m.form.View())

	if m.statusMsg != "" {
		b.WriteString("\n")
		statusStyle := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(b.String())
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Checking %s...\n\nPress esc to cancel.",
		m.spinner.View(),
		m.pending.API.BaseURL,
	)
	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	errStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorRed)
	content := errStyle.Render("API not reachable") + "\n\n" +
		m.validError.Error() + "\n\n" +
		lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render("y save anyway | r retry | esc edit")
	return style.Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
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

// --- Validators ---

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host (e.g., http://localhost:8000)")
	}
	return nil
}

func validateSeconds(minimum int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a whole number of seconds")
		}
		if n < minimum {
			return fmt.Errorf("must be at least %d", minimum)
		}
		return nil
	}
}
