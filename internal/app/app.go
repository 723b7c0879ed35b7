package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sprintsync/internal/cache"
	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/keys"
	"github.com/nhle/sprintsync/internal/model"
	appsync "github.com/nhle/sprintsync/internal/sync"
	"github.com/nhle/sprintsync/internal/ui"
	"github.com/nhle/sprintsync/internal/ui/board"
	"github.com/nhle/sprintsync/internal/ui/command"
	settingsview "github.com/nhle/sprintsync/internal/ui/config"
	"github.com/nhle/sprintsync/internal/ui/dashboard"
	"github.com/nhle/sprintsync/internal/ui/detail"
	helpview "github.com/nhle/sprintsync/internal/ui/help"
	"github.com/nhle/sprintsync/internal/ui/login"
	"github.com/nhle/sprintsync/internal/ui/taskform"
	"github.com/nhle/sprintsync/internal/ui/tasklist"
)

const (
	suggestTimeout = 15 * time.Second
	recentLimit    = 8
)

// tasksChangedMsg is sent after the cache changed.
type tasksChangedMsg struct{}

// notificationMsg carries a mutation outcome.
type notificationMsg struct {
	notification model.Notification
}

// sessionClearedMsg is sent when the session store drops the session.
type sessionClearedMsg struct{}

// authResultMsg is sent when a login or registration finishes.
type authResultMsg struct {
	session model.Session
	err     error
}

// suggestionMsg carries the AI description suggestion.
type suggestionMsg struct {
	text string
	err  error
}

// activityLoadedMsg carries the notification log for the dashboard.
type activityLoadedMsg struct {
	recent []model.Notification
	unread int
}

// reloadResultMsg is sent when a single-task reload finishes.
type reloadResultMsg struct {
	err error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewBoard
	ViewDashboard
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewDetail
	ViewSettings
)

// Model is the root Bubble Tea model that manages view routing,
// layout, and the subscriptions to the cache, engine and session.
type Model struct {
	rt           *Runtime
	keys         *keys.KeyMap
	currentView  ViewState
	previousView ViewState
	homeView     ViewState
	layout       ui.Layout
	loginView    login.Model
	taskList     tasklist.Model
	board        board.Model
	dashboard    dashboard.Model
	detailView   detail.Model
	helpView     helpview.Model
	commandView  command.Model
	taskForm     taskform.Model
	settings     settingsview.Model
	poller       *appsync.Poller
	changes      <-chan cache.Change
	unsubscribe  func()
	cleared      chan struct{}
	notice       *model.Notification
	unreadCount  int
	loggingOut   bool
	ready        bool
}

// New creates the root model over rt.
func New(rt *Runtime) Model {
	k := keys.DefaultKeyMap()

	home := viewForName(rt.Config.Display.DefaultView)

	changes, unsubscribe := rt.Cache.Subscribe()
	cleared := make(chan struct{}, 1)
	rt.Sessions.OnClear(func() {
		select {
		case cleared <- struct{}{}:
		default:
		}
	})

	interval := time.Duration(rt.Config.Sync.PollIntervalSec) * time.Second

	m := Model{
		rt:          rt,
		keys:        k,
		homeView:    home,
		currentView: ViewLogin,
		loginView:   login.New(80, 24),
		taskList:    tasklist.New(k, 80, 24),
		board:       board.New(k, rt.Engine, 80, 24),
		dashboard:   dashboard.New(80, 24),
		detailView:  detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		taskForm:    taskform.New(80, 24),
		settings:    settingsview.New(rt.ProbeAPI, rt.SaveConfig, 80, 24),
		poller:      appsync.New(rt.Engine, interval),
		changes:     changes,
		unsubscribe: unsubscribe,
		cleared:     cleared,
	}
	if sess, ok := rt.Sessions.Current(); ok {
		m.currentView = home
		m.dashboard.SetUser(sess.User)
	}
	m.syncTasks()
	return m
}

// Init starts the subscriptions and the background refresh.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.waitForChange(),
		m.waitForNotification(),
		m.waitForClear(),
		m.poller.Start(),
		m.loadActivity(),
	}
	if m.currentView == ViewLogin {
		cmds = append(cmds, m.loginView.Init())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w := m.layout.ContentWidth()
		h := m.layout.ContentHeight()
		m.loginView.SetSize(w, h)
		m.taskList.SetSize(w, h)
		m.board.SetSize(w, h)
		m.board.SetTop(m.layout.ContentTop())
		m.dashboard.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.settings.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tasksChangedMsg:
		cmd := m.syncTasks()
		return m, tea.Batch(cmd, m.waitForChange())

	case notificationMsg:
		n := msg.notification
		m.notice = &n
		return m, tea.Batch(m.waitForNotification(), m.loadActivity())

	case activityLoadedMsg:
		m.unreadCount = msg.unread
		m.dashboard.SetNotifications(msg.recent)
		return m, nil

	case sessionClearedMsg:
		reason := "Session expired. Please login again."
		if m.loggingOut {
			reason = ""
			m.loggingOut = false
		}
		m.currentView = ViewLogin
		cmd := m.loginView.Reset(reason)
		return m, tea.Batch(cmd, m.waitForClear())

	case appsync.SyncResultMsg:
		return m, m.poller.WaitForNextResult()

	case login.SubmitMsg:
		return m, m.authenticate(msg)

	case authResultMsg:
		if msg.err != nil {
			cmd := m.loginView.Reset(gateway.UserMessage(msg.err))
			return m, cmd
		}
		m.dashboard.SetUser(msg.session.User)
		m.currentView = m.homeView
		m.poller.RefreshNow()
		return m, nil

	case ui.ShowTaskMsg:
		m.openDetail(msg.TaskID)
		return m, nil

	case detail.BackMsg:
		m.currentView = m.homeView
		return m, nil

	case detail.ReloadMsg:
		m.detailView.SetLoading(true)
		return m, m.reload(msg.TaskID)

	case reloadResultMsg:
		m.detailView.SetLoading(false)
		m.reject(msg.err)
		return m, nil

	case ui.NewTaskMsg:
		cmd := m.openForm(m.taskForm.StartCreate)
		return m, cmd

	case ui.EditTaskMsg:
		task := msg.Task
		cmd := m.openForm(func() tea.Cmd { return m.taskForm.StartEdit(task) })
		return m, cmd

	case ui.DeleteTaskMsg:
		_, err := m.rt.Engine.DeleteTask(context.Background(), msg.TaskID)
		m.reject(err)
		if err == nil && m.currentView == ViewDetail {
			m.currentView = m.homeView
		}
		return m, nil

	case ui.ChangeStatusMsg:
		_, err := m.rt.Engine.ChangeStatus(context.Background(), msg.TaskID, msg.Status)
		m.reject(err)
		return m, nil

	case ui.ErrorMsg:
		m.reject(msg.Err)
		return m, nil

	case taskform.CreateTaskMsg:
		m.closeForm()
		_, err := m.rt.Engine.CreateTask(context.Background(), msg.Title, msg.Description)
		m.reject(err)
		return m, nil

	case taskform.UpdateTaskMsg:
		m.closeForm()
		_, err := m.rt.Engine.UpdateTask(context.Background(), msg.TaskID, msg.Patch)
		m.reject(err)
		return m, nil

	case taskform.CancelMsg:
		m.closeForm()
		return m, nil

	case taskform.SuggestRequestMsg:
		return m, m.suggest(msg.Title)

	case suggestionMsg:
		var err error
		if msg.err != nil {
			err = errors.New(gateway.UserMessage(msg.err))
		}
		cmd := m.taskForm.ApplySuggestion(msg.text, err)
		return m, cmd

	case settingsview.ConfigSavedMsg:
		m.currentView = m.homeView
		if view := viewForName(msg.Config.Display.DefaultView); view != m.homeView {
			m.switchHome(view)
		}
		m.notice = &model.Notification{
			Kind:      model.NotificationSuccess,
			Message:   "Settings saved. Connection changes apply on next start.",
			CreatedAt: time.Now(),
		}
		return m, nil

	case settingsview.ConfigDoneMsg:
		m.currentView = m.homeView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.currentView == ViewBoard {
			var cmd tea.Cmd
			m.board, cmd = m.board.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if m.capturesKeys() {
			return m.updateActiveView(msg)
		}
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	return m.updateActiveView(msg)
}

// capturesKeys reports whether the active view needs every key, such as
// a form or a search box with focus.
func (m Model) capturesKeys() bool {
	switch m.currentView {
	case ViewLogin, ViewTaskForm, ViewSettings:
		return true
	case ViewList:
		return m.taskList.Searching()
	case ViewBoard:
		return m.board.Dragging()
	}
	return false
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.isHome() {
			return m, m.quit(), true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.helpView.SetContext(helpContext(m.currentView))
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp || m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}

	case key.Matches(msg, m.keys.ListView):
		if m.isHome() {
			m.switchHome(ViewList)
			return m, nil, true
		}
	case key.Matches(msg, m.keys.BoardView):
		if m.isHome() {
			m.switchHome(ViewBoard)
			return m, nil, true
		}
	case key.Matches(msg, m.keys.Dashboard):
		if m.isHome() {
			m.currentView = ViewDashboard
			return m, m.markActivityRead(), true
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.isHome() {
			m.poller.RefreshNow()
			return m, nil, true
		}

	case key.Matches(msg, m.keys.Logout):
		if m.isHome() {
			cmd := m.logout()
			return m, cmd, true
		}
	}
	return m, nil, false
}

func (m Model) isHome() bool {
	return m.currentView == ViewList || m.currentView == ViewBoard || m.currentView == ViewDashboard
}

func viewForName(name string) ViewState {
	if name == "board" {
		return ViewBoard
	}
	return ViewList
}

func (m *Model) switchHome(v ViewState) {
	m.homeView = v
	m.currentView = v
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	notice := m.layout.RenderNotice(m.notice)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, notice, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewList:
		return m.taskList.View()
	case ViewBoard:
		return m.board.View()
	case ViewDashboard:
		return m.dashboard.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewSettings:
		return m.settings.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	title := "SprintSync"
	if sess, ok := m.rt.Sessions.Current(); ok {
		title += " · " + sess.User.Username
	}
	if m.unreadCount > 0 {
		title = fmt.Sprintf("%s [%d new]", title, m.unreadCount)
	}
	return title
}

// syncStatus returns a short string describing the refresh state.
func (m Model) syncStatus() string {
	pending := ""
	if n := m.rt.Engine.Pending(); n > 0 {
		pending = fmt.Sprintf("%d saving · ", n)
	}

	st := m.poller.Status()
	switch {
	case !m.rt.Sessions.Active():
		return "signed out"
	case st.State == appsync.SyncRunning:
		return pending + "syncing…"
	case st.State == appsync.SyncError:
		return pending + "⚠ " + gateway.UserMessage(st.Error)
	case st.LastSync.IsZero():
		return pending + "offline copy"
	default:
		return pending + "synced " + st.LastSync.Format("15:04")
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter next | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewTaskForm:
		return "enter submit | ctrl+a suggest | esc cancel"
	case ViewSettings:
		return "enter next | shift+tab back | esc cancel"
	case ViewBoard:
		if m.board.Dragging() {
			return "h/l choose column | space drop | esc cancel"
		}
		return "q quit | ? help | space pick up | n new | e edit | d delete | 1 list | 3 dashboard"
	case ViewDashboard:
		return "q quit | 1 list | 2 board | r refresh | L logout"
	case ViewDetail:
		return "esc back | e edit | s status | d delete | r reload | ↑/↓ scroll"
	default:
		return "q quit | ? help | n new | e edit | s status | d delete | / search | tab filter | 2 board"
	}
}

// syncTasks pushes the current cache snapshot into every task view.
func (m *Model) syncTasks() tea.Cmd {
	tasks := m.rt.Cache.Snapshot()
	m.board.SetTasks(tasks)
	m.dashboard.SetTasks(tasks)
	if id := m.detailView.TaskID(); id != "" {
		m.showTask(id)
	}
	return m.taskList.SetTasks(tasks)
}

// openDetail shows the detail view for id.
func (m *Model) openDetail(id string) {
	m.showTask(id)
	m.currentView = ViewDetail
}

// showTask refreshes the detail view from the cache, following a
// provisional id to the server id once the create is confirmed.
func (m *Model) showTask(id string) {
	task, err := m.rt.Cache.Get(id)
	if err != nil {
		if resolved := m.rt.Engine.Resolve(id); resolved != id {
			task, err = m.rt.Cache.Get(resolved)
		}
	}
	m.detailView.SetTask(task, err == nil)
}

// closeForm leaves the task form for the view that opened it.
func (m *Model) closeForm() {
	m.currentView = m.previousView
	if m.currentView == ViewDetail {
		m.showTask(m.detailView.TaskID())
		return
	}
	if !m.isHome() {
		m.currentView = m.homeView
	}
}

func (m *Model) openForm(start func() tea.Cmd) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewTaskForm
	return start()
}

// reject shows an error that stopped a mutation before it was applied.
func (m *Model) reject(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	var f *gateway.Failure
	if errors.As(err, &f) {
		msg = gateway.UserMessage(err)
	}
	m.notice = &model.Notification{
		Kind:      model.NotificationError,
		Message:   msg,
		CreatedAt: time.Now(),
	}
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return tasksChangedMsg{}
	}
}

func (m Model) waitForNotification() tea.Cmd {
	ch := m.rt.Notifications()
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{notification: n}
	}
}

func (m Model) waitForClear() tea.Cmd {
	ch := m.cleared
	return func() tea.Msg {
		<-ch
		return sessionClearedMsg{}
	}
}

func (m Model) authenticate(msg login.SubmitMsg) tea.Cmd {
	rt := m.rt
	return func() tea.Msg {
		ctx := context.Background()
		var (
			sess model.Session
			err  error
		)
		if msg.Mode == login.ModeRegister {
			sess, err = rt.Register(ctx, msg.Registration)
		} else {
			sess, err = rt.Login(ctx, msg.Registration.Username, msg.Registration.Password)
		}
		return authResultMsg{session: sess, err: err}
	}
}

func (m Model) reload(id string) tea.Cmd {
	e := m.rt.Engine
	timeout := m.rt.Config.API.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return reloadResultMsg{err: e.Reload(ctx, id)}
	}
}

func (m Model) suggest(title string) tea.Cmd {
	gw := m.rt.Gateway
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), suggestTimeout)
		defer cancel()
		text, err := gw.Suggest(ctx, title)
		return suggestionMsg{text: text, err: err}
	}
}

// loadActivity returns a tea.Cmd that reads the notification log.
func (m Model) loadActivity() tea.Cmd {
	s := m.rt.Store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		recent, err := s.GetNotifications(ctx, recentLimit)
		if err != nil {
			return activityLoadedMsg{}
		}
		unread, err := s.GetUnreadNotifications(ctx)
		if err != nil {
			return activityLoadedMsg{recent: recent}
		}
		return activityLoadedMsg{recent: recent, unread: len(unread)}
	}
}

func (m Model) markActivityRead() tea.Cmd {
	s := m.rt.Store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		_ = s.MarkAllNotificationsRead(ctx)
		recent, _ := s.GetNotifications(ctx, recentLimit)
		return activityLoadedMsg{recent: recent}
	}
}

func (m *Model) logout() tea.Cmd {
	m.loggingOut = true
	rt := m.rt
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := rt.Logout(ctx); err != nil {
			return ui.ErrorMsg{Err: err}
		}
		return nil
	}
}

func (m Model) quit() tea.Cmd {
	m.poller.Stop()
	m.unsubscribe()
	return tea.Quit
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	switch cmd.Name() {
	case "new", "add":
		if title := cmd.Args(); title != "" {
			_, err := m.rt.Engine.CreateTask(context.Background(), title, "")
			m.reject(err)
			return nil
		}
		return m.openForm(m.taskForm.StartCreate)
	case "refresh", "sync":
		m.poller.RefreshNow()
		return nil
	case "list":
		m.switchHome(ViewList)
		return nil
	case "board":
		m.switchHome(ViewBoard)
		return nil
	case "dashboard":
		m.currentView = ViewDashboard
		return m.markActivityRead()
	case "settings", "config":
		m.currentView = ViewSettings
		return m.settings.Start(*m.rt.Config)
	case "logout":
		return m.logout()
	case "help":
		m.currentView = ViewHelp
		return nil
	case "quit", "q":
		return m.quit()
	default:
		m.reject(fmt.Errorf("unknown command %q", string(cmd)))
		return nil
	}
}

func helpContext(v ViewState) helpview.Context {
	switch v {
	case ViewList:
		return helpview.ContextList
	case ViewBoard:
		return helpview.ContextBoard
	case ViewDetail:
		return helpview.ContextDetail
	}
	return helpview.ContextOther
}
