package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/session"
	"github.com/nhle/sprintsync/internal/ui"
	"github.com/nhle/sprintsync/internal/ui/command"
	settingsview "github.com/nhle/sprintsync/internal/ui/config"
	"github.com/nhle/sprintsync/internal/ui/detail"
	"github.com/nhle/sprintsync/internal/ui/login"
	"github.com/nhle/sprintsync/internal/store/storetest"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fakeAPI(t *testing.T) http.Handler {
	t.Helper()
	task := map[string]interface{}{
		"id": 1, "title": "Write docs", "status": "todo", "total_minutes": 30,
		"user_id": 1, "created_at": "2024-03-01T10:00:00Z",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if r.PostForm.Get("password") != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-1", "token_type": "bearer"})
	})
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []interface{}{task})
	})
	mux.HandleFunc("/tasks/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		reloaded := map[string]interface{}{}
		for k, v := range task {
			reloaded[k] = v
		}
		reloaded["description"] = "from the server"
		writeJSON(w, http.StatusOK, reloaded)
	})
	mux.HandleFunc("/tasks/1/status", func(w http.ResponseWriter, r *http.Request) {
		moved := map[string]interface{}{}
		for k, v := range task {
			moved[k] = v
		}
		moved["status"] = r.URL.Query().Get("status")
		writeJSON(w, http.StatusOK, moved)
	})
	return mux
}

func newTestRuntime(t *testing.T, seed ...model.Task) *Runtime {
	t.Helper()
	server := httptest.NewServer(fakeAPI(t))
	t.Cleanup(server.Close)

	st := storetest.WithTasks(t, seed...)

	cfg := &model.AppConfig{
		API:     model.APIConfig{BaseURL: server.URL, TimeoutSec: 5},
		Display: model.DisplayConfig{DefaultView: "board"},
	}
	rt, err := newRuntime(cfg, st, nil)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func signIn(t *testing.T, rt *Runtime) {
	t.Helper()
	if _, err := rt.Login(context.Background(), "alice", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func nextNotification(t *testing.T, rt *Runtime) model.Notification {
	t.Helper()
	select {
	case n := <-rt.Notifications():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return model.Notification{}
	}
}

func TestStartsOnLoginWithoutSession(t *testing.T) {
	rt := newTestRuntime(t)
	m := New(rt)

	if m.currentView != ViewLogin {
		t.Errorf("currentView = %v, want login", m.currentView)
	}
}

func TestLoginSwitchesToHomeView(t *testing.T) {
	rt := newTestRuntime(t)
	m := New(rt)

	msg := m.authenticate(login.SubmitMsg{
		Mode:         login.ModeLogin,
		Registration: session.Registration{Username: "alice", Password: "secret1"},
	})()
	res, ok := msg.(authResultMsg)
	if !ok {
		t.Fatalf("got %T, want authResultMsg", msg)
	}
	if res.err != nil {
		t.Fatalf("login failed: %v", res.err)
	}

	next, _ := m.Update(msg)
	m = next.(Model)
	if m.currentView != ViewBoard {
		t.Errorf("currentView = %v, want board", m.currentView)
	}
	if !rt.Sessions.Active() {
		t.Error("session not stored")
	}
}

func TestLoginFailureStaysOnLogin(t *testing.T) {
	rt := newTestRuntime(t)
	m := New(rt)

	msg := m.authenticate(login.SubmitMsg{
		Mode:         login.ModeLogin,
		Registration: session.Registration{Username: "alice", Password: "wrong"},
	})()

	next, _ := m.Update(msg)
	m = next.(Model)
	if m.currentView != ViewLogin {
		t.Errorf("currentView = %v, want login", m.currentView)
	}
	if rt.Sessions.Active() {
		t.Error("session stored after a failed login")
	}
}

func TestChangeStatusIsOptimisticAndNotifies(t *testing.T) {
	rt := newTestRuntime(t)
	signIn(t, rt)
	if err := rt.Engine.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m := New(rt)

	next, _ := m.Update(ui.ChangeStatusMsg{TaskID: "1", Status: model.StatusDone})
	m = next.(Model)

	task, err := rt.Cache.Get("1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != model.StatusDone {
		t.Errorf("status = %q, want done before the server answers", task.Status)
	}

	n := nextNotification(t, rt)
	if n.Kind != model.NotificationSuccess || n.Message != "Status updated" {
		t.Errorf("notification = %+v", n)
	}

	next, _ = m.Update(notificationMsg{notification: n})
	m = next.(Model)
	if m.notice == nil || m.notice.Message != "Status updated" {
		t.Errorf("notice = %+v", m.notice)
	}
}

func TestImmediateRejectionShowsNotice(t *testing.T) {
	rt := newTestRuntime(t)
	signIn(t, rt)
	m := New(rt)

	next, _ := m.Update(ui.DeleteTaskMsg{TaskID: "missing"})
	m = next.(Model)

	if m.notice == nil || m.notice.Kind != model.NotificationError {
		t.Fatalf("notice = %+v, want an error", m.notice)
	}
	if m.notice.Message != "Task not found" {
		t.Errorf("message = %q", m.notice.Message)
	}
}

func TestSessionClearReturnsToLogin(t *testing.T) {
	rt := newTestRuntime(t)
	signIn(t, rt)
	m := New(rt)
	if m.currentView == ViewLogin {
		t.Fatal("expected a home view with an active session")
	}

	rt.Sessions.Clear()
	msg := m.waitForClear()()

	next, _ := m.Update(msg)
	m = next.(Model)
	if m.currentView != ViewLogin {
		t.Errorf("currentView = %v, want login", m.currentView)
	}
}

func TestRuntimeSeedsFromOfflineSnapshot(t *testing.T) {
	rt := newTestRuntime(t, model.Task{
		ID: "9", Title: "Cached", Status: model.StatusInProgress, CreatedAt: time.Now().UTC(),
	})

	if rt.Cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", rt.Cache.Len())
	}
	if _, err := rt.Cache.Get("9"); err != nil {
		t.Errorf("Get: %v", err)
	}
}

func TestLogoutClearsSnapshot(t *testing.T) {
	rt := newTestRuntime(t, model.Task{ID: "9", Title: "Cached", Status: model.StatusTodo, CreatedAt: time.Now().UTC()})
	signIn(t, rt)

	if err := rt.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if rt.Sessions.Active() {
		t.Error("session still active")
	}
	tasks, err := rt.Store.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("snapshot has %d tasks, want 0", len(tasks))
	}
}

func TestDetailViewReloadsTask(t *testing.T) {
	rt := newTestRuntime(t)
	signIn(t, rt)
	if err := rt.Engine.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m := New(rt)

	next, _ := m.Update(ui.ShowTaskMsg{TaskID: "1"})
	m = next.(Model)
	if m.currentView != ViewDetail {
		t.Fatalf("currentView = %v, want detail", m.currentView)
	}
	if id := m.detailView.TaskID(); id != "1" {
		t.Fatalf("detail shows %q, want 1", id)
	}

	next, cmd := m.Update(detail.ReloadMsg{TaskID: "1"})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected a reload command")
	}
	res, ok := cmd().(reloadResultMsg)
	if !ok || res.err != nil {
		t.Fatalf("reload result = %+v", res)
	}
	task, err := rt.Cache.Get("1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Description != "from the server" {
		t.Errorf("description = %q after reload", task.Description)
	}

	next, _ = m.Update(detail.BackMsg{})
	m = next.(Model)
	if m.currentView != ViewBoard {
		t.Errorf("currentView = %v, want board", m.currentView)
	}
}

func TestDeleteFromDetailReturnsHome(t *testing.T) {
	rt := newTestRuntime(t)
	signIn(t, rt)
	if err := rt.Engine.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m := New(rt)

	next, _ := m.Update(ui.ShowTaskMsg{TaskID: "1"})
	m = next.(Model)
	next, _ = m.Update(ui.DeleteTaskMsg{TaskID: "1"})
	m = next.(Model)

	if m.currentView != ViewBoard {
		t.Errorf("currentView = %v, want board", m.currentView)
	}
	if _, err := rt.Cache.Get("1"); err == nil {
		t.Error("task still cached after an optimistic delete")
	}
}

func TestSettingsSaveSwitchesHomeView(t *testing.T) {
	rt := newTestRuntime(t)
	rt.ConfigPath = filepath.Join(t.TempDir(), "config.yaml")
	signIn(t, rt)
	m := New(rt)

	next, _ := m.Update(command.CommandMsg("settings"))
	m = next.(Model)
	if m.currentView != ViewSettings {
		t.Fatalf("currentView = %v, want settings", m.currentView)
	}

	cfg := *rt.Config
	cfg.Display.DefaultView = "list"
	if err := rt.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	next, _ = m.Update(settingsview.ConfigSavedMsg{Config: cfg})
	m = next.(Model)
	if m.currentView != ViewList || m.homeView != ViewList {
		t.Errorf("view = %v, home = %v, want list", m.currentView, m.homeView)
	}

	loaded, err := model.LoadConfig(rt.ConfigPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Display.DefaultView != "list" || loaded.API.BaseURL != rt.Config.API.BaseURL {
		t.Errorf("loaded %+v", loaded)
	}
}

func TestProbeAPI(t *testing.T) {
	rt := newTestRuntime(t)
	if err := rt.ProbeAPI(context.Background(), rt.Config.API.BaseURL); err != nil {
		t.Errorf("ProbeAPI: %v", err)
	}
}
