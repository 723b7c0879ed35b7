package config

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sprintsync/internal/model"
)

func baseConfig() model.AppConfig {
	return model.AppConfig{
		API:     model.APIConfig{BaseURL: "http://localhost:8000", TimeoutSec: 10},
		Session: model.SessionConfig{Persist: true},
		Sync:    model.SyncConfig{PollIntervalSec: 60},
		Cache:   model.CacheConfig{DBPath: "/tmp/cache.db"},
		Display: model.DisplayConfig{Theme: "default", DefaultView: "list"},
	}
}

func TestApplyKeepsUntouchedSections(t *testing.T) {
	fb := &formFields{
		baseURL:     " https://tasks.example.com/ ",
		timeout:     "5",
		pollSeconds: "0",
		defaultView: "board",
		persist:     false,
	}

	got := fb.apply(baseConfig())
	if got.API.BaseURL != "https://tasks.example.com" {
		t.Errorf("BaseURL = %q", got.API.BaseURL)
	}
	if got.API.TimeoutSec != 5 || got.Sync.PollIntervalSec != 0 {
		t.Errorf("timeout = %d, poll = %d", got.API.TimeoutSec, got.Sync.PollIntervalSec)
	}
	if got.Display.DefaultView != "board" || got.Session.Persist {
		t.Errorf("display = %+v, session = %+v", got.Display, got.Session)
	}
	if got.Cache.DBPath != "/tmp/cache.db" || got.Display.Theme != "default" {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestValidators(t *testing.T) {
	for _, bad := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		if validateURL(bad) == nil {
			t.Errorf("validateURL(%q) accepted", bad)
		}
	}
	if err := validateURL("http://localhost:8000"); err != nil {
		t.Errorf("validateURL rejected a valid address: %v", err)
	}

	positive := validateSeconds(1)
	if positive("0") == nil || positive("abc") == nil {
		t.Error("validateSeconds(1) accepted 0 or text")
	}
	if err := validateSeconds(0)("0"); err != nil {
		t.Errorf("validateSeconds(0) rejected 0: %v", err)
	}
}

func TestSaveAfterSuccessfulCheck(t *testing.T) {
	var saved model.AppConfig
	m := New(
		func(context.Context, string) error { return nil },
		func(cfg model.AppConfig) error {
			saved = cfg
			return nil
		},
		80, 24,
	)
	m.Start(baseConfig())
	m.fb.defaultView = "board"
	m.pending = m.fb.apply(m.base)

	m, _ = m.validate()
	if m.mode != ModeValidating {
		t.Fatalf("mode = %v, want validating", m.mode)
	}

	m, cmd := m.Update(m.check(m.pending.API.BaseURL)())
	if cmd == nil {
		t.Fatal("expected a save command")
	}
	m, cmd = m.Update(cmd())
	done, ok := cmd().(ConfigSavedMsg)
	if !ok {
		t.Fatalf("got %T, want ConfigSavedMsg", cmd())
	}
	if done.Config.Display.DefaultView != "board" || saved.Display.DefaultView != "board" {
		t.Errorf("saved %+v, emitted %+v", saved.Display, done.Config.Display)
	}
}

func TestFailedCheckCanSaveAnyway(t *testing.T) {
	saves := 0
	m := New(
		func(context.Context, string) error { return errors.New("connection refused") },
		func(model.AppConfig) error {
			saves++
			return nil
		},
		80, 24,
	)
	m.Start(baseConfig())
	m.pending = m.fb.apply(m.base)
	m, _ = m.validate()

	m, _ = m.Update(m.check(m.pending.API.BaseURL)())
	if m.mode != ModeValidateResult {
		t.Fatalf("mode = %v, want validate result", m.mode)
	}
	if saves != 0 {
		t.Fatal("saved before confirmation")
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	m.Update(cmd())
	if saves != 1 {
		t.Errorf("saves = %d, want 1", saves)
	}
}
