package detail

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sprintsync/internal/keys"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/ui"
)

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRendersTask(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetTask(model.Task{
		ID: "7", Title: "Fix login", Description: "token refresh",
		Status: model.StatusInProgress, TotalMinutes: 95,
	}, true)

	view := m.View()
	for _, want := range []string{"Fix login", "In Progress", "1h 35m", "token refresh"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMissingTask(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetTask(model.Task{}, false)

	if m.TaskID() != "" {
		t.Errorf("TaskID = %q, want empty", m.TaskID())
	}
	if !strings.Contains(m.View(), "no longer exists") {
		t.Errorf("view = %q", m.View())
	}
	if _, cmd := m.Update(press("e")); cmd != nil {
		if _, ok := cmd().(ui.EditTaskMsg); ok {
			t.Error("edit emitted without a task")
		}
	}
}

func TestKeysEmitActions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetTask(model.Task{ID: "7", Title: "Fix login", Status: model.StatusTodo}, true)

	_, cmd := m.Update(press("s"))
	if msg, ok := cmd().(ui.ChangeStatusMsg); !ok || msg.Status != model.StatusInProgress {
		t.Errorf("s: got %#v", cmd())
	}

	_, cmd = m.Update(press("r"))
	if msg, ok := cmd().(ReloadMsg); !ok || msg.TaskID != "7" {
		t.Errorf("r: got %#v", cmd())
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(BackMsg); !ok {
		t.Errorf("esc: got %#v", cmd())
	}
}

func TestProvisionalTaskIsNotReloaded(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetTask(model.Task{ID: model.ProvisionalPrefix + "1", Title: "Draft"}, true)

	if _, cmd := m.Update(press("r")); cmd != nil {
		t.Errorf("reload issued for a provisional task: %#v", cmd())
	}
}
