package taskform

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sprintsync/internal/model"
)

func TestSubmitCreate(t *testing.T) {
	m := New(80, 24)
	m.StartCreate()
	m.fb.title = "  Write docs "
	m.fb.description = "for the API"

	msg, ok := m.handleSubmit()().(CreateTaskMsg)
	if !ok {
		t.Fatal("expected CreateTaskMsg")
	}
	if msg.Title != "Write docs" || msg.Description != "for the API" {
		t.Errorf("got %+v", msg)
	}
}

func TestSubmitEditSendsOnlyChangedFields(t *testing.T) {
	m := New(80, 24)
	m.StartEdit(model.Task{ID: "7", Title: "Old", Description: "same"})
	m.fb.title = "New"

	msg, ok := m.handleSubmit()().(UpdateTaskMsg)
	if !ok {
		t.Fatal("expected UpdateTaskMsg")
	}
	if msg.TaskID != "7" {
		t.Errorf("TaskID = %q, want 7", msg.TaskID)
	}
	if msg.Patch.Title == nil || *msg.Patch.Title != "New" {
		t.Errorf("Title patch = %v, want New", msg.Patch.Title)
	}
	if msg.Patch.Description != nil {
		t.Errorf("Description patch = %q, want nil", *msg.Patch.Description)
	}
}

func TestSubmitEditWithoutChangesCancels(t *testing.T) {
	m := New(80, 24)
	m.StartEdit(model.Task{ID: "7", Title: "Old"})

	if _, ok := m.handleSubmit()().(CancelMsg); !ok {
		t.Error("expected CancelMsg for an unchanged task")
	}
}

func TestSuggestionRequiresTitle(t *testing.T) {
	m := New(80, 24)
	m.StartCreate()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	if cmd != nil {
		t.Error("no request expected without a title")
	}
	if m.notice == "" {
		t.Error("expected a notice")
	}

	m.fb.title = "Write docs"
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	if cmd == nil {
		t.Fatal("expected a suggestion request")
	}
	if req, ok := cmd().(SuggestRequestMsg); !ok || req.Title != "Write docs" {
		t.Errorf("got %+v", cmd())
	}

	m.ApplySuggestion("Outline the endpoints", nil)
	if m.fb.description != "Outline the endpoints" {
		t.Errorf("description = %q", m.fb.description)
	}
}

func TestEscCancels(t *testing.T) {
	m := New(80, 24)
	m.StartCreate()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(CancelMsg); !ok {
		t.Errorf("got %T, want CancelMsg", cmd())
	}
}
