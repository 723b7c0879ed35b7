package board

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sprintsync/internal/drag"
	"github.com/nhle/sprintsync/internal/engine"
	"github.com/nhle/sprintsync/internal/keys"
	"github.com/nhle/sprintsync/internal/model"
)

type move struct {
	id     string
	status model.Status
}

type fakeMover struct {
	moves []move
}

func (f *fakeMover) MoveTask(_ context.Context, id string, status model.Status) (*engine.Mutation, error) {
	f.moves = append(f.moves, move{id, status})
	return &engine.Mutation{}, nil
}

func newBoard(t *testing.T) (Model, *fakeMover) {
	t.Helper()
	mover := &fakeMover{}
	m := New(keys.DefaultKeyMap(), mover, 90, 20)
	m.SetTop(2)
	m.SetTasks([]model.Task{
		{ID: "1", Title: "Write docs", Status: model.StatusTodo},
		{ID: "2", Title: "Fix login", Status: model.StatusTodo},
		{ID: "3", Title: "Ship", Status: model.StatusDone},
	})
	return m, mover
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyboardDragMovesOnce(t *testing.T) {
	m, mover := newBoard(t)

	m, _ = m.Update(keyPress("j"))
	m, _ = m.Update(keyPress("space"))
	if m.DragState() != drag.Hovering {
		t.Fatalf("state after grab = %v, want hovering", m.DragState())
	}
	m, _ = m.Update(keyPress("l"))
	m, _ = m.Update(keyPress("space"))

	if m.Dragging() {
		t.Error("drag should be over after drop")
	}
	if len(mover.moves) != 1 {
		t.Fatalf("moves = %d, want 1", len(mover.moves))
	}
	if got := mover.moves[0]; got.id != "2" || got.status != model.StatusInProgress {
		t.Errorf("move = %+v, want task 2 to in_progress", got)
	}
}

func TestKeyboardDropOnOriginIsNoop(t *testing.T) {
	m, mover := newBoard(t)

	m, _ = m.Update(keyPress("space"))
	m, _ = m.Update(keyPress("l"))
	m, _ = m.Update(keyPress("h"))
	m, _ = m.Update(keyPress("space"))

	if len(mover.moves) != 0 {
		t.Errorf("moves = %+v, want none", mover.moves)
	}
}

func TestEscapeCancelsDrag(t *testing.T) {
	m, mover := newBoard(t)

	m, _ = m.Update(keyPress("space"))
	m, _ = m.Update(keyPress("l"))
	m, _ = m.Update(keyPress("esc"))

	if m.Dragging() {
		t.Error("drag still active after escape")
	}
	if len(mover.moves) != 0 {
		t.Errorf("moves = %+v, want none", mover.moves)
	}
}

func TestMouseDragAcrossColumns(t *testing.T) {
	m, mover := newBoard(t)

	// Columns are 30 cells wide; the first card sits two rows below the
	// board top.
	m, _ = m.Update(tea.MouseMsg{X: 5, Y: 4, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.DragState() != drag.Hovering {
		t.Fatalf("state after press = %v, want hovering", m.DragState())
	}
	m, _ = m.Update(tea.MouseMsg{X: 35, Y: 6, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m, _ = m.Update(tea.MouseMsg{X: 65, Y: 6, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m, _ = m.Update(tea.MouseMsg{X: 65, Y: 6, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	if len(mover.moves) != 1 {
		t.Fatalf("moves = %d, want 1", len(mover.moves))
	}
	if got := mover.moves[0]; got.id != "1" || got.status != model.StatusDone {
		t.Errorf("move = %+v, want task 1 to done", got)
	}
}

func TestMouseReleaseOutsideBoardIsNoop(t *testing.T) {
	m, mover := newBoard(t)

	m, _ = m.Update(tea.MouseMsg{X: 5, Y: 4, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = m.Update(tea.MouseMsg{X: 35, Y: 40, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	if m.DragState() != drag.Dragging {
		t.Fatalf("state outside columns = %v, want dragging", m.DragState())
	}
	m, _ = m.Update(tea.MouseMsg{X: 35, Y: 40, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	if m.Dragging() {
		t.Error("drag still active after release")
	}
	if len(mover.moves) != 0 {
		t.Errorf("moves = %+v, want none", mover.moves)
	}
}

func TestPressOnEmptyCellDoesNotStartDrag(t *testing.T) {
	m, _ := newBoard(t)

	m, _ = m.Update(tea.MouseMsg{X: 35, Y: 4, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.Dragging() {
		t.Error("press on an empty column started a drag")
	}
}
