package drag

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nhle/sprintsync/internal/cache"
	"github.com/nhle/sprintsync/internal/engine"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/session"
)

type move struct {
	id     string
	status model.Status
}

type fakeMover struct {
	moves []move
	err   error
}

func (f *fakeMover) MoveTask(_ context.Context, id string, status model.Status) (*engine.Mutation, error) {
	f.moves = append(f.moves, move{id, status})
	return nil, f.err
}

func card(status model.Status) model.Task {
	return model.Task{ID: "T1", Title: "Card", Status: status}
}

func TestDropOnOtherColumnIssuesOneMove(t *testing.T) {
	mover := &fakeMover{}
	c := New(mover)
	var transitions []State
	c.Observe(func(_, to State) { transitions = append(transitions, to) })

	if err := c.Begin(card(model.StatusTodo)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.Enter(model.StatusInProgress); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := c.Enter(model.StatusDone); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	sess, ok := c.Session()
	if !ok || sess.Over != model.StatusDone || sess.Origin != model.StatusTodo {
		t.Fatalf("session = %+v, %v", sess, ok)
	}

	if _, err := c.Drop(context.Background()); err != nil {
		t.Fatalf("Drop: %v", err)
	}

	if want := []move{{"T1", model.StatusDone}}; !reflect.DeepEqual(mover.moves, want) {
		t.Errorf("moves = %+v, want %+v", mover.moves, want)
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want idle", c.State())
	}
	want := []State{Dragging, Hovering, Resolved, Idle}
	if !reflect.DeepEqual(transitions, want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestDropOnOriginIsNoOp(t *testing.T) {
	mover := &fakeMover{}
	c := New(mover)

	_ = c.Begin(card(model.StatusInProgress))
	_ = c.Enter(model.StatusDone)
	_ = c.Enter(model.StatusInProgress)
	m, err := c.Drop(context.Background())
	if err != nil || m != nil {
		t.Fatalf("Drop = %v, %v", m, err)
	}
	if len(mover.moves) != 0 {
		t.Errorf("expected no moves, got %+v", mover.moves)
	}
}

// silentGateway leaves every method to the nil embedded interface, so
// any request to the server panics.
type silentGateway struct {
	engine.Gateway
}

func TestDropOnOriginLeavesCacheUntouched(t *testing.T) {
	c := cache.New()
	c.ReplaceAll([]model.Task{card(model.StatusInProgress), {ID: "T2", Title: "Other", Status: model.StatusTodo}})
	sessions := session.NewStore(nil)
	if err := sessions.Set(model.Session{User: model.User{ID: "u1"}, Token: "tok"}); err != nil {
		t.Fatalf("setting session: %v", err)
	}
	e := engine.New(c, silentGateway{}, sessions)

	version, before := c.Version(), c.Snapshot()

	ctrl := New(e)
	if err := ctrl.Begin(card(model.StatusInProgress)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctrl.Enter(model.StatusDone); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := ctrl.Enter(model.StatusInProgress); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	m, err := ctrl.Drop(context.Background())
	if err != nil || m != nil {
		t.Fatalf("Drop = %v, %v", m, err)
	}

	if got := c.Version(); got != version {
		t.Errorf("cache version = %d, want %d", got, version)
	}
	if got := c.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Errorf("snapshot = %+v, want %+v", got, before)
	}
	if n := e.Pending(); n != 0 {
		t.Errorf("pending mutations = %d, want 0", n)
	}
}

func TestDropOutsideColumnsIsNoOp(t *testing.T) {
	mover := &fakeMover{}
	c := New(mover)

	_ = c.Begin(card(model.StatusTodo))
	_ = c.Enter(model.StatusDone)
	c.Leave()
	if c.State() != Dragging {
		t.Fatalf("state after leave = %s", c.State())
	}
	if _, err := c.Drop(context.Background()); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if len(mover.moves) != 0 {
		t.Errorf("expected no moves, got %+v", mover.moves)
	}
}

func TestCancelDiscardsHover(t *testing.T) {
	mover := &fakeMover{}
	c := New(mover)

	_ = c.Begin(card(model.StatusTodo))
	_ = c.Enter(model.StatusDone)
	c.Cancel()

	if c.State() != Idle || c.Active() {
		t.Fatalf("state = %s, want idle", c.State())
	}
	if _, err := c.Drop(context.Background()); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Drop after cancel = %v", err)
	}
	if len(mover.moves) != 0 {
		t.Errorf("expected no moves, got %+v", mover.moves)
	}
}

func TestInvalidTransitions(t *testing.T) {
	c := New(&fakeMover{})

	if err := c.Enter(model.StatusDone); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Enter while idle = %v", err)
	}
	if err := c.Begin(model.Task{ID: "x", Status: "archived"}); err == nil {
		t.Error("Begin with invalid status should fail")
	}
	if err := c.Begin(card(model.StatusTodo)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.Begin(card(model.StatusDone)); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("second Begin = %v", err)
	}
	if err := c.Enter("nowhere"); err == nil {
		t.Error("Enter with unknown column should fail")
	}
}

func TestMoveErrorIsReturnedAndControllerResets(t *testing.T) {
	mover := &fakeMover{err: errors.New("session expired")}
	c := New(mover)

	_ = c.Begin(card(model.StatusTodo))
	_ = c.Enter(model.StatusDone)
	if _, err := c.Drop(context.Background()); err == nil {
		t.Fatal("expected move error")
	}
	if c.State() != Idle {
		t.Errorf("state = %s, want idle", c.State())
	}
}
