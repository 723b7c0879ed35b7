// Package drag turns a drag gesture on the board into at most one status
// change. It knows nothing about the input device: mouse, keyboard and
// tests drive it through the same calls.
package drag

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/sprintsync/internal/engine"
	"github.com/nhle/sprintsync/internal/model"
)

var (
	// ErrDragInProgress is returned by Begin while a gesture is active.
	ErrDragInProgress = errors.New("a drag is already in progress")
	// ErrNotDragging is returned when no gesture is active.
	ErrNotDragging = errors.New("no drag in progress")
)

// State is the controller's position in the gesture.
type State int

const (
	Idle State = iota
	Dragging
	Hovering
	Resolved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Hovering:
		return "hovering"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mover issues the status change for a drop.
type Mover interface {
	MoveTask(ctx context.Context, id string, status model.Status) (*engine.Mutation, error)
}

// Session describes the active gesture.
type Session struct {
	Task   model.Task
	Origin model.Status
	// Over is the column under the pointer, valid when the state is
	// Hovering.
	Over model.Status
}

// Controller is the drag state machine. It is driven from the UI loop and
// is not safe for concurrent use.
type Controller struct {
	mover    Mover
	state    State
	session  Session
	observer func(from, to State)
}

// New creates an idle controller.
func New(mover Mover) *Controller {
	return &Controller{mover: mover}
}

// Observe registers fn to be called on every state transition.
func (c *Controller) Observe(fn func(from, to State)) {
	c.observer = fn
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Session returns the active gesture, ok=false when idle.
func (c *Controller) Session() (Session, bool) {
	if c.state == Idle {
		return Session{}, false
	}
	return c.session, true
}

// Active reports whether a gesture is in progress.
func (c *Controller) Active() bool { return c.state != Idle }

// Begin starts dragging task from its current column.
func (c *Controller) Begin(task model.Task) error {
	if c.state != Idle {
		return ErrDragInProgress
	}
	if !task.Status.Valid() {
		return fmt.Errorf("cannot drag task %s with status %q", task.ID, task.Status)
	}

	c.session = Session{Task: task, Origin: task.Status}
	c.transition(Dragging)
	return nil
}

// Enter records that the pointer is over the column for status.
func (c *Controller) Enter(status model.Status) error {
	if c.state != Dragging && c.state != Hovering {
		return ErrNotDragging
	}
	if !status.Valid() {
		return fmt.Errorf("unknown column %q", status)
	}

	c.session.Over = status
	c.transition(Hovering)
	return nil
}

// Leave records that the pointer left every column.
func (c *Controller) Leave() {
	if c.state != Hovering {
		return
	}
	c.session.Over = ""
	c.transition(Dragging)
}

// Drop ends the gesture. A drop over a column other than the origin issues
// exactly one move and returns its mutation. A drop outside any column or
// back onto the origin returns a nil mutation and changes nothing.
func (c *Controller) Drop(ctx context.Context) (*engine.Mutation, error) {
	if c.state != Dragging && c.state != Hovering {
		return nil, ErrNotDragging
	}

	sess := c.session
	hovering := c.state == Hovering
	c.transition(Resolved)
	c.reset()

	if !hovering || sess.Over == sess.Origin {
		return nil, nil
	}
	return c.mover.MoveTask(ctx, sess.Task.ID, sess.Over)
}

// Cancel abandons the gesture without issuing anything.
func (c *Controller) Cancel() {
	if c.state == Idle {
		return
	}
	c.reset()
}

func (c *Controller) reset() {
	c.session = Session{}
	c.transition(Idle)
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	if c.observer != nil && from != to {
		c.observer(from, to)
	}
}
