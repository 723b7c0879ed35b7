package cache

import (
	"errors"
	"testing"

	"github.com/nhle/sprintsync/internal/model"
)

func task(id, title string, status model.Status) model.Task {
	return model.Task{ID: id, Title: title, Status: status}
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(t *testing.T, got []model.Task, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

func TestPutKeepsInsertionOrder(t *testing.T) {
	c := New()
	for _, tk := range []model.Task{
		task("a", "A", model.StatusTodo),
		task("b", "B", model.StatusTodo),
		task("c", "C", model.StatusDone),
	} {
		if err := c.Apply(Put(tk)); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	// Replacing an existing entry keeps its position.
	if err := c.Apply(Put(task("a", "A2", model.StatusDone))); err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	equalIDs(t, snap, "a", "b", "c")
	if snap[0].Title != "A2" {
		t.Errorf("title = %q, want A2", snap[0].Title)
	}
}

func TestPutAtRestoresPosition(t *testing.T) {
	c := New()
	c.ReplaceAll([]model.Task{
		task("a", "A", model.StatusTodo),
		task("b", "B", model.StatusTodo),
		task("c", "C", model.StatusTodo),
	})

	b, idx, ok := c.Lookup("b")
	if !ok || idx != 1 {
		t.Fatalf("Lookup(b) = %v, %d", ok, idx)
	}
	if err := c.Apply(Remove("b")); err != nil {
		t.Fatal(err)
	}
	equalIDs(t, c.Snapshot(), "a", "c")

	if err := c.Apply(PutAt(b, idx)); err != nil {
		t.Fatal(err)
	}
	equalIDs(t, c.Snapshot(), "a", "b", "c")
}

func TestRemoveMissingIsNotFound(t *testing.T) {
	c := New()
	err := c.Apply(Remove("ghost"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Get("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
}

func TestRenameSubstitutesInPlace(t *testing.T) {
	c := New()
	c.ReplaceAll([]model.Task{
		task("a", "A", model.StatusTodo),
		task("tmp-1", "New", model.StatusTodo),
		task("c", "C", model.StatusTodo),
	})

	if err := c.Apply(Rename("tmp-1", task("srv-9", "New", model.StatusTodo))); err != nil {
		t.Fatal(err)
	}
	equalIDs(t, c.Snapshot(), "a", "srv-9", "c")
	if _, err := c.Get("tmp-1"); !errors.Is(err, ErrNotFound) {
		t.Error("provisional id still present after rename")
	}
}

func TestRenameOntoExistingIDDoesNotDuplicate(t *testing.T) {
	c := New()
	c.ReplaceAll([]model.Task{
		task("srv-9", "From refetch", model.StatusTodo),
		task("tmp-1", "New", model.StatusTodo),
	})

	if err := c.Apply(Rename("tmp-1", task("srv-9", "New", model.StatusTodo))); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	equalIDs(t, snap, "srv-9")
	if snap[0].Title != "New" {
		t.Errorf("title = %q, want New", snap[0].Title)
	}
}

func TestReplaceAllDeduplicates(t *testing.T) {
	c := New()
	c.ReplaceAll([]model.Task{
		task("a", "first", model.StatusTodo),
		task("b", "B", model.StatusTodo),
		task("a", "second", model.StatusDone),
	})

	snap := c.Snapshot()
	equalIDs(t, snap, "a", "b")
	if snap[0].Title != "second" {
		t.Errorf("title = %q, want second", snap[0].Title)
	}
}

func TestSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	c := New()
	if err := c.Apply(Put(task("a", "A", model.StatusTodo))); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()

	if err := c.Apply(Put(task("a", "changed", model.StatusDone))); err != nil {
		t.Fatal(err)
	}
	if snap[0].Title != "A" {
		t.Errorf("snapshot changed after write: %+v", snap[0])
	}
}

func TestPutRejectsMismatchedID(t *testing.T) {
	c := New()
	err := c.Apply(Patch{Op: OpPut, ID: "a", Task: task("b", "B", model.StatusTodo)})
	if err == nil {
		t.Fatal("expected error for mismatched ids")
	}
	if c.Len() != 0 {
		t.Errorf("cache modified by rejected patch")
	}
}

func TestSubscribeReceivesLatestChange(t *testing.T) {
	c := New()
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	_ = c.Apply(Put(task("a", "A", model.StatusTodo)))
	_ = c.Apply(Put(task("b", "B", model.StatusTodo)))
	_ = c.Apply(Remove("a"))

	select {
	case change := <-ch:
		if change.Op != OpRemove || change.ID != "a" || change.Version != 3 {
			t.Errorf("unexpected change: %+v", change)
		}
	default:
		t.Fatal("expected a pending change")
	}

	select {
	case change := <-ch:
		t.Fatalf("expected coalesced notifications, got extra %+v", change)
	default:
	}
}

func TestUnsubscribeClosesChannelOnce(t *testing.T) {
	c := New()
	ch, unsubscribe := c.Subscribe()
	if c.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", c.Subscribers())
	}

	unsubscribe()
	unsubscribe()

	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
	if c.Subscribers() != 0 {
		t.Errorf("subscribers = %d after unsubscribe", c.Subscribers())
	}

	// Publishing after unsubscribe must not panic.
	c.ReplaceAll(nil)
}
