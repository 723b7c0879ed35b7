// Package cache holds the client-side mirror of the remote task collection.
package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/sprintsync/internal/model"
)

// ErrNotFound is returned when a task id is not present in the cache.
var ErrNotFound = errors.New("task not found in cache")

// Op identifies the kind of change a Patch makes.
type Op int

const (
	// OpPut inserts a task or replaces the entry with the same id in place.
	OpPut Op = iota
	// OpRemove deletes the entry entirely.
	OpRemove
	// OpRename replaces the entry at ID with Task, which carries a new id.
	OpRename
)

// Patch is a single change applied atomically to the cache.
type Patch struct {
	Op Op

	// ID is the id of the entry the patch targets.
	ID string

	// Task is the new value for OpPut and OpRename.
	Task model.Task

	// At is the insertion index used by OpPut when the id is not present.
	// A negative or out-of-range value appends.
	At int
}

// Put returns a patch that inserts or replaces t, appending new entries.
func Put(t model.Task) Patch {
	return Patch{Op: OpPut, ID: t.ID, Task: t, At: -1}
}

// PutAt returns a patch that inserts t at index when it is not present.
func PutAt(t model.Task, index int) Patch {
	return Patch{Op: OpPut, ID: t.ID, Task: t, At: index}
}

// Remove returns a patch that deletes the entry with the given id.
func Remove(id string) Patch {
	return Patch{Op: OpRemove, ID: id}
}

// Rename returns a patch that substitutes the entry at oldID with t.
func Rename(oldID string, t model.Task) Patch {
	return Patch{Op: OpRename, ID: oldID, Task: t}
}

// Change describes a completed cache mutation to subscribers.
type Change struct {
	// Op is the applied operation. Replacement of the whole collection
	// is reported with Replaced set.
	Op       Op
	ID       string
	Replaced bool

	// Version increases by one for every applied change.
	Version uint64
}

// Cache is a process-wide, ordered id -> Task mapping. It is safe for
// concurrent use; every write is applied under a single lock so readers
// observe either the state before or after a patch.
type Cache struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]model.Task
	version uint64

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		byID: make(map[string]model.Task),
		subs: make(map[int]chan Change),
	}
}

// Snapshot returns the current collection in insertion order.
func (c *Cache) Snapshot() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

// Get returns the task with the given id.
func (c *Cache) Get(id string) (model.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Clone(), nil
}

// Lookup returns the task and its position, or ok=false when absent.
func (c *Cache) Lookup(id string) (task model.Task, index int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return model.Task{}, -1, false
	}
	return t.Clone(), c.indexOf(id), true
}

// Len returns the number of cached tasks.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Version returns the number of changes applied so far.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Apply merges a single patch into the mapping.
func (c *Cache) Apply(p Patch) error {
	c.mu.Lock()
	change, err := c.applyLocked(p)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.publish(change)
	return nil
}

func (c *Cache) applyLocked(p Patch) (Change, error) {
	switch p.Op {
	case OpPut:
		if p.Task.ID == "" || p.Task.ID != p.ID {
			return Change{}, fmt.Errorf("put: task id %q does not match patch id %q", p.Task.ID, p.ID)
		}
		if _, exists := c.byID[p.ID]; !exists {
			c.insertAt(p.ID, p.At)
		}
		c.byID[p.ID] = p.Task.Clone()

	case OpRemove:
		if _, exists := c.byID[p.ID]; !exists {
			return Change{}, fmt.Errorf("remove: %w: %s", ErrNotFound, p.ID)
		}
		idx := c.indexOf(p.ID)
		c.order = append(c.order[:idx], c.order[idx+1:]...)
		delete(c.byID, p.ID)

	case OpRename:
		if _, exists := c.byID[p.ID]; !exists {
			return Change{}, fmt.Errorf("rename: %w: %s", ErrNotFound, p.ID)
		}
		newID := p.Task.ID
		if newID == "" {
			return Change{}, fmt.Errorf("rename: empty replacement id for %s", p.ID)
		}
		idx := c.indexOf(p.ID)
		delete(c.byID, p.ID)
		if _, dup := c.byID[newID]; dup && newID != p.ID {
			// The server id is already cached (a refetch landed first);
			// drop the provisional slot instead of duplicating it.
			c.order = append(c.order[:idx], c.order[idx+1:]...)
		} else {
			c.order[idx] = newID
		}
		c.byID[newID] = p.Task.Clone()

	default:
		return Change{}, fmt.Errorf("unknown patch op %d", p.Op)
	}

	c.version++
	return Change{Op: p.Op, ID: p.ID, Version: c.version}, nil
}

// ReplaceAll swaps the whole collection for tasks. Later duplicates of an
// id overwrite the value but keep the first position.
func (c *Cache) ReplaceAll(tasks []model.Task) {
	c.mu.Lock()
	order := make([]string, 0, len(tasks))
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		if _, seen := byID[t.ID]; !seen {
			order = append(order, t.ID)
		}
		byID[t.ID] = t.Clone()
	}
	c.order = order
	c.byID = byID
	c.version++
	change := Change{Replaced: true, Version: c.version}
	c.mu.Unlock()

	c.publish(change)
}

func (c *Cache) indexOf(id string) int {
	for i, existing := range c.order {
		if existing == id {
			return i
		}
	}
	return -1
}

func (c *Cache) insertAt(id string, at int) {
	if at < 0 || at >= len(c.order) {
		c.order = append(c.order, id)
		return
	}
	c.order = append(c.order, "")
	copy(c.order[at+1:], c.order[at:])
	c.order[at] = id
}
