// Package engine applies task mutations optimistically to the cache and
// confirms or rolls them back once the remote API answers.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/sprintsync/internal/cache"
	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/model"
)

// Gateway is the remote task API.
type Gateway interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
	CreateTask(ctx context.Context, title, description string) (model.Task, error)
	UpdateTask(ctx context.Context, id, title, description string) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ChangeStatus(ctx context.Context, id string, status model.Status) (model.Task, error)
}

// Sessions is the session store as seen by the engine.
type Sessions interface {
	Current() (model.Session, bool)
	Clear()
}

// Notifier receives a notification for every resolved mutation.
type Notifier interface {
	Notify(model.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(model.Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n model.Notification) { f(n) }

// Persister stores the confirmed task collection for offline start.
type Persister interface {
	SaveTasks(ctx context.Context, tasks []model.Task) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets where mutation outcomes are reported.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPersister saves the collection after every reconcile.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persister = p }
}

// WithIDGenerator replaces the generator for provisional ids. The
// generated value is prefixed with model.ProvisionalPrefix.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

const persistTimeout = 5 * time.Second

// Engine is the only writer of the task cache. Mutations on the same task
// id run one after another; mutations on different ids run concurrently.
type Engine struct {
	cache     *cache.Cache
	gateway   Gateway
	sessions  Sessions
	notifier  Notifier
	persister Persister
	newID     func() string
	now       func() time.Time

	mu sync.Mutex
	// tails is the last mutation queued per task id.
	tails map[string]*Mutation
	// heads is the applied, unresolved mutation per task id.
	heads map[string]*Mutation
	// aliases maps a confirmed provisional id to its server id while
	// mutations queued on the provisional id are outstanding.
	aliases map[string]string
	// confirmed remembers every provisional id the server has replaced
	// so views holding the old id can follow it.
	confirmed map[string]string
	// fetches counts reads from the server that have not been reconciled.
	// While one is open, settled records the epoch at which a mutation
	// outcome last wrote each id.
	fetches int
	epoch   uint64
	settled map[string]uint64

	persistMu sync.Mutex
	inflight  sync.WaitGroup
}

// New creates an engine writing to c.
func New(c *cache.Cache, gw Gateway, sessions Sessions, opts ...Option) *Engine {
	e := &Engine{
		cache:     c,
		gateway:   gw,
		sessions:  sessions,
		newID:     uuid.NewString,
		now:       time.Now,
		tails:     make(map[string]*Mutation),
		heads:     make(map[string]*Mutation),
		aliases:   make(map[string]string),
		confirmed: make(map[string]string),
		settled:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cache returns the cache the engine writes to.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Pending returns the number of mutations applied but not yet resolved.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.heads)
}

// Resolve maps a provisional id to the server id once the create has
// been confirmed. Other ids are returned unchanged.
func (e *Engine) Resolve(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if server, ok := e.confirmed[id]; ok {
		return server
	}
	return id
}

// CreateTask adds a provisional task and asks the server to create it.
func (e *Engine) CreateTask(ctx context.Context, title, description string) (*Mutation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, gateway.Validation("Title is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions.Current()
	if !ok {
		return nil, gateway.SessionExpired()
	}

	m := newMutation(ctx, KindCreate, model.ProvisionalPrefix+e.newID())
	m.title = title
	m.description = description
	m.successMsg = "Task created"
	m.before = model.Task{
		ID:          m.id,
		Title:       title,
		Description: description,
		Status:      model.StatusTodo,
		UserID:      sess.User.ID,
		CreatedAt:   e.now().UTC(),
	}
	e.enqueueLocked(m)
	return m, nil
}

// UpdateTask edits the title and description of a cached task.
func (e *Engine) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*Mutation, error) {
	if patch.IsEmpty() {
		return nil, gateway.Validation("Nothing to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, gateway.Validation("Title is required")
	}
	return e.issue(ctx, KindUpdate, id, func(m *Mutation) {
		m.patch = patch
		m.successMsg = "Task updated"
	})
}

// DeleteTask removes a cached task.
func (e *Engine) DeleteTask(ctx context.Context, id string) (*Mutation, error) {
	return e.issue(ctx, KindDelete, id, func(m *Mutation) {
		m.successMsg = "Task deleted"
	})
}

// ChangeStatus moves a cached task to status.
func (e *Engine) ChangeStatus(ctx context.Context, id string, status model.Status) (*Mutation, error) {
	return e.changeStatus(ctx, id, status, "Status updated")
}

// MoveTask is ChangeStatus as issued from the board.
func (e *Engine) MoveTask(ctx context.Context, id string, status model.Status) (*Mutation, error) {
	return e.changeStatus(ctx, id, status, "Task moved!")
}

func (e *Engine) changeStatus(ctx context.Context, id string, status model.Status, msg string) (*Mutation, error) {
	if !status.Valid() {
		return nil, gateway.Validation("Invalid status %q", status)
	}
	return e.issue(ctx, KindStatus, id, func(m *Mutation) {
		m.status = status
		m.successMsg = msg
	})
}

func (e *Engine) issue(ctx context.Context, kind Kind, id string, configure func(*Mutation)) (*Mutation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions.Current(); !ok {
		return nil, gateway.SessionExpired()
	}
	id = e.resolveLocked(id)
	if _, _, ok := e.cache.Lookup(id); !ok {
		return nil, notFound(id)
	}

	m := newMutation(ctx, kind, id)
	configure(m)
	e.enqueueLocked(m)
	return m, nil
}

// enqueueLocked appends m to its id's queue. A mutation at the head of
// the queue is applied before returning.
func (e *Engine) enqueueLocked(m *Mutation) {
	m.prev = e.tails[m.id]
	m.keys = []string{m.id}
	e.tails[m.id] = m

	if m.prev == nil {
		if err := e.applyLocked(m); err != nil {
			// Existence was checked by the caller under the same lock.
			log.Printf("engine: applying %s on %s: %v", m.kind, m.id, err)
		}
	}

	e.inflight.Add(1)
	go e.run(m)
}

func (e *Engine) resolveLocked(id string) string {
	if alias, ok := e.aliases[id]; ok {
		return alias
	}
	return id
}

// applyLocked records the rollback snapshot and writes the optimistic
// value to the cache.
func (e *Engine) applyLocked(m *Mutation) error {
	if m.kind == KindCreate {
		if err := e.cache.Apply(cache.Put(m.before)); err != nil {
			return err
		}
		m.applied = true
		e.heads[m.id] = m
		return nil
	}

	id := m.TaskID()
	cur, idx, ok := e.cache.Lookup(id)
	if !ok {
		return notFound(id)
	}
	m.before = cur
	m.beforeIndex = idx

	now := e.now().UTC()
	var err error
	switch m.kind {
	case KindUpdate:
		next := m.patch.Apply(cur)
		next.UpdatedAt = &now
		m.title = next.Title
		m.description = next.Description
		err = e.cache.Apply(cache.Put(next))
	case KindStatus:
		next := cur.Clone()
		next.Status = m.status
		next.UpdatedAt = &now
		err = e.cache.Apply(cache.Put(next))
	case KindDelete:
		err = e.cache.Apply(cache.Remove(id))
	}
	if err != nil {
		return err
	}

	m.applied = true
	e.heads[id] = m
	return nil
}

func (e *Engine) run(m *Mutation) {
	defer e.inflight.Done()

	if m.prev != nil {
		<-m.prev.done
		if err := e.start(m); err != nil {
			e.finish(m, model.Task{}, err)
			return
		}
	}

	result, err := e.call(m)
	e.finish(m, result, err)
}

// start applies a queued mutation once it reaches the head of its queue.
func (e *Engine) start(m *Mutation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions.Current(); !ok {
		return gateway.SessionExpired()
	}
	m.setID(e.resolveLocked(m.TaskID()))
	return e.applyLocked(m)
}

func (e *Engine) call(m *Mutation) (model.Task, error) {
	id := m.TaskID()
	switch m.kind {
	case KindCreate:
		return e.gateway.CreateTask(m.ctx, m.title, m.description)
	case KindUpdate:
		return e.gateway.UpdateTask(m.ctx, id, m.title, m.description)
	case KindStatus:
		return e.gateway.ChangeStatus(m.ctx, id, m.status)
	case KindDelete:
		return model.Task{}, e.gateway.DeleteTask(m.ctx, id)
	default:
		return model.Task{}, fmt.Errorf("unknown mutation kind %d", m.kind)
	}
}

func (e *Engine) finish(m *Mutation, result model.Task, err error) {
	e.mu.Lock()
	if m.applied {
		if err != nil {
			e.rollbackLocked(m)
		} else {
			result = e.confirmLocked(m, result)
		}
		e.settleLocked(m)
	}
	e.releaseLocked(m)
	e.mu.Unlock()

	if err != nil && gateway.IsAuthExpired(err) {
		e.sessions.Clear()
	}
	if err != nil {
		result = model.Task{}
	}

	m.resolve(result, err)
	e.report(m, err)
	if m.applied {
		e.persist()
	}
}

func (e *Engine) confirmLocked(m *Mutation, result model.Task) model.Task {
	id := m.TaskID()

	switch m.kind {
	case KindCreate:
		if result.ID == "" {
			log.Printf("engine: create of %s returned no id", id)
			cur, _, _ := e.cache.Lookup(id)
			return cur
		}
		patch := cache.Put(result)
		if _, _, ok := e.cache.Lookup(id); ok {
			patch = cache.Rename(id, result)
		}
		if err := e.cache.Apply(patch); err != nil {
			log.Printf("engine: confirming create of %s: %v", id, err)
		}
		if e.heads[id] == m {
			delete(e.heads, id)
		}
		e.aliases[id] = result.ID
		e.confirmed[id] = result.ID
		if tail := e.tails[id]; tail != nil && tail != m {
			e.tails[result.ID] = tail
			tail.keys = append(tail.keys, result.ID)
		}
		m.setID(result.ID)
		return result

	case KindUpdate, KindStatus:
		if result.ID != id {
			cur, _, _ := e.cache.Lookup(id)
			return cur
		}
		if err := e.cache.Apply(cache.Put(result)); err != nil {
			log.Printf("engine: confirming %s of %s: %v", m.kind, id, err)
		}
		return result

	default:
		return m.before
	}
}

// rollbackLocked restores the cache to its state before m was applied.
func (e *Engine) rollbackLocked(m *Mutation) {
	id := m.TaskID()

	var err error
	switch m.kind {
	case KindCreate:
		if _, _, ok := e.cache.Lookup(id); ok {
			err = e.cache.Apply(cache.Remove(id))
		}
	default:
		err = e.cache.Apply(cache.PutAt(m.before, m.beforeIndex))
	}
	if err != nil {
		log.Printf("engine: rolling back %s of %s: %v", m.kind, id, err)
	}
}

func (e *Engine) releaseLocked(m *Mutation) {
	keys := append(append([]string(nil), m.keys...), m.TaskID())
	for _, k := range keys {
		if e.tails[k] == m {
			delete(e.tails, k)
		}
		if e.heads[k] == m {
			delete(e.heads, k)
		}
	}
	for _, k := range m.keys {
		if !model.IsProvisionalID(k) {
			continue
		}
		if _, busy := e.tails[k]; !busy {
			delete(e.aliases, k)
		}
	}
}

func (e *Engine) report(m *Mutation, err error) {
	if e.notifier == nil {
		return
	}

	n := model.Notification{
		ID:        uuid.NewString(),
		TaskID:    m.TaskID(),
		CreatedAt: e.now().UTC(),
	}
	if err != nil {
		n.Kind = model.NotificationError
		n.Message = gateway.UserMessage(err)
		n.Retryable = gateway.IsRetryable(err)
	} else {
		n.Kind = model.NotificationSuccess
		n.Message = m.successMsg
	}
	e.notifier.Notify(n)
}

// Drain waits until every issued mutation has resolved.
func (e *Engine) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func notFound(id string) error {
	return &gateway.Failure{
		Kind:    gateway.KindNotFound,
		Message: "Task not found",
		Err:     fmt.Errorf("%w: %s", cache.ErrNotFound, id),
	}
}
