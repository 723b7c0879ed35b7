package engine

import (
	"context"
	"sync"

	"github.com/nhle/sprintsync/internal/model"
)

// Kind identifies the operation a Mutation performs.
type Kind int

const (
	KindCreate Kind = iota
	KindUpdate
	KindDelete
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Mutation is a pending optimistic change. It resolves once the gateway
// call completes and the cache has been confirmed or rolled back.
type Mutation struct {
	kind Kind

	// Request fields.
	title       string
	description string
	patch       model.TaskPatch
	status      model.Status
	successMsg  string
	ctx         context.Context

	// Rollback state, captured when the patch is applied.
	before      model.Task
	beforeIndex int
	applied     bool

	// prev is the mutation on the same id this one is queued behind.
	prev *Mutation
	// keys are the queue-tail entries that point at this mutation.
	keys []string

	mu     sync.Mutex
	id     string
	result model.Task
	err    error
	done   chan struct{}
}

func newMutation(ctx context.Context, kind Kind, id string) *Mutation {
	return &Mutation{
		kind:        kind,
		id:          id,
		ctx:         context.WithoutCancel(ctx),
		beforeIndex: -1,
		done:        make(chan struct{}),
	}
}

// Kind returns the operation type.
func (m *Mutation) Kind() Kind { return m.kind }

// TaskID returns the id the mutation targets. For a create it is the
// provisional id until the server confirms, then the server-assigned id.
func (m *Mutation) TaskID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *Mutation) setID(id string) {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
}

// Done is closed when the mutation has resolved.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation resolves or ctx ends. On success it
// returns the server's version of the task; a delete returns the removed
// task as it was before deletion.
func (m *Mutation) Wait(ctx context.Context) (model.Task, error) {
	select {
	case <-m.done:
	case <-ctx.Done():
		return model.Task{}, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.err
}

// Err returns the failure after Done is closed, nil otherwise.
func (m *Mutation) Err() error {
	select {
	case <-m.done:
	default:
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mutation) resolve(result model.Task, err error) {
	m.mu.Lock()
	m.result = result
	m.err = err
	m.mu.Unlock()
	close(m.done)
}
