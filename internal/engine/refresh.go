package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nhle/sprintsync/internal/cache"
	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/model"
)

// Refresh refetches the whole collection and reconciles it with the
// cache. Entries with an unresolved mutation keep their optimistic value;
// the server value becomes their rollback target. Entries a mutation
// outcome wrote while the list was in flight keep their cached state.
func (e *Engine) Refresh(ctx context.Context) error {
	if _, ok := e.sessions.Current(); !ok {
		return gateway.SessionExpired()
	}

	e.mu.Lock()
	since := e.beginFetchLocked()
	e.mu.Unlock()

	tasks, err := e.gateway.ListTasks(ctx)

	e.mu.Lock()
	if err == nil {
		e.cache.ReplaceAll(e.reconcileLocked(tasks, since))
	}
	e.endFetchLocked()
	e.mu.Unlock()

	if err != nil {
		if gateway.IsAuthExpired(err) {
			e.sessions.Clear()
		}
		return fmt.Errorf("refreshing tasks: %w", err)
	}

	e.persist()
	return nil
}

func (e *Engine) reconcileLocked(server []model.Task, since uint64) []model.Task {
	current := e.cache.Snapshot()
	cached := make(map[string]model.Task, len(current))
	for _, t := range current {
		cached[t.ID] = t
	}

	merged := make([]model.Task, 0, len(server)+len(e.heads))
	seen := make(map[string]bool, len(server))
	for _, t := range server {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		head, pending := e.heads[t.ID]
		stale := e.settledSinceLocked(t.ID, since)
		if !pending && !stale {
			merged = append(merged, t)
			continue
		}
		if pending && !stale {
			head.before = t.Clone()
		}
		// A pending or settled delete has no cached entry and stays removed.
		if c, ok := cached[t.ID]; ok {
			merged = append(merged, c)
		}
	}

	for _, c := range current {
		if seen[c.ID] {
			continue
		}
		_, pending := e.heads[c.ID]
		if pending || e.settledSinceLocked(c.ID, since) {
			merged = append(merged, c)
		}
	}
	return merged
}

// Reload refetches a single task. A task the server no longer has is
// dropped from the cache unless a mutation on it is unresolved. The
// answer is ignored when a mutation on the task settled while the request
// was in flight.
func (e *Engine) Reload(ctx context.Context, id string) error {
	if _, ok := e.sessions.Current(); !ok {
		return gateway.SessionExpired()
	}

	e.mu.Lock()
	id = e.resolveLocked(id)
	since := e.beginFetchLocked()
	e.mu.Unlock()

	t, err := e.gateway.GetTask(ctx, id)

	e.mu.Lock()
	changed := e.reloadLocked(id, t, err, since)
	e.endFetchLocked()
	e.mu.Unlock()

	if err != nil && gateway.IsAuthExpired(err) {
		e.sessions.Clear()
	}
	if changed {
		e.persist()
	}
	return err
}

func (e *Engine) reloadLocked(id string, t model.Task, err error, since uint64) bool {
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return false
	}
	if e.settledSinceLocked(id, since) {
		return false
	}
	head, pending := e.heads[id]

	if err != nil {
		if pending {
			return false
		}
		if _, _, ok := e.cache.Lookup(id); !ok {
			return false
		}
		_ = e.cache.Apply(cache.Remove(id))
		return true
	}

	if pending {
		head.before = t.Clone()
		return false
	}
	if err := e.cache.Apply(cache.Put(t)); err != nil {
		log.Printf("engine: reloading %s: %v", id, err)
		return false
	}
	return true
}

// beginFetchLocked opens a server read and returns the epoch it started at.
func (e *Engine) beginFetchLocked() uint64 {
	e.fetches++
	return e.epoch
}

func (e *Engine) endFetchLocked() {
	e.fetches--
	if e.fetches == 0 {
		clear(e.settled)
	}
}

// settleLocked stamps every id m wrote. Nothing is recorded while no
// read is open.
func (e *Engine) settleLocked(m *Mutation) {
	if e.fetches == 0 {
		return
	}
	e.epoch++
	for _, id := range m.keys {
		e.settled[id] = e.epoch
	}
	e.settled[m.TaskID()] = e.epoch
}

// settledSinceLocked reports whether a mutation outcome wrote id after
// the read that started at since.
func (e *Engine) settledSinceLocked(id string, since uint64) bool {
	return e.settled[id] > since
}

// Seed fills the cache from an offline snapshot. It is a no-op once any
// mutation has been issued.
func (e *Engine) Seed(tasks []model.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.tails) > 0 || e.cache.Len() > 0 {
		return
	}
	confirmed := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsProvisional() && t.Status.Valid() {
			confirmed = append(confirmed, t)
		}
	}
	e.cache.ReplaceAll(confirmed)
}

func (e *Engine) persist() {
	if e.persister == nil {
		return
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	snapshot := e.cache.Snapshot()
	confirmed := make([]model.Task, 0, len(snapshot))
	for _, t := range snapshot {
		if !t.IsProvisional() {
			confirmed = append(confirmed, t)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.persister.SaveTasks(ctx, confirmed); err != nil {
		log.Printf("engine: saving offline snapshot: %v", err)
	}
}
