// Package session holds the authenticated identity and credential used by
// the gateway and the mutation engine.
package session

import (
	"errors"
	"log"
	"sync"

	"github.com/nhle/sprintsync/internal/model"
)

// ErrIncomplete is returned by Set when the session lacks a user or a token.
var ErrIncomplete = errors.New("session must carry both a user and a credential")

// ErrNoSession is returned by a Persister when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Persister keeps a session across process restarts.
type Persister interface {
	Load() (model.Session, error)
	Save(model.Session) error
	Delete() error
}

// Store holds the current session. The zero value is not usable; call
// NewStore. A Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	current   *model.Session
	persister Persister

	listenMu  sync.Mutex
	listeners map[int]func()
	nextID    int
}

// NewStore creates an empty store. persister may be nil, in which case the
// session lives only as long as the process.
func NewStore(persister Persister) *Store {
	return &Store{
		persister: persister,
		listeners: make(map[int]func()),
	}
}

// Restore loads a previously persisted session. A missing, incomplete or
// expired session leaves the store empty and is not an error.
func (s *Store) Restore() error {
	if s.persister == nil {
		return nil
	}

	sess, err := s.persister.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if !sess.Complete() || TokenExpired(sess.Token) {
		if err := s.persister.Delete(); err != nil {
			log.Printf("session: discarding stale session: %v", err)
		}
		return nil
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return nil
}

// Current returns the active session, or ok=false when none is set.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return model.Session{}, false
	}
	return *s.current, true
}

// Active reports whether a session is set.
func (s *Store) Active() bool {
	_, ok := s.Current()
	return ok
}

// Set replaces the current session. Persistence failures are returned but
// the in-memory session is still set.
func (s *Store) Set(sess model.Session) error {
	if !sess.Complete() {
		return ErrIncomplete
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	if s.persister != nil {
		return s.persister.Save(sess)
	}
	return nil
}

// Clear removes the session and notifies OnClear listeners. Clearing an
// empty store does nothing.
func (s *Store) Clear() {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if !had {
		return
	}

	if s.persister != nil {
		if err := s.persister.Delete(); err != nil {
			log.Printf("session: deleting persisted session: %v", err)
		}
	}

	s.listenMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnClear registers fn to run after the session is cleared. The returned
// function removes the listener.
func (s *Store) OnClear(fn func()) func() {
	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenMu.Unlock()

	return func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
}
