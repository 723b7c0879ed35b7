// Package storetest provides SQLite stores for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/store"
)

// New opens an in-memory store with the schema applied. It is closed
// when the test ends.
func New(t testing.TB) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return s
}

// WithTasks opens a store whose offline snapshot already holds tasks.
func WithTasks(t testing.TB, tasks ...model.Task) *store.SQLiteStore {
	t.Helper()

	s := New(t)
	if len(tasks) == 0 {
		return s
	}
	if err := s.SaveTasks(context.Background(), tasks); err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}
	return s
}
