package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/sprintsync/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const taskColumns = `id, title, description, status, total_minutes, user_id, created_at, updated_at`

const lastSavedKey = "tasks_saved_at"

// SaveTasks replaces the snapshot with tasks, keeping their order.
func (s *SQLiteStore) SaveTasks(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing task snapshot: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO tasks (
			id, position, title, description, status,
			total_minutes, user_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range tasks {
		var updatedAt *time.Time
		if t.UpdatedAt != nil {
			u := t.UpdatedAt.UTC()
			updatedAt = &u
		}
		_, err := stmt.ExecContext(ctx,
			t.ID, i, t.Title, t.Description, string(t.Status),
			t.TotalMinutes, t.UserID, t.CreatedAt.UTC(), updatedAt,
		)
		if err != nil {
			return fmt.Errorf("saving task %s: %w", t.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO sync_state (key, value) VALUES (?, ?)",
		lastSavedKey, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("recording snapshot time: %w", err)
	}

	return tx.Commit()
}

// LoadTasks returns the snapshot in its saved order.
func (s *SQLiteStore) LoadTasks(ctx context.Context) ([]model.Task, error) {
	return s.GetTasks(ctx, TaskFilter{})
}

// GetTasks returns snapshot tasks matching filter, in saved order.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY position ASC"

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTaskByID returns a single snapshot task.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	err := s.db.GetContext(ctx, &t, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// ClearTasks empties the snapshot. Used on logout so another account
// never starts from this one's tasks.
func (s *SQLiteStore) ClearTasks(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sync_state WHERE key = ?", lastSavedKey); err != nil {
		return fmt.Errorf("clearing snapshot time: %w", err)
	}
	return nil
}

// LastSaved returns when the snapshot was last written, or the zero time.
func (s *SQLiteStore) LastSaved(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT value FROM sync_state WHERE key = ?", lastSavedKey)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading snapshot time: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing snapshot time %q: %w", raw, err)
	}
	return t, nil
}
