package store

import (
	"context"
	"time"

	"github.com/nhle/sprintsync/internal/model"
)

// TaskFilter narrows a query over the offline snapshot.
type TaskFilter struct {
	Status *model.Status
	Query  *string
}

// Store defines the local persistence used for offline start and the
// notification log.
type Store interface {
	// === Task snapshot ===

	SaveTasks(ctx context.Context, tasks []model.Task) error
	LoadTasks(ctx context.Context) ([]model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	ClearTasks(ctx context.Context) error
	LastSaved(ctx context.Context) (time.Time, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}
