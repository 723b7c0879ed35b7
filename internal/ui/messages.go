package ui

import "github.com/nhle/sprintsync/internal/model"

// NewTaskMsg asks the app to open the create form.
type NewTaskMsg struct{}

// ShowTaskMsg asks the app to open the detail view for a task.
type ShowTaskMsg struct {
	TaskID string
}

// EditTaskMsg asks the app to open the edit form for a task.
type EditTaskMsg struct {
	Task model.Task
}

// DeleteTaskMsg asks the app to delete a task.
type DeleteTaskMsg struct {
	TaskID string
}

// ChangeStatusMsg asks the app to move a task to another status.
type ChangeStatusMsg struct {
	TaskID string
	Status model.Status
}

// ErrorMsg carries an error that was rejected before reaching the server.
type ErrorMsg struct {
	Err error
}
