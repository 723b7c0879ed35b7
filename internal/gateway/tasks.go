package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/sprintsync/internal/model"
)

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

func decodeTask(resp taskResponse) (model.Task, error) {
	t, err := resp.toModel()
	if err != nil {
		return model.Task{}, &Failure{Kind: KindServer, Message: "Unexpected response from server", Err: err}
	}
	return t, nil
}

// ListTasks returns every task visible to the current user.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var resp []taskResponse
	err := c.do(ctx, request{
		method:        http.MethodGet,
		path:          "/tasks",
		result:        &resp,
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(resp))
	for _, r := range resp {
		t, err := decodeTask(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetTask returns a single task.
func (c *Client) GetTask(ctx context.Context, id string) (model.Task, error) {
	var resp taskResponse
	err := c.do(ctx, request{
		method:        http.MethodGet,
		path:          taskPath(id),
		result:        &resp,
		authenticated: true,
	})
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(resp)
}

// CreateTask creates a task and returns the server's record.
func (c *Client) CreateTask(ctx context.Context, title, description string) (model.Task, error) {
	var resp taskResponse
	err := c.do(ctx, request{
		method:        http.MethodPost,
		path:          "/tasks",
		body:          newTaskRequest(title, description),
		result:        &resp,
		authenticated: true,
	})
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(resp)
}

// UpdateTask replaces the title and description of a task.
func (c *Client) UpdateTask(ctx context.Context, id, title, description string) (model.Task, error) {
	var resp taskResponse
	err := c.do(ctx, request{
		method:        http.MethodPut,
		path:          taskPath(id),
		body:          newTaskRequest(title, description),
		result:        &resp,
		authenticated: true,
	})
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(resp)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method:        http.MethodDelete,
		path:          taskPath(id),
		authenticated: true,
	})
}

// ChangeStatus moves a task to another status.
func (c *Client) ChangeStatus(ctx context.Context, id string, status model.Status) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, Validation("invalid status %q", status)
	}

	var resp taskResponse
	err := c.do(ctx, request{
		method:        http.MethodPatch,
		path:          taskPath(id) + "/status",
		query:         url.Values{"status": {string(status)}},
		result:        &resp,
		authenticated: true,
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("changing status of %s: %w", id, err)
	}
	return decodeTask(resp)
}

func newTaskRequest(title, description string) taskRequest {
	req := taskRequest{Title: title}
	if description != "" {
		req.Description = &description
	}
	return req
}
