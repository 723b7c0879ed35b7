package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/sprintsync/internal/model"
)

// flexID accepts ids encoded either as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding id %s: %w", data, err)
	}
	*id = flexID(n.String())
	return nil
}

// taskResponse is the wire form of a task.
type taskResponse struct {
	ID           flexID  `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	Status       string  `json:"status"`
	TotalMinutes int     `json:"total_minutes"`
	UserID       flexID  `json:"user_id"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    *string `json:"updated_at"`
}

// taskRequest is the body of POST /tasks and PUT /tasks/{id}.
type taskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// userResponse is the wire form of a user.
type userResponse struct {
	ID        flexID  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	IsAdmin   bool    `json:"is_admin"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is the credential returned by a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type suggestRequest struct {
	Title string `json:"title"`
}

type suggestResponse struct {
	Description string `json:"description"`
}

// errorResponse is the API's error body. Detail is either a string or a
// list of validation issues.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// detailMessage extracts a readable message from an error body.
func detailMessage(body []byte) string {
	var er errorResponse
	if json.Unmarshal(body, &er) != nil || len(er.Detail) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(er.Detail, &s) == nil {
		return s
	}

	var issues []validationIssue
	if json.Unmarshal(er.Detail, &issues) == nil {
		msgs := make([]string, 0, len(issues))
		for _, is := range issues {
			if is.Msg != "" {
				msgs = append(msgs, is.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// timestampLayouts are accepted for API timestamps; the server may omit
// the zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func (r taskResponse) toModel() (model.Task, error) {
	status := model.Status(r.Status)
	if !status.Valid() {
		return model.Task{}, fmt.Errorf("task %s: invalid status %q", r.ID, r.Status)
	}

	t := model.Task{
		ID:           string(r.ID),
		Title:        r.Title,
		Status:       status,
		TotalMinutes: r.TotalMinutes,
		UserID:       string(r.UserID),
	}
	if t.TotalMinutes < 0 {
		t.TotalMinutes = 0
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.CreatedAt != "" {
		created, err := parseTimestamp(r.CreatedAt)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
		}
		t.CreatedAt = created
	}
	if r.UpdatedAt != nil && *r.UpdatedAt != "" {
		updated, err := parseTimestamp(*r.UpdatedAt)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
		}
		t.UpdatedAt = &updated
	}
	return t, nil
}

func (r userResponse) toModel() (model.User, error) {
	u := model.User{
		ID:       string(r.ID),
		Username: r.Username,
		Email:    r.Email,
		IsAdmin:  r.IsAdmin,
	}
	if r.CreatedAt != "" {
		created, err := parseTimestamp(r.CreatedAt)
		if err != nil {
			return model.User{}, fmt.Errorf("user %s: %w", r.Username, err)
		}
		u.CreatedAt = created
	}
	if r.UpdatedAt != nil && *r.UpdatedAt != "" {
		updated, err := parseTimestamp(*r.UpdatedAt)
		if err != nil {
			return model.User{}, fmt.Errorf("user %s: %w", r.Username, err)
		}
		u.UpdatedAt = &updated
	}
	return u, nil
}
