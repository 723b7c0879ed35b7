package gateway

import (
	"context"
	"net/http"
	"strings"
)

// Suggest asks the API to draft a description for a task title.
// The result is best-effort text and never touches the task cache.
func (c *Client) Suggest(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", Validation("Please enter a title first")
	}

	var resp suggestResponse
	err := c.do(ctx, request{
		method:        http.MethodPost,
		path:          "/ai/suggest",
		body:          suggestRequest{Title: title},
		result:        &resp,
		authenticated: true,
	})
	if err != nil {
		return "", err
	}
	return resp.Description, nil
}
