// Package client talks to a running task mock over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"mock-server/domain"
)

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

// Client wraps http.Client with the task routes.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a Client for baseURL, e.g. "http://localhost:5000".
func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{}}
}

type statusBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// List fetches every task in server order.
func (c *Client) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// Upsert creates or replaces the task with task.ID.
func (c *Client) Upsert(ctx context.Context, task domain.Task) error {
	body, err := sonic.ConfigStd.Marshal(task)
	if err != nil {
		return err
	}
	var resp statusBody
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("upsert task %d: unexpected status %q", task.ID, resp.Status)
	}
	return nil
}

// Delete removes the task with id. Deleting an unknown id succeeds.
func (c *Client) Delete(ctx context.Context, id int64) error {
	var resp statusBody
	if err := c.do(ctx, http.MethodDelete, "/tasks/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return err
	}
	if resp.Status != "deleted" {
		return fmt.Errorf("delete task %d: unexpected status %q", id, resp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var eb statusBody
		_ = sonic.ConfigStd.Unmarshal(data, &eb)
		return &StatusError{Code: resp.StatusCode, Message: eb.Error}
	}
	if out == nil {
		return nil
	}
	return sonic.ConfigStd.Unmarshal(data, out)
}
