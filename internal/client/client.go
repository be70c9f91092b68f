// Package client provides a REST client for the PR review API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akhil1parekh/github-pr-review-agent/internal/taskstore"
)

// Client talks to the PR review API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses PRREVIEW_SERVER_URL env var or defaults to localhost:8000.
// Timeout can be configured via PRREVIEW_CLIENT_TIMEOUT env var.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("PRREVIEW_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	timeout := 30 * time.Second
	if t := os.Getenv("PRREVIEW_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsNotReady reports whether err is the 400 returned when results are
// requested before the task completes.
func IsNotReady(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

// do sends one request and decodes the JSON response into result. Error
// responses are returned as *APIError with the server's detail message.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(raw, &detail); err != nil || detail.Detail == "" {
			detail.Detail = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: detail.Detail}
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// SubmitResponse is the acknowledgement for a submitted analysis.
type SubmitResponse struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitAnalysis starts analysis of a pull request. repoURL may be a full
// GitHub URL or "owner/name".
func (c *Client) SubmitAnalysis(ctx context.Context, repoURL string, prNumber int) (*SubmitResponse, error) {
	body := map[string]any{
		"repo_url":  repoURL,
		"pr_number": prNumber,
	}
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyze-pr", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the current status record for a task.
func (c *Client) Status(ctx context.Context, taskID string) (*taskstore.TaskRecord, error) {
	var record taskstore.TaskRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/status/"+taskID, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Results fetches the final analysis for a completed task. Use IsNotReady
// to distinguish "still running" from other failures.
func (c *Client) Results(ctx context.Context, taskID string) (*taskstore.ResultRecord, error) {
	var result taskstore.ResultRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/results/"+taskID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// WaitForCompletion polls the task until it reaches a terminal status or
// ctx expires. The onUpdate callback, when non-nil, receives every status
// record observed.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string, interval time.Duration, onUpdate func(*taskstore.TaskRecord)) (*taskstore.TaskRecord, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		record, err := c.Status(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(record)
		}
		switch record.Status {
		case taskstore.StatusCompleted, taskstore.StatusFailed:
			return record, nil
		}

		select {
		case <-ctx.Done():
			return record, ctx.Err()
		case <-ticker.C:
		}
	}
}
