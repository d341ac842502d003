// Package client is a Go consumer of the TaskFlow API. Client issues the
// raw HTTP calls with read retries; Board layers an optimistic local copy of
// one owner's task list on top and drives the ordering engine on drag moves.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"taskflow-api/domain"
)

// APIError is a response the server answered with a failure envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// NetworkError wraps a transport failure; reads retry these.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

const defaultMaxRetries = 3

// DefaultBackoff reproduces the frontend's retry schedule: the delay grows
// by one second per attempt, capped at three seconds.
func DefaultBackoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * time.Second
	if d > 3*time.Second {
		d = 3 * time.Second
	}
	return d
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetry sets the read retry budget and backoff schedule.
func WithRetry(maxRetries int, backoff func(attempt int) time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// Client talks to one TaskFlow API server.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	backoff    func(int) time.Duration
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 30 * time.Second},
		maxRetries: defaultMaxRetries,
		backoff:    DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type tasksEnvelope struct {
	Success bool          `json:"success"`
	Tasks   []domain.Task `json:"tasks"`
}

type taskEnvelope struct {
	Success bool        `json:"success"`
	Task    domain.Task `json:"task"`
}

type bulkEnvelope struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

// Tasks fetches the owner's task list, sorted by order. Transport failures
// and 5xx responses are retried with backoff before surfacing.
func (c *Client) Tasks(ctx context.Context, ownerEmail string) ([]domain.Task, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}
		var env tasksEnvelope
		err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(ownerEmail), nil, &env)
		if err == nil {
			return env.Tasks, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// CreateTask persists a new task and returns it with the server-assigned id
// and timestamp.
func (c *Client) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	var env taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/tasks", task, &env); err != nil {
		return domain.Task{}, err
	}
	return env.Task, nil
}

// UpdateTask applies a partial update to one task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	return c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), patch, nil)
}

// UpdateOrders submits a batch of order reassignments and returns the number
// of records the server modified. The batch is best-effort: ids that no
// longer exist are skipped without an error.
func (c *Client) UpdateOrders(ctx context.Context, updates []domain.OrderUpdate) (int64, error) {
	body := struct {
		Updates []domain.OrderUpdate `json:"updates"`
	}{Updates: updates}
	var env bulkEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/tasks/update-orders", body, &env); err != nil {
		return 0, err
	}
	return env.ModifiedCount, nil
}

// DeleteTask removes one task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// RegisterUser upserts the profile after a successful login. It reports
// whether this call created the record; repeat calls succeed without one.
func (c *Client) RegisterUser(ctx context.Context, user domain.User) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/users", user)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return false, apiErrorFromResponse(resp)
	}
	return resp.StatusCode == http.StatusCreated, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiErrorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiErrorFromResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		var env messageEnvelope
		if err := sonic.Unmarshal(data, &env); err == nil && env.Message != "" {
			apiErr.Message = env.Message
		}
	}
	return apiErr
}

func retryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
