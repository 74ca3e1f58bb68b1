package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	model "notegrid.app/notegrid/pkg/models"
)

// APIError is a response whose envelope reported failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notegrid api: %d %s", e.Status, e.Message)
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    sonic.NoCopyRawMessage `json:"data"`
	Error   string                 `json:"error"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// Client calls the NoteGrid HTTP API on behalf of one identity.
type Client struct {
	baseURL  string
	identity string
	http     *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithIdentity returns a copy of the client that authenticates as id.
func (c *Client) WithIdentity(id string) *Client {
	cp := *c
	cp.identity = id
	return &cp
}

func (c *Client) Identity() string { return c.identity }

func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var h HealthStatus
	body, status, err := c.send(ctx, http.MethodGet, "/api/health", nil, false)
	if err != nil {
		return h, err
	}
	if status != http.StatusOK {
		return h, &APIError{Status: status, Message: http.StatusText(status)}
	}
	if err := sonic.Unmarshal(body, &h); err != nil {
		return h, fmt.Errorf("decode health: %w", err)
	}
	return h, nil
}

func (c *Client) CheckExists(ctx context.Context, id string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := c.do(ctx, http.MethodGet, "/api/exists/"+url.PathEscape(id), nil, false, &out)
	return out.Exists, err
}

func (c *Client) RegisterIdentity(ctx context.Context, id string) (model.UserData, error) {
	var data model.UserData
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{"uuid": id}, false, &data)
	return data, err
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/account", nil, true, nil)
}

func (c *Client) FetchUserData(ctx context.Context) (model.UserData, error) {
	var data model.UserData
	if err := c.do(ctx, http.MethodGet, "/api/data", nil, true, &data); err != nil {
		return data, err
	}
	data.Normalize()
	return data, nil
}

func (c *Client) ReplaceUserData(ctx context.Context, data model.UserData) (model.UserData, error) {
	var out model.UserData
	if err := c.do(ctx, http.MethodPut, "/api/data", data, true, &out); err != nil {
		return out, err
	}
	out.Normalize()
	return out, nil
}

func (c *Client) FetchTasks(ctx context.Context) ([]model.Task, error) {
	tasks := []model.Task{}
	err := c.do(ctx, http.MethodGet, "/api/tasks", nil, true, &tasks)
	return tasks, err
}

func (c *Client) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", task, true, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), upd, true, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, true, nil)
}

func (c *Client) ReorderTasks(ctx context.Context, ids []string) error {
	body := map[string][]string{"taskIds": ids}
	return c.do(ctx, http.MethodPut, "/api/tasks/reorder", body, true, nil)
}

func (c *Client) FetchLinks(ctx context.Context) ([]model.Link, error) {
	links := []model.Link{}
	err := c.do(ctx, http.MethodGet, "/api/links", nil, true, &links)
	return links, err
}

func (c *Client) CreateLink(ctx context.Context, link model.Link) (model.Link, error) {
	var out model.Link
	err := c.do(ctx, http.MethodPost, "/api/links", link, true, &out)
	return out, err
}

func (c *Client) DeleteLink(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/links/"+url.PathEscape(id), nil, true, nil)
}

func (c *Client) ReorderLinks(ctx context.Context, ids []string) error {
	body := map[string][]string{"linkIds": ids}
	return c.do(ctx, http.MethodPut, "/api/links/reorder", body, true, nil)
}

// do sends one request and unwraps the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, in any, auth bool, out any) error {
	body, status, err := c.send(ctx, method, path, in, auth)
	if err != nil {
		return err
	}

	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		if status >= http.StatusBadRequest {
			return &APIError{Status: status, Message: http.StatusText(status)}
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if !env.Success || status >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any, auth bool) ([]byte, int, error) {
	var reader io.Reader
	if in != nil {
		b, err := sonic.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.identity != "" {
		req.Header.Set("Authorization", "Bearer "+c.identity)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	return body, resp.StatusCode, nil
}
