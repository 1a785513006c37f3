package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/lherron/wrkboard/internal/domain"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wrkboardd: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("wrkboardd: %d %s", e.StatusCode, e.Message)
}

// Client talks to a wrkboardd server.
type Client struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL, token, userID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  userID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchBoard(ctx context.Context, boardUUID string) (*domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, http.MethodGet, "/v1/boards/"+url.PathEscape(boardUUID), nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) FetchColumns(ctx context.Context, boardUUID string) ([]domain.Column, error) {
	var resp struct {
		Columns []domain.Column `json:"columns"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/boards/"+url.PathEscape(boardUUID)+"/columns", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Columns, nil
}

// FetchColumn returns a single column. Its Tasks are not populated.
func (c *Client) FetchColumn(ctx context.Context, columnUUID string) (*domain.Column, error) {
	var column domain.Column
	if err := c.do(ctx, http.MethodGet, "/v1/columns/"+url.PathEscape(columnUUID), nil, &column); err != nil {
		return nil, err
	}
	return &column, nil
}

func (c *Client) FetchTask(ctx context.Context, taskUUID string) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(taskUUID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateColumnPosition(ctx context.Context, columnUUID string, position int) (*domain.Column, error) {
	var column domain.Column
	body := map[string]int{"position": position}
	if err := c.do(ctx, http.MethodPut, "/v1/columns/"+url.PathEscape(columnUUID)+"/position", body, &column); err != nil {
		return nil, err
	}
	return &column, nil
}

func (c *Client) UpdateTask(ctx context.Context, taskUUID string, patch domain.TaskPatch) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodPatch, "/v1/tasks/"+url.PathEscape(taskUUID), patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ResolveBoard returns the board a selector (friendly ID, UUID or name)
// names on the server.
func (c *Client) ResolveBoard(ctx context.Context, selector string) (*domain.Board, error) {
	return c.FetchBoard(ctx, selector)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-Wrkboard-User", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Message string `json:"message"`
		}
		_ = sonic.ConfigStd.NewDecoder(resp.Body).Decode(&payload)
		return &StatusError{StatusCode: resp.StatusCode, Message: payload.Message}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
