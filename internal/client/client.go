// Package client provides an HTTP client for the campusdesk REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/metrics"
	"github.com/raphaelgruber/campusdesk/internal/models"
)

// DefaultBaseURL is used when no server URL is configured.
const DefaultBaseURL = "http://localhost:8484"

// Client talks to a campusdesk server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. An empty baseURL uses DefaultBaseURL; a zero timeout
// uses 60s, long enough for chat replies.
func New(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       apperr.Code
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (HTTP %d", e.Message, e.StatusCode)
	if e.Code != "" {
		msg += ", " + string(e.Code)
	}
	msg += ")"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ChatReply is the server's answer to a chat message.
type ChatReply struct {
	Success bool          `json:"success"`
	Reply   string        `json:"reply"`
	Usage   *models.Usage `json:"usage,omitempty"`
}

type todoEnvelope struct {
	Message string      `json:"message"`
	Todo    models.Task `json:"todo"`
}

// do sends a JSON request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Error   string      `json:"error"`
		Code    apperr.Code `json:"code"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
		apiErr.Detail = payload.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// ListTodos returns the caller's todos, newest first.
func (c *Client) ListTodos(ctx context.Context) ([]models.Task, error) {
	var out struct {
		Todos []models.Task `json:"todos"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

// CreateTodo creates a todo.
func (c *Client) CreateTodo(ctx context.Context, input models.TaskInput) (*models.Task, error) {
	var out todoEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/todos", input, &out); err != nil {
		return nil, err
	}
	return &out.Todo, nil
}

// UpdateTodo applies a partial update.
func (c *Client) UpdateTodo(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	var out todoEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/todos/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out.Todo, nil
}

// DeleteTodo deletes a todo and returns its final state.
func (c *Client) DeleteTodo(ctx context.Context, id string) (*models.Task, error) {
	var out todoEnvelope
	if err := c.do(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Todo, nil
}

// SendMessage sends a chat message with the client-held history.
func (c *Client) SendMessage(ctx context.Context, message string, history []models.Turn) (*ChatReply, error) {
	in := struct {
		Message             string        `json:"message"`
		ConversationHistory []models.Turn `json:"conversationHistory"`
	}{Message: message, ConversationHistory: history}

	var out ChatReply
	if err := c.do(ctx, http.MethodPost, "/api/chatbot/message", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns the server's runtime metrics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var out metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
