// Package client talks to a BuildFast server over its HTTP API. The
// terminal commands use it instead of opening the database directly.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/apperr"
	"github.com/nhle/buildfast/internal/model"
)

// ErrUnauthorized is returned when the server rejects the session token.
var ErrUnauthorized = errors.New("unauthorized: run `buildfast session token` and set client.session_token")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Issues  []apperr.Issue
}

func (e *APIError) Error() string {
	if len(e.Issues) > 0 {
		msgs := make([]string, 0, len(e.Issues))
		for _, is := range e.Issues {
			msgs = append(msgs, is.Message)
		}
		return fmt.Sprintf("server error (%d): %s", e.Status, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Client is a thin HTTP client for the BuildFast API.
// It handles session token authentication, JSON marshaling, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// New creates a client for the server at baseURL authenticated with a
// session token minted by `buildfast session token`.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
		maxRetries: 3,
	}
}

// === Projects ===

// ProjectInput is the body of project create and update calls.
type ProjectInput struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	TechStack       string `json:"tech_stack,omitempty"`
	Timeline        string `json:"timeline,omitempty"`
	AdditionalNotes string `json:"additional_notes,omitempty"`
	TargetDeadline  string `json:"target_deadline,omitempty"`
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodPost, "/api/new", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id int64, in ProjectInput) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/projects/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// === Sections and todos ===

// TodoChange mirrors the server's todo mutation response.
type TodoChange struct {
	Todo             model.StepTodo `json:"todo"`
	SectionCompleted bool           `json:"sectionCompleted"`
}

func (c *Client) ListTodos(ctx context.Context, sectionID int64) ([]model.StepTodo, error) {
	var out []model.StepTodo
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/step-todos?sectionId=%d", sectionID), nil, &out)
	return out, err
}

func (c *Client) CreateTodo(ctx context.Context, sectionID int64, title, description string) (*TodoChange, error) {
	body := map[string]any{"sectionId": sectionID, "title": title, "description": description}
	var out TodoChange
	if err := c.do(ctx, http.MethodPost, "/api/step-todos", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTodo(ctx context.Context, id int64, patch model.TodoPatch) (*TodoChange, error) {
	var out TodoChange
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/step-todos/%d", id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id int64) (*TodoChange, error) {
	var out TodoChange
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/step-todos/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetSectionCompleted(ctx context.Context, sectionID int64, completed bool) (*model.StepSection, error) {
	var out model.StepSection
	body := map[string]bool{"isCompleted": completed}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/step-sections/%d", sectionID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// === Chat ===

func (c *Client) SectionHistory(ctx context.Context, sectionID int64) ([]ai.HistoryEntry, error) {
	var out struct {
		Messages []ai.HistoryEntry `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/step-sections/%d/chat/history", sectionID), nil, &out)
	return out.Messages, err
}

// SectionChat sends message and calls onDelta with each chunk of the
// streamed reply. It returns the full reply.
func (c *Client) SectionChat(ctx context.Context, sectionID int64, message string, onDelta func(string)) (string, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", fmt.Errorf("marshaling request body: %w", err)
	}
	path := fmt.Sprintf("/api/step-sections/%d/chat", sectionID)

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", decodeError(resp.StatusCode, respBody)
	}

	var sb strings.Builder
	reader := bufio.NewReader(resp.Body)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			sb.WriteString(chunk)
			if onDelta != nil {
				onDelta(chunk)
			}
		}
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), fmt.Errorf("reading reply: %w", err)
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do builds the request, handles rate limiting with exponential backoff,
// and (de)serialises JSON.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if data != nil {
			bodyReader = bytes.NewReader(data)
		}
		req, err := c.newRequest(ctx, method, path, bodyReader)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = decodeError(resp.StatusCode, respBody)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeError(resp.StatusCode, respBody)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// decodeError reads either {"error":"msg"} or {"error":[issues]}.
func decodeError(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var raw struct {
		Error json.RawMessage `json:"error"`
	}
	apiErr := &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	if json.Unmarshal(body, &raw) == nil && len(raw.Error) > 0 {
		var msg string
		if json.Unmarshal(raw.Error, &msg) == nil {
			apiErr.Message = msg
		} else {
			_ = json.Unmarshal(raw.Error, &apiErr.Issues)
		}
	}
	return apiErr
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
