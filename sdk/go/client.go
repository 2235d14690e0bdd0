package doablesdk

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
)

// Client is a minimal Doable HTTP API client.
type Client struct {
	BaseURL     string
	TeamID      string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, teamID string) *Client {
	return &Client{
		BaseURL: baseURL,
		TeamID:  teamID,
		Timeout: 10 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Key    string `json:"key"`
	Status string `json:"status"`
}

// Issue represents the API issue model (partial).
type Issue struct {
	ID         string   `json:"id"`
	TeamID     string   `json:"team_id"`
	ProjectID  string   `json:"project_id"`
	Number     int      `json:"number"`
	Title      string   `json:"title"`
	StateID    string   `json:"state_id"`
	Priority   string   `json:"priority"`
	AssigneeID *string  `json:"assignee_id,omitempty"`
	LabelIDs   []string `json:"label_ids"`
	DueDate    *string  `json:"due_date,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	TeamID     string         `json:"team_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	Payload    map[string]any `json:"payload"`
}

// ChatResult is the outcome of a chat tool call. OK false means the
// tool needs clarification and Message carries the question to relay.
type ChatResult struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
	Display  string `json:"display,omitempty"`
}

// APIError wraps non-2xx responses. Code and Message are filled from
// the error envelope when the body parses as one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedIssues wraps issue listings with cursors.
type PaginatedIssues struct {
	Items      []Issue `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// PaginatedEvents wraps event listings with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name, key string) (Project, error) {
	body := map[string]any{
		"name": name,
		"key":  key,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, c.teamPath("projects"), body, &resp)
	return resp, err
}

// CreateIssue creates an issue.
func (c *Client) CreateIssue(ctx context.Context, projectID, title, stateID, priority string) (Issue, error) {
	body := map[string]any{
		"project_id": projectID,
		"title":      title,
		"state_id":   stateID,
		"priority":   priority,
	}
	var resp Issue
	err := c.do(ctx, http.MethodPost, c.teamPath("issues"), body, &resp)
	return resp, err
}

// Issues returns a paginated issue listing.
func (c *Client) Issues(ctx context.Context, limit int, cursor string) (PaginatedIssues, error) {
	var resp PaginatedIssues
	err := c.do(ctx, http.MethodGet, c.paged(c.teamPath("issues"), limit, cursor), nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, c.paged(c.teamPath("events"), limit, cursor), nil, &resp)
	return resp, err
}

// Chat invokes a chat tool with raw arguments. A ChatResult with OK
// false is not an error; relay its Message and retry with the missing
// detail filled in.
func (c *Client) Chat(ctx context.Context, tool string, arguments map[string]any) (ChatResult, error) {
	body := map[string]any{
		"tool":      tool,
		"arguments": arguments,
	}
	var resp ChatResult
	err := c.do(ctx, http.MethodPost, c.teamPath("chat"), body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) paged(endpoint string, limit int, cursor string) string {
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	return endpoint
}

func (c *Client) teamPath(p string) string {
	team := url.PathEscape(c.TeamID)
	return fmt.Sprintf("v0/teams/%s/%s", team, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
