package modsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"crowdqueue/internal/app/queue"
	"crowdqueue/internal/store"
)

// Client is the HTTP Backend implementation the moderator session uses. It
// speaks the crowdqueue API with an event-scoped moderator token.
type Client struct {
	baseURL    string
	token      string
	eventID    uuid.UUID
	httpClient *http.Client
}

// NewClient constructs a Client for one event session.
func NewClient(baseURL, token string, eventID uuid.UUID) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		eventID:    eventID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ListRequests fetches the three-bucket projection for the event.
func (c *Client) ListRequests(ctx context.Context) (queue.Board, error) {
	var board queue.Board
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/requests", c.eventID), nil, &board)
	if err != nil {
		return queue.Board{}, err
	}
	return board, nil
}

// SetStatus moves one request to the given status.
func (c *Client) SetStatus(ctx context.Context, id uuid.UUID, status store.RequestStatus) error {
	body := struct {
		Status store.RequestStatus `json:"status"`
	}{Status: status}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/requests/%s/status", id), body, nil)
}

// BulkTransition moves every request in from to to and reports how many
// rows moved.
func (c *Client) BulkTransition(ctx context.Context, from, to store.RequestStatus) (int, error) {
	body := struct {
		From store.RequestStatus `json:"from"`
		To   store.RequestStatus `json:"to"`
	}{From: from, To: to}
	var out struct {
		Updated int `json:"updated"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/events/%s/requests/transition", c.eventID), body, &out)
	if err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// DeleteRequest hard-deletes one request.
func (c *Client) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/requests/%s", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
