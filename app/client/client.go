package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lysyi3m/keepit/app/database"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the keepit HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithToken returns a copy of the client that sends a bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Count   int    `json:"count"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) ProcessContent(ctx context.Context, ownerID string, content any, contentType string) (*database.SavedItem, error) {
	var resp envelope[database.SavedItem]
	err := c.do(ctx, http.MethodPost, "/process-content", map[string]any{
		"content":     content,
		"contentType": contentType,
		"userId":      ownerID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) ListItems(ctx context.Context, ownerID string) ([]database.SavedItem, error) {
	var resp envelope[[]database.SavedItem]
	if err := c.do(ctx, http.MethodGet, "/saved-items?userId="+url.QueryEscape(ownerID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Search(ctx context.Context, ownerID, q string, limit int) ([]database.SavedItem, error) {
	query := url.Values{}
	query.Set("userId", ownerID)
	query.Set("q", q)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp envelope[[]database.SavedItem]
	if err := c.do(ctx, http.MethodGet, "/saved-items/search?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ToggleCompletion(ctx context.Context, ownerID, itemID string, completed bool) (*database.SavedItem, error) {
	return c.patch(ctx, "/toggle-completion", map[string]any{
		"itemId":    itemID,
		"completed": completed,
		"userId":    ownerID,
	})
}

func (c *Client) UpdateTitle(ctx context.Context, ownerID, itemID, title string) (*database.SavedItem, error) {
	return c.patch(ctx, "/update-title", map[string]any{
		"itemId": itemID,
		"title":  title,
		"userId": ownerID,
	})
}

func (c *Client) UpdateNotificationSettings(ctx context.Context, ownerID, itemID string, settings any) (*database.SavedItem, error) {
	return c.patch(ctx, "/update-notification-settings", map[string]any{
		"itemId":               itemID,
		"notificationSettings": settings,
		"userId":               ownerID,
	})
}

func (c *Client) patch(ctx context.Context, path string, body any) (*database.SavedItem, error) {
	var resp envelope[database.SavedItem]
	if err := c.do(ctx, http.MethodPatch, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
			message = failure.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
