// Package remote is the HTTP client for the replica relay.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keybeat-app/keybeat/internal/domain"
)

// Client talks to a keybeat relay over HTTP.
// It implements domain.ReplicaStore: wholesale row upserts keyed on
// (user, device) and full fetches per user.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a relay client. token may be empty for an open relay.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Upsert replaces the device's row wholesale.
func (c *Client) Upsert(ctx context.Context, r domain.Replica) error {
	jsonBody, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode replica: %w", err)
	}

	addr := fmt.Sprintf("%s/v1/replicas/%s/%s",
		c.baseURL, url.PathEscape(r.UserID), url.PathEscape(r.DeviceID))
	req, err := http.NewRequestWithContext(ctx, "PUT", addr, strings.NewReader(string(jsonBody)))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// FetchAll returns every replica row for the user, newest first.
func (c *Client) FetchAll(ctx context.Context, userID string) ([]domain.Replica, error) {
	addr := fmt.Sprintf("%s/v1/replicas/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, "GET", addr, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out []domain.Replica
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode replicas: %w", err)
	}
	return out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "keybeat/0.1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("relay error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
