package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keybeat-app/keybeat/internal/daemon"
)

// apiClient is a minimal client for the daemon's local REST API.
type apiClient struct {
	base   string
	client *http.Client
}

// newAPIClient resolves the daemon address from the config file.
func newAPIClient() (*apiClient, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &apiClient{
		base:   "http://" + cfg.Daemon.Listen,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *apiClient) get(path string, out interface{}) error {
	return c.do("GET", path, nil, out)
}

func (c *apiClient) post(path string, in, out interface{}) error {
	return c.do("POST", path, in, out)
}

func (c *apiClient) put(path string, in, out interface{}) error {
	return c.do("PUT", path, in, out)
}

func (c *apiClient) do(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s (start it with 'keybeat serve'): %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError surfaces the daemon's error message from its JSON envelope.
func apiError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		return errors.New(envelope.Error.Message)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

// newLineScanner creates a line scanner from a reader.
func newLineScanner(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(r)
}
