package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dbqueue/internal/daemon"
	"dbqueue/internal/queue"
)

// ErrAPIUnavailable reports that no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

// Client talks to the dbqueued status API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient returns nil when bind is empty.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api bind: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: token,
		// Sweeps can run long on large tables.
		http: &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

// Status fetches the daemon's runtime status.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.do(ctx, http.MethodGet, "/api/status", &status)
	return status, err
}

// Stats fetches per-queue counts for the daemon's table.
func (c *Client) Stats(ctx context.Context) ([]queue.Stats, error) {
	var payload struct {
		Queues []queue.Stats `json:"queues"`
	}
	err := c.do(ctx, http.MethodGet, "/api/stats", &payload)
	return payload.Queues, err
}

// Sweep asks the daemon to run a maintenance sweep now. A failed sweep is
// returned both as the result's Error and as err.
func (c *Client) Sweep(ctx context.Context) (daemon.SweepResult, error) {
	var result daemon.SweepResult
	if err := c.do(ctx, http.MethodPost, "/api/sweep", &result); err != nil {
		return result, err
	}
	if result.Error != "" {
		return result, errors.New(result.Error)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	// Sweep failures still carry a result body.
	if resp.StatusCode >= 400 && !(path == "/api/sweep" && resp.StatusCode == http.StatusInternalServerError) {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, apiErrorMessage(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func apiErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
