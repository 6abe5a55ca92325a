// Package notify sends push notifications through the Pushover API.
//
// Delivery is best-effort: callers on non-critical paths (tool side
// effects) log the returned error and move on. Nothing here retries
// or inspects delivery receipts.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/micdig/emissary/internal/httpkit"
)

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

// Pusher is the interface consumed by the tool registry.
type Pusher interface {
	Push(ctx context.Context, message string) error
}

// Client sends messages to a single Pushover application/user pair.
type Client struct {
	token      string
	user       string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a notification client. endpoint may be empty for the
// public Pushover API.
func New(token, user, endpoint string, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:      token,
		user:       user,
		endpoint:   endpoint,
		httpClient: httpkit.NewClient(),
		logger:     logger.With("component", "notify"),
	}
}

// Push sends one notification. The returned error is informational —
// callers decide whether delivery failure matters, and on the tool
// path it never does.
func (c *Client) Push(ctx context.Context, message string) error {
	form := url.Values{
		"token":   {c.token},
		"user":    {c.user},
		"message": {message},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushover API error %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", "bytes", len(message))
	return nil
}
