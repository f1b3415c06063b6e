package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Client talks to a relay server at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewClient returns a client for the relay at baseURL, e.g. "http://127.0.0.1:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Dialer:     websocket.DefaultDialer,
	}
}

// Send submits text and returns the echoed query.
func (c *Client) Send(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"query": text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send_query", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status == http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s", ErrValidation, gjson.GetBytes(body, "message").String())
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("relay: unexpected status %d: %s", status, strings.TrimSpace(string(body)))
	}
	return gjson.GetBytes(body, "query").String(), nil
}

// Get returns the stored query. ok is false when nothing was submitted yet.
func (c *Client) Get(ctx context.Context) (q Query, ok bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/get_query", nil)
	if err != nil {
		return Query{}, false, err
	}
	body, status, err := c.do(req)
	if err != nil {
		return Query{}, false, err
	}
	switch status {
	case http.StatusNoContent:
		return Query{}, false, nil
	case http.StatusOK:
		if err := json.Unmarshal(body, &q); err != nil {
			return Query{}, false, fmt.Errorf("relay: decode query: %w", err)
		}
		return q, true, nil
	default:
		return Query{}, false, fmt.Errorf("relay: unexpected status %d", status)
	}
}

// Watch calls fn for every query submitted after it starts, until ctx is done.
// It subscribes over websocket and polls /get_query every interval when the
// websocket cannot be opened.
func (c *Client) Watch(ctx context.Context, interval time.Duration, fn func(Query)) error {
	wsURL, err := c.wsURL()
	if err != nil {
		return err
	}
	conn, _, err := c.Dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		slog.Warn("websocket unavailable, polling instead", "url", wsURL, "err", err)
		return c.poll(ctx, interval, fn)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	for {
		var q Query
		if err := conn.ReadJSON(&q); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("relay: watch: %w", err)
		}
		fn(q)
	}
}

func (c *Client) poll(ctx context.Context, interval time.Duration, fn func(Query)) error {
	if interval <= 0 {
		interval = time.Second
	}
	var last time.Time
	if q, ok, err := c.Get(ctx); err == nil && ok {
		last = q.Timestamp
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		q, ok, err := c.Get(ctx)
		if err != nil {
			slog.Warn("relay poll failed", "err", err)
			continue
		}
		if ok && !q.Timestamp.Equal(last) {
			last = q.Timestamp
			fn(q)
		}
	}
}

func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("relay: bad url %q: %w", c.BaseURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("relay: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("relay: read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
