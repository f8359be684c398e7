package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/sonogest/internal/log"
)

// Reconnect backoff bounds.
const (
	MinBackoff = 500 * time.Millisecond
	MaxBackoff = 10 * time.Second
)

// ErrNoURL is returned when a Client has no endpoint configured.
var ErrNoURL = errors.New("feed url is empty")

// Handler receives every decoded message.
type Handler func(Message)

// Client reads classification messages from a websocket endpoint and
// reconnects until its context ends.
type Client struct {
	url    string
	dialer *websocket.Dialer
}

// NewClient creates a Client for url. An empty url falls back to DefaultURL.
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
}

// URL returns the endpoint the client dials.
func (c *Client) URL() string {
	return c.url
}

// Run connects and forwards messages to h until ctx is cancelled.
func (c *Client) Run(ctx context.Context, h Handler) error {
	if c.url == "" {
		return ErrNoURL
	}

	backoff := MinBackoff
	for {
		connected, err := c.session(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		// A connection that came up resets the schedule; only failed dials
		// back off further.
		if connected {
			backoff = MinBackoff
		}
		wait := backoff
		log.Warn("feed connection lost", "url", c.url, "error", err, "retry", wait)
		if !connected {
			backoff = nextBackoff(backoff)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// nextBackoff doubles d up to MaxBackoff.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// session handles one connection lifetime. connected reports whether the
// dial succeeded.
func (c *Client) session(ctx context.Context, h Handler) (connected bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	log.Info("feed connected", "url", c.url)

	// Closing the connection unblocks ReadMessage when ctx ends.
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
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, fmt.Errorf("read: %w", err)
		}

		msg, err := Decode(data)
		if err != nil {
			log.Debug("dropping malformed feed message", "error", err)
			continue
		}
		h(msg)
	}
}
