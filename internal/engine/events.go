package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/set-night/vcplayer/internal/domain"
)

// Events returns the feed filled by Run. It is never closed.
func (c *Client) Events() <-chan domain.Event {
	return c.events
}

// Run keeps the sidecar event feed connected until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("engine event feed disconnected", "engine", c.baseURL, "error", err)

		t := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (c *Client) eventsURL() string {
	u := c.baseURL + "/v1/events"
	if rest, ok := strings.CutPrefix(u, "https://"); ok {
		return "wss://" + rest
	}
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "ws://" + rest
	}
	return u
}

func (c *Client) listen(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.eventsURL(), header)
	if err != nil {
		return fmt.Errorf("dial events: %w", err)
	}
	defer conn.Close()
	slog.Info("engine event feed connected", "engine", c.baseURL)

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("bad engine event", "engine", c.baseURL, "error", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
