package posclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/tablepos/api/internal/events"
)

// WatchKitchen connects to the kitchen websocket and calls fn for every
// order detail event until ctx is done or the connection drops. The events
// are hints: callers re-fetch the queue rather than trusting their payload.
func (c *Client) WatchKitchen(ctx context.Context, station string, fn func(events.OrderDetailEvent)) error {
	wsURL, err := c.kitchenURL(station)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect kitchen stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kitchen stream closed: %w", err)
		}
		var evt events.OrderDetailEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			continue
		}
		fn(evt)
	}
}

func (c *Client) kitchenURL(station string) (string, error) {
	u, err := url.Parse(c.baseURL + "/ws/kitchen")
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.token)
	if station != "" {
		q.Set("station", strings.ToUpper(station))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
