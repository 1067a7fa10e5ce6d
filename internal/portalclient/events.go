package portalclient

import (
	"context"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/muurk/softap/internal/portal"
)

// EventStream reads state events from a portal's /events endpoint
type EventStream struct {
	conn *websocket.Conn
}

// EventsURL converts the portal base URL into its websocket URL
func (c *Client) EventsURL() string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/events"
}

// Events opens the event stream. The first message is the current state.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.Timeout}
	conn, resp, err := dialer.DialContext(ctx, c.EventsURL(), nil)
	if err != nil {
		if resp != nil {
			return nil, NewHTTPError(resp.StatusCode, "event stream handshake rejected")
		}
		return nil, ClassifyNetworkError("failed to open event stream", err)
	}
	return &EventStream{conn: conn}, nil
}

// Next blocks until the next event arrives
func (s *EventStream) Next() (portal.EventMessage, error) {
	var msg portal.EventMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return msg, err
		}
		return msg, ClassifyNetworkError("event stream read failed", err)
	}
	return msg, nil
}

// Close closes the stream
func (s *EventStream) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
