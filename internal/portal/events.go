package portal

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/provision"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Watchers never send data.
	maxMessageSize = 512

	// Events buffered per watcher before new ones are dropped
	eventBuffer = 16
)

// EventMessage is one JSON message on the /events stream
type EventMessage struct {
	Seq    uint64         `json:"seq"`
	From   string         `json:"from,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Status StatusResponse `json:"status"`
}

// NewEventMessage converts a tracker event to its JSON form
func NewEventMessage(ev provision.Event) EventMessage {
	return EventMessage{
		Seq:    ev.Seq,
		From:   ev.From.String(),
		Detail: ev.Detail,
		Status: NewStatusResponse(ev.Snapshot),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
}

// eventsHandler serves GET /events. The current state is sent first, then
// every state change until the peer goes away.
func eventsHandler(tracker *provision.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("WebSocket upgrade failed",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			return
		}
		remoteAddr := r.RemoteAddr
		logging.Info("Event watcher connected", zap.String("remote_addr", remoteAddr))

		events, cancel := tracker.Subscribe(eventBuffer)
		defer func() {
			cancel()
			_ = conn.Close()
			logging.Info("Event watcher disconnected", zap.String("remote_addr", remoteAddr))
		}()

		done := make(chan struct{})
		go readPump(conn, done)

		initial := EventMessage{Status: NewStatusResponse(tracker.Snapshot())}
		if err := writeEvent(conn, initial); err != nil {
			return
		}

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(conn, NewEventMessage(ev)); err != nil {
					logging.Debug("Failed to write event",
						zap.String("remote_addr", remoteAddr),
						zap.Error(err),
					)
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, msg EventMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// readPump drains the peer so pongs and close frames are processed
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
