package connectivity

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamBuffer     = 16
)

// The API listens on loopback for the UI shell, whose origin varies with the
// embedding webview.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream upgrades to a websocket and pushes the current state followed by
// every transition. A client that falls behind loses intermediate events;
// the next one still carries the current state.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.monitor.logger.Warn("connectivity stream upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	events := make(chan Transition, streamBuffer)
	cancel := h.monitor.Subscribe(func(tr Transition) {
		select {
		case events <- tr:
		default:
		}
	})
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.monitor.logger.Debug("connectivity stream closed", slog.Any("error", err))
				}
				return
			}
		}
	}()

	current := h.monitor.State()
	if err := h.writeEvent(conn, Transition{From: current, To: current, At: h.monitor.Since(), Reason: "current"}); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case tr := <-events:
			if err := h.writeEvent(conn, tr); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, tr Transition) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(tr)
}
