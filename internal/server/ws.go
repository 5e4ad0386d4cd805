package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/alfredjeanlab/eventboard/internal/events"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// handleWebSocket handles GET /v1/ws. It accepts the same query parameters
// as the SSE stream and sends each message as a JSON text frame. Frames
// from the client are discarded.
func (s *EventServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topics := events.ParseTopics(q.Get("topics"))
	snapshot := q.Get("snapshot") == "true"

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()

	// CloseRead handles control frames and cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	sub, first, err := s.openStream(ctx, "ws "+r.RemoteAddr, topics, snapshot)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "snapshot unavailable")
		return
	}
	defer s.bus.Unsubscribe(sub)

	if first != nil {
		if err := writeWS(ctx, conn, first); err != nil {
			return
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				if s.bus.Evicted(sub) {
					conn.Close(websocket.StatusTryAgainLater, "subscriber fell behind")
				} else {
					conn.Close(websocket.StatusGoingAway, "server shutting down")
				}
				return
			}
			if err := writeWS(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("websocket write failed", "remote", r.RemoteAddr, "error", err)
				}
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, msg *events.Message) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
