package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alfredjeanlab/eventboard/internal/events"
)

// sseKeepaliveInterval is how often a comment line is written to keep
// idle connections open through proxies.
const sseKeepaliveInterval = 15 * time.Second

// handleEventStream handles GET /v1/stream.
//
// Query parameters: topics is a comma-separated filter list (empty means
// all topics) and snapshot=true sends the current list first.
func (s *EventServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	q := r.URL.Query()
	sub, first, err := s.openStream(r.Context(), "sse "+r.RemoteAddr,
		events.ParseTopics(q.Get("topics")), q.Get("snapshot") == "true")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer s.bus.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if first != nil {
		writeSSEEvent(w, first)
	}
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				// Evicted or shutting down; the client reconnects.
				return
			}
			writeSSEEvent(w, msg)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE frame. The snapshot frame sent on
// connect has no sequence number and so no id line.
func writeSSEEvent(w http.ResponseWriter, msg *events.Message) {
	if msg.Seq > 0 {
		fmt.Fprintf(w, "id:%d\n", msg.Seq)
	}
	fmt.Fprintf(w, "event:%s\n", msg.Topic)
	fmt.Fprintf(w, "data:%s\n\n", msg.Data)
}
