package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"

	"cueloop/internal/app/notification"
)

// sseStream buffers notifications for one connected event listener.
type sseStream struct {
	ch chan *notification.Notification
}

func newSSEStream() *sseStream {
	return &sseStream{ch: make(chan *notification.Notification, 32)}
}

// Send queues a notification for delivery. A full buffer means the
// client stopped reading; report an error so the manager drops us.
func (s *sseStream) Send(n *notification.Notification) error {
	select {
	case s.ch <- n:
		return nil
	default:
		return errors.New("event buffer full")
	}
}

// handleEvents streams notifications as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := newSSEStream()
	id := s.svc.Subscribe(stream)
	defer s.svc.Unsubscribe(id)

	for {
		select {
		case n := <-stream.ch:
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
