package sse

import (
	"net/http"
	"time"

	"github.com/kbukum/diarscribe/logger"
)

// KeepAlive is how often a comment line is written on an idle stream.
// It stays below common proxy idle timeouts.
var KeepAlive = 30 * time.Second

// Stream writes events for clientID until the request ends, the hub stops or
// a Final event is written. snapshot runs after the client is registered and
// its events go out first, so a state snapshot taken there cannot miss a
// later event.
func Stream(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, snapshot func() []Event) {
	log := logger.Get("sse").WithContext(r.Context()).WithFields(logger.Fields("client_id", clientID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	// Uploads can be long; the server WriteTimeout must not cut the stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("Could not clear write deadline", logger.ErrorFields("set_write_deadline", err))
	}

	client := NewClient(clientID)
	if !hub.Register(client) {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, ev := range snapshot() {
		if err := WriteEvent(w, ev); err != nil {
			return
		}
		if ev.Final {
			flusher.Flush()
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			if err := WriteEvent(w, ev); err != nil {
				log.Debug("Stream write failed", logger.ErrorFields("write", err))
				return
			}
			flusher.Flush()
			if ev.Final {
				return
			}
		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
