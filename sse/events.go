package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event types sent on a job stream.
const (
	EventTypeConnected = "connected"
	EventTypeProgress  = "progress"
	EventTypeCompleted = "completed"
	EventTypeFailed    = "failed"
)

// Event is one server-sent event. Final events end the stream after they
// are written.
type Event struct {
	Type  string
	Data  []byte
	Final bool
}

// NewEvent encodes v as the JSON payload of an event.
func NewEvent(eventType string, v interface{}, final bool) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return Event{Type: eventType, Data: data, Final: final}, nil
}

// WriteEvent writes ev in text/event-stream framing.
func WriteEvent(w io.Writer, ev Event) error {
	if ev.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", ev.Type); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", ev.Data)
	return err
}
