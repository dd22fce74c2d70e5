package sse

// Broadcaster publishes events to every client whose ID matches a glob
// pattern such as "job:abc123:*".
type Broadcaster interface {
	Publish(pattern string, ev Event)
}
