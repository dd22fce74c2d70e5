// Package component defines the lifecycle contract shared by the service's
// long-lived parts (storage, job store, job runner, event hub, HTTP server,
// telemetry exporters) and a registry that starts them in order and stops
// them in reverse.
package component
