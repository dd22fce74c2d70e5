// Package server runs the HTTP side of diarscribe: a Gin engine behind a
// ServeMux, wrapped with the middleware chain and served with h2c support.
//
// # Middleware
//
// Applied to every route (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation into the log context
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: request body cap, 2GB by default for long recordings
//   - RequestLogger: request logging with duration and status
//
// Applied per route group: Auth (optional bearer JWT) and RateLimit.
//
// # Endpoints
//
// Registered by RegisterDefaultEndpoints (server/endpoint): /health, /alive,
// /ready, /info, /metrics and /version.
package server
