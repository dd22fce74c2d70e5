// Package observability wires OpenTelemetry tracing and metrics for the
// transcription pipeline.
//
// Every job gets a span with one child per stage (transcribe, diarize,
// format, save). Metrics count finished jobs by status, backend calls by
// stage and provider, and seconds of audio processed. Export goes over
// OTLP HTTP and is off by default:
//
//	obs := observability.NewComponent(observability.Identity{ServiceName: "diarscribe"}, cfg)
//	registry.Register(obs)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanTranscribe)
//	defer span.End()
package observability
