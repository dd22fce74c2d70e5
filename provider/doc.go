// Package provider is the small framework the speech backends plug into.
//
// A backend kind (transcription, diarization) registers named factories in a
// Registry, a Manager initializes the configured ones and a Selector picks
// an available one per job. Calls are made through RequestResponse so that
// logging, tracing, metrics and resilience compose as Middleware:
//
//	call := provider.Chain(
//	    provider.WithLogging[Req, *Resp](log),
//	    provider.WithTracing[Req, *Resp]("transcribe"),
//	    provider.WithMetrics[Req, *Resp]("transcribe", metrics),
//	    provider.WithResilience[Req, *Resp](cfg),
//	)(provider.Func(p, p.Transcribe))
package provider
