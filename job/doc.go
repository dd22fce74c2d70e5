// Package job runs uploaded recordings through transcription, optional
// diarization and formatting on background goroutines, and keeps their
// progress in a Store that the HTTP layer polls or streams.
//
// Concurrency is bounded by a bulkhead: an upload arriving while every slot
// is busy is rejected with SERVICE_UNAVAILABLE rather than queued, so a
// multi-hour recording never starves the HTTP server. Running jobs are not
// cancellable; Stop waits for them.
package job
