// Package logger provides structured logging on top of zerolog.
//
// It supports JSON and console output, level configuration, and
// component- or job-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("job").WithJob(id)
//	log.Info("transcription finished", logger.Fields("segments", n))
package logger
