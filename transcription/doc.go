// Package transcription defines the speech-to-text backend contract.
//
// Backends:
//
//   - transcription/whisper: HTTP sidecar running faster-whisper or whisperX
//   - transcription/whisperx: the whisperx command-line tool
//
// Both return timed segments. Word alignment is best effort; when it fails
// the backend reports AlignWarning and still returns the raw segments.
package transcription
