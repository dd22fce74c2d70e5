// Package diarization defines the speaker diarization backend contract.
//
// A backend splits a recording into speaker turns. It needs an access token
// for the gated pretrained models; callers skip diarization when no token is
// available instead of calling the backend.
//
// Backends:
//
//   - diarization/pyannote: HTTP sidecar running pyannote.audio
package diarization
