package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/kbukum/diarscribe/errors"
)

func TestDetailFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"bad model"}`, "bad model"},
		{"error string", `{"error":"oops"}`, "oops"},
		{"error object", `{"error":{"message":"nested"}}`, "nested"},
		{"plain text", "  gateway exploded \n", "gateway exploded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Error{Body: []byte(tt.body)}
			if got := e.Detail(); got != tt.want {
				t.Errorf("Detail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"timeout", NewTimeoutError(errors.New("deadline")), apperrors.ErrCodeTimeout, true},
		{"connection", NewConnectionError(errors.New("refused")), apperrors.ErrCodeServiceUnavailable, true},
		{"auth", ClassifyStatusCode(http.StatusUnauthorized, nil), apperrors.ErrCodeUnauthorized, false},
		{"rate limit", ClassifyStatusCode(http.StatusTooManyRequests, nil), apperrors.ErrCodeRateLimited, true},
		{"bad request", ClassifyStatusCode(http.StatusUnprocessableEntity, nil), apperrors.ErrCodeExternalService, false},
		{"not found", ClassifyStatusCode(http.StatusNotFound, nil), apperrors.ErrCodeExternalService, false},
		{"server", ClassifyStatusCode(http.StatusBadGateway, nil), apperrors.ErrCodeExternalService, true},
		{"not implemented", ClassifyStatusCode(http.StatusNotImplemented, nil), apperrors.ErrCodeExternalService, false},
		{"wrapped", fmt.Errorf("whisper: %w", ClassifyStatusCode(http.StatusInternalServerError, nil)), apperrors.ErrCodeExternalService, true},
		{"plain", errors.New("boom"), apperrors.ErrCodeExternalService, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := ToAppError("diarization", tt.err)
			if ae.Code != tt.code {
				t.Errorf("Code = %s, want %s", ae.Code, tt.code)
			}
			if ae.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", ae.Retryable, tt.retryable)
			}
			if !errors.Is(ae, tt.err) && !errors.Is(ae.Cause, tt.err) {
				t.Errorf("cause not preserved")
			}
		})
	}

	if ToAppError("x", nil) != nil {
		t.Error("nil error should map to nil")
	}
	orig := apperrors.NoAudio()
	if ToAppError("x", orig) != orig {
		t.Error("AppError should pass through")
	}
}
