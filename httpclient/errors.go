package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/kbukum/diarscribe/errors"
)

// ErrorCode classifies client errors.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
	ErrCodeDecode
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	case ErrCodeDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is a classified client error.
type Error struct {
	// StatusCode is 0 for connection-level errors.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		if d := e.Detail(); d != "" {
			return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, d)
		}
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Detail extracts a human-readable reason from the response body. It
// understands {"detail": ...}, {"error": ...} and {"message": ...} objects
// and falls back to the trimmed body text.
func (e *Error) Detail() string {
	if len(e.Body) == 0 {
		return ""
	}
	var obj map[string]any
	if json.Unmarshal(e.Body, &obj) == nil {
		for _, k := range []string{"detail", "error", "message"} {
			switch v := obj[k].(type) {
			case string:
				return v
			case map[string]any:
				if m, ok := v["message"].(string); ok {
					return m
				}
			}
		}
	}
	s := strings.TrimSpace(string(e.Body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError creates a client-side validation error.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode converts a status code into an error. It returns nil for 2xx.
func ClassifyStatusCode(status int, body []byte) *Error {
	e := &Error{StatusCode: status, Message: fmt.Sprintf("HTTP %d", status), Body: body}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status == http.StatusRequestTimeout:
		e.Code, e.Retryable = ErrCodeTimeout, true
	case status >= 400 && status < 500:
		e.Code = ErrCodeValidation
	case status >= 500:
		e.Code = ErrCodeServer
		e.Retryable = status != http.StatusNotImplemented
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// IsRetryable reports whether err is a retryable client error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// ToAppError maps a client error from the named backend to an AppError. Errors
// that are already AppErrors pass through unchanged.
func ToAppError(service string, err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if ae, ok := apperrors.AsAppError(err); ok {
		return ae
	}
	var e *Error
	if !errors.As(err, &e) {
		return apperrors.ExternalServiceError(service, err)
	}
	switch e.Code {
	case ErrCodeTimeout:
		return apperrors.Timeout(service).WithCause(err)
	case ErrCodeConnection:
		return apperrors.ServiceUnavailable(service).WithCause(err)
	case ErrCodeAuth:
		return apperrors.Unauthorized(service + " rejected the access token").WithCause(err)
	case ErrCodeRateLimit:
		return apperrors.RateLimited().WithCause(err)
	default:
		ae := apperrors.ExternalServiceError(service, err)
		ae.Retryable = e.Retryable
		return ae
	}
}
