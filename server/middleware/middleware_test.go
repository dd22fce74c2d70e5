package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarscribe/auth"
	"github.com/kbukum/diarscribe/auth/authctx"
	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, body []byte) apperrors.ErrorBody {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("response is not an error envelope: %v (%s)", err, body)
	}
	return resp.Error
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery(t *testing.T) {
	log := logger.Nop()

	t.Run("no panic", func(t *testing.T) {
		handler := middleware.Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("panic", func(t *testing.T) {
		handler := middleware.Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/transcriptions", http.NoBody))
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
		if body := decodeError(t, rr.Body.Bytes()); body.Code != apperrors.ErrCodeInternal {
			t.Errorf("code = %s", body.Code)
		}
	})
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	var logged bytes.Buffer
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.NewWithWriter(&logged, "test").WithContext(r.Context()).Info("handled")
		w.WriteHeader(http.StatusOK)
	}))

	loggedID := func(t *testing.T) string {
		t.Helper()
		var entry map[string]any
		if err := json.Unmarshal(logged.Bytes(), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", logged.String(), err)
		}
		id, _ := entry[logger.FieldRequestID].(string)
		return id
	}

	t.Run("generated", func(t *testing.T) {
		logged.Reset()
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
		got := rr.Header().Get(middleware.RequestIDHeader)
		if got == "" {
			t.Fatal("expected X-Request-Id in response headers")
		}
		if seen := loggedID(t); seen != got {
			t.Errorf("logged id %q != header id %q", seen, got)
		}
	})

	t.Run("preserved", func(t *testing.T) {
		logged.Reset()
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", http.NoBody)
		req.Header.Set(middleware.RequestIDHeader, "custom-id-123")
		handler.ServeHTTP(rr, req)
		if got := rr.Header().Get(middleware.RequestIDHeader); got != "custom-id-123" {
			t.Fatalf("expected custom-id-123, got %s", got)
		}
		if seen := loggedID(t); seen != "custom-id-123" {
			t.Errorf("logged id = %q", seen)
		}
	})
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        middleware.CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
		wantCreds  string
	}{
		{
			name:       "allowed origin",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"https://example.com"}, AllowedMethods: []string{"GET", "POST"}},
			method:     "GET",
			origin:     "https://example.com",
			wantOrigin: "https://example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed origin",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"https://allowed.com"}},
			method:     "GET",
			origin:     "https://evil.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "preflight",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"*"}},
			method:     "OPTIONS",
			origin:     "https://app.example.com",
			wantOrigin: "https://app.example.com",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "credentials",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true},
			method:     "GET",
			origin:     "https://app.example.com",
			wantOrigin: "https://app.example.com",
			wantStatus: http.StatusOK,
			wantCreds:  "true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CORS(&tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/api/v1/models", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("allow credentials = %q, want %q", got, tt.wantCreds)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// BodySizeLimit
// ---------------------------------------------------------------------------

func TestBodySizeLimit(t *testing.T) {
	var readErr error
	handler := middleware.BodySizeLimit("1KB")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("within limit", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/upload", strings.NewReader("small")))
		if rr.Code != http.StatusOK || readErr != nil {
			t.Fatalf("status = %d, read error = %v", rr.Code, readErr)
		}
	})

	t.Run("declared too large", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/upload", strings.NewReader(strings.Repeat("x", 2048))))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413", rr.Code)
		}
		if body := decodeError(t, rr.Body.Bytes()); body.Code != apperrors.ErrCodePayloadTooLarge {
			t.Errorf("code = %s", body.Code)
		}
	})

	t.Run("streamed too large", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/upload", strings.NewReader(strings.Repeat("x", 2048)))
		req.ContentLength = -1
		handler.ServeHTTP(httptest.NewRecorder(), req)
		var maxErr *http.MaxBytesError
		if !errors.As(readErr, &maxErr) {
			t.Errorf("read error = %v, want *http.MaxBytesError", readErr)
		}
	})
}

// ---------------------------------------------------------------------------
// RequestLogger and statusWriter
// ---------------------------------------------------------------------------

func TestRequestLogger(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&buf, "test")
	handler := middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/transcriptions/x", http.NoBody))
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Errorf("expected a logged 404, got %q", buf.String())
	}

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", http.NoBody))
	if buf.Len() != 0 {
		t.Errorf("probe paths should not be logged, got %q", buf.String())
	}
}

type flushRecorder struct {
	http.ResponseWriter
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRequestLoggerKeepsFlusher(t *testing.T) {
	fr := &flushRecorder{ResponseWriter: httptest.NewRecorder()}
	handler := middleware.RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))
	handler.ServeHTTP(fr, httptest.NewRequest("GET", "/api/v1/transcriptions/x/events", http.NoBody))
	if !fr.flushed {
		t.Error("expected Flush to be delegated to the underlying writer")
	}
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}
	handler := middleware.Chain(mw("m1"), mw("m2"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))

	want := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestAuth(t *testing.T) {
	validator := auth.TokenValidatorFunc(func(token string) (any, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		return "ops", nil
	})

	r := gin.New()
	r.GET("/api/v1/models", middleware.Auth(validator), func(c *gin.Context) {
		subject, _ := authctx.Get[string](c.Request.Context())
		c.String(http.StatusOK, subject)
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", "", http.StatusUnauthorized},
		{"valid", "Bearer good", "", http.StatusOK},
		{"lowercase scheme", "bearer good", "", http.StatusOK},
		{"query token", "", "?access_token=good", http.StatusOK},
		{"invalid query token", "", "?access_token=nope", http.StatusUnauthorized},
		{"header wins over query", "Bearer nope", "?access_token=good", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/models"+tt.query, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK && rr.Body.String() != "ops" {
				t.Errorf("claims not propagated, body = %q", rr.Body.String())
			}
			if tt.want == http.StatusUnauthorized {
				if body := decodeError(t, rr.Body.Bytes()); body.Code != apperrors.ErrCodeUnauthorized {
					t.Errorf("code = %s", body.Code)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerMinute: 2,
		KeyFunc:           func(c *gin.Context) string { return c.GetHeader("X-Client") },
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/", http.NoBody)
		req.Header.Set("X-Client", client)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := do("a"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}
	rr := do("a")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
	if rr := do("b"); rr.Code != http.StatusOK {
		t.Errorf("other clients must have their own bucket, status = %d", rr.Code)
	}
}
