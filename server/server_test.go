package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarscribe/component"
	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/logger"
)

func newTestServer(t *testing.T, mutate ...func(*Config)) *Server {
	t.Helper()
	cfg := &Config{Host: "127.0.0.1", Port: 0}
	for _, m := range mutate {
		m(cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	s := New(cfg, logger.Nop())
	gin.SetMode(gin.TestMode)
	return s
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Host != "0.0.0.0" || cfg.Port != 7860 {
		t.Errorf("listen = %s:%d, want 0.0.0.0:7860", cfg.Host, cfg.Port)
	}
	if cfg.MaxBodySize != "2GB" {
		t.Errorf("MaxBodySize = %q", cfg.MaxBodySize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 70000 }},
		{"read timeout", func(c *Config) { c.ReadTimeout = -1 }},
		{"rate limit", func(c *Config) { c.RateLimit = -5 }},
		{"body size", func(c *Config) { c.MaxBodySize = "lots" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestHandlerAppliesMiddleware(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxBodySize = "1KB" })
	s.ApplyDefaults("diarscribe", nil)
	s.GinEngine().POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		c.String(http.StatusOK, string(b))
	})
	s.GinEngine().GET("/panic", func(*gin.Context) { panic("boom") })

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/echo", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Request-Id") == "" {
		t.Errorf("status = %d, request id = %q", resp.StatusCode, resp.Header.Get("X-Request-Id"))
	}

	resp, err = http.Post(ts.URL+"/echo", "text/plain", strings.NewReader(strings.Repeat("x", 4096)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body status = %d, want 413", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/panic")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("panic status = %d, want 500", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{"app error", apperrors.NotFound("transcription", "x"), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"plain error", io.ErrUnexpectedEOF, http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tt.err)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.wantErr {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestComponentLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.ApplyDefaults("diarscribe", nil)
	comp := NewComponent(s)
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health before start = %s", h.Status)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health after start = %s", h.Status)
	}

	resp, err := http.Get("http://" + s.Addr() + "/alive")
	if err != nil {
		t.Fatalf("GET /alive: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/alive status = %d", resp.StatusCode)
	}

	hook := make(chan struct{})
	s.OnShutdown(func() { close(hook) })
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-hook:
	case <-time.After(time.Second):
		t.Error("OnShutdown hook did not run")
	}
}

func TestRoutesOrderAndNames(t *testing.T) {
	s := newTestServer(t)
	s.RegisterDefaultEndpoints("diarscribe", nil)
	s.GinEngine().POST("/api/v1/transcriptions", func(*gin.Context) {})
	s.GinEngine().GET("/api/v1/transcriptions", func(*gin.Context) {})

	routes := NewComponent(s).Routes()
	if len(routes) < 3 {
		t.Fatalf("routes = %v", routes)
	}
	if routes[0].Path != "/api/v1/transcriptions" || routes[0].Method != "GET" || routes[1].Method != "POST" {
		t.Errorf("API routes should come first, GET before POST: %v", routes[:2])
	}
	last := routes[len(routes)-1]
	if !systemPaths[last.Path] {
		t.Errorf("system routes should come last, got %v", last)
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"github.com/kbukum/diarscribe/api.(*Handler).Submit-fm", "Handler.Submit"},
		{"github.com/kbukum/diarscribe/server/endpoint.Health.func1", "health"},
		{"main.index", "index"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := formatHandlerName(tt.in); got != tt.want {
				t.Errorf("formatHandlerName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
