package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarscribe/component"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	r := gin.New()
	r.GET("/", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rr.Code, body
}

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		hs := make([]component.Health, len(statuses))
		for i, s := range statuses {
			hs[i] = component.Health{Name: string(s), Status: s}
		}
		return hs
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checker", nil, http.StatusOK, "healthy"},
		{"all healthy", checker(component.StatusHealthy), http.StatusOK, "healthy"},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "degraded"},
		{"unhealthy", checker(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := serve(t, Health("diarscribe", tt.checker))
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", body["status"], tt.wantStatus)
			}
			if body["service"] != "diarscribe" {
				t.Errorf("service = %v", body["service"])
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	if code, _ := serve(t, Readiness("svc", checker(component.StatusDegraded))); code != http.StatusOK {
		t.Errorf("degraded should still be ready, code = %d", code)
	}
	code, body := serve(t, Readiness("svc", checker(component.StatusUnhealthy)))
	if code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Errorf("code = %d, body = %v", code, body)
	}
}

func TestLiveness(t *testing.T) {
	code, body := serve(t, Liveness("svc"))
	if code != http.StatusOK || body["status"] != "alive" {
		t.Errorf("code = %d, body = %v", code, body)
	}
}

func TestMetricsExtraSections(t *testing.T) {
	jobs := func(context.Context) (string, any) {
		return "jobs", map[string]int{"running": 1}
	}
	code, body := serve(t, Metrics(jobs))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if _, ok := body["memory"]; !ok {
		t.Error("missing memory section")
	}
	section, ok := body["jobs"].(map[string]any)
	if !ok || section["running"] != float64(1) {
		t.Errorf("jobs section = %v", body["jobs"])
	}
}

func TestInfoAndVersion(t *testing.T) {
	_, info := serve(t, Info("diarscribe"))
	build, _ := info["build"].(map[string]any)
	if info["service"] != "diarscribe" || build["version"] == nil {
		t.Errorf("info = %v", info)
	}
	_, v := serve(t, Version())
	if v["version"] == nil {
		t.Errorf("version = %v", v)
	}
}
