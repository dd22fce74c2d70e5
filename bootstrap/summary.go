package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/diarscribe/component"
)

// InfrastructureInfo is one described component.
type InfrastructureInfo struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// Summary is the startup report: described components, HTTP routes and
// live health.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	routes          []component.Route
	health          []component.Health
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Collect replaces the summary content with what the registry reports:
// Describable components, routes of RouteProviders and current health.
func (s *Summary) Collect(ctx context.Context, registry *component.Registry) {
	s.infrastructure = s.infrastructure[:0]
	s.routes = s.routes[:0]
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			name := desc.Name
			if name == "" {
				name = c.Name()
			}
			s.infrastructure = append(s.infrastructure, InfrastructureInfo{
				Name: name, Type: desc.Type, Details: desc.Details, Port: desc.Port,
			})
		}
		if rp, ok := c.(component.RouteProvider); ok {
			s.routes = append(s.routes, rp.Routes()...)
		}
	}
	s.health = registry.HealthAll(ctx)
}

// Write renders the summary as a tree.
func (s *Summary) Write(w io.Writer) {
	var b strings.Builder
	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(&b, "\n%s %s started in %.2fs\n", s.serviceName, version, s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		b.WriteString("\nInfrastructure\n")
		for i, inf := range s.infrastructure {
			details := inf.Details
			if inf.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, inf.Port)
			}
			fmt.Fprintf(&b, "   %s %s [%s]: %s\n", branch(i, len(s.infrastructure)), inf.Name, inf.Type, details)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(&b, "\nRoutes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(&b, "   %s %-7s %s -> %s\n", branch(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if len(s.health) > 0 {
		b.WriteString("\nHealth\n")
		healthy := 0
		for i, h := range s.health {
			msg := ""
			if h.Message != "" {
				msg = ": " + h.Message
			}
			fmt.Fprintf(&b, "   %s %s %s %s%s\n", branch(i, len(s.health)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
			if h.Status == component.StatusHealthy {
				healthy++
			}
		}
		if healthy == len(s.health) {
			fmt.Fprintf(&b, "\nAll components healthy (%d/%d)\n", healthy, len(s.health))
		} else {
			fmt.Fprintf(&b, "\nSome components have issues (%d/%d healthy)\n", healthy, len(s.health))
		}
	} else {
		b.WriteString("   └── No components registered\n")
	}

	b.WriteString("\n")
	_, _ = io.WriteString(w, b.String())
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
