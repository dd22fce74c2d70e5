package process

import (
	"strings"
	"time"
)

// Result holds the output and status of a finished subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 if the process was killed or never started.
	ExitCode int
	Duration time.Duration
}

// StderrTail returns the last n non-empty stderr lines joined with "; ".
func (r *Result) StderrTail(n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	var lines []string
	for _, l := range strings.Split(string(r.Stderr), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
