package process

import (
	"io"
	"time"
)

// Command configures a subprocess.
type Command struct {
	// Binary is the executable path or a name resolved via PATH.
	Binary string
	Args   []string
	Dir    string
	// Env is appended to the parent environment as key=value pairs.
	Env   []string
	Stdin io.Reader
	// GracePeriod is how long to wait after SIGTERM before SIGKILL. Defaults to 5s.
	GracePeriod time.Duration
	// OnStderrLine, when set, receives each stderr line as it is written.
	// Speech tools report progress there.
	OnStderrLine func(line string)
}
