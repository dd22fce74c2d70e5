// Package device picks the inference device for the speech backends.
package device

import (
	"os"
	"strings"
)

// Device names understood by the backends.
const (
	CPU  = "cpu"
	CUDA = "cuda"
	Auto = "auto"
)

// Info is a device with the compute type and batch size that suit it.
type Info struct {
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
	BatchSize   int    `json:"batch_size"`
}

// probe holds the host lookups so tests can replace them.
type probe struct {
	getenv func(string) string
	exists func(string) bool
}

var host = probe{
	getenv: os.Getenv,
	exists: func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	},
}

// Detect returns cuda/float16 when a GPU is visible and cpu/int8 otherwise.
func Detect() Info {
	return host.detect()
}

// Resolve returns the settings for the requested device. An empty or "auto"
// name falls back to Detect.
func Resolve(name string) Info {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CUDA:
		return For(CUDA)
	case CPU:
		return For(CPU)
	default:
		return Detect()
	}
}

// For returns the defaults for a known device.
func For(name string) Info {
	if name == CUDA {
		return Info{Device: CUDA, ComputeType: "float16", BatchSize: 16}
	}
	return Info{Device: CPU, ComputeType: "int8", BatchSize: 4}
}

func (p probe) detect() Info {
	if v, ok := visibleDevices(p.getenv("CUDA_VISIBLE_DEVICES")); ok {
		if v {
			return For(CUDA)
		}
		return For(CPU)
	}
	if p.exists("/dev/nvidia0") {
		return For(CUDA)
	}
	return For(CPU)
}

// visibleDevices interprets CUDA_VISIBLE_DEVICES. ok is false when the
// variable is unset and says nothing either way.
func visibleDevices(v string) (visible, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return false, false
	}
	if v == "-1" || strings.EqualFold(v, "none") || strings.EqualFold(v, "NoDevFiles") {
		return false, true
	}
	return true, true
}
