package device

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		nvidia bool
		want   string
	}{
		{"nothing", "", false, CPU},
		{"device file", "", true, CUDA},
		{"visible devices", "0,1", false, CUDA},
		{"hidden by -1", "-1", true, CPU},
		{"hidden by none", "none", true, CPU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := probe{
				getenv: func(string) string { return tt.env },
				exists: func(string) bool { return tt.nvidia },
			}
			got := p.detect()
			if got.Device != tt.want {
				t.Errorf("Device = %s, want %s", got.Device, tt.want)
			}
		})
	}
}

func TestFor(t *testing.T) {
	if got := For(CUDA); got.ComputeType != "float16" || got.BatchSize != 16 {
		t.Errorf("For(cuda) = %+v", got)
	}
	if got := For(CPU); got.ComputeType != "int8" || got.BatchSize != 4 {
		t.Errorf("For(cpu) = %+v", got)
	}
}

func TestResolveForced(t *testing.T) {
	if got := Resolve(" CUDA "); got.Device != CUDA {
		t.Errorf("Resolve(CUDA) = %+v", got)
	}
	if got := Resolve("cpu"); got.Device != CPU {
		t.Errorf("Resolve(cpu) = %+v", got)
	}
}
