package job

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kbukum/diarscribe/sse"
)

func TestJobEvent(t *testing.T) {
	tests := []struct {
		status    Status
		wantType  string
		wantFinal bool
	}{
		{StatusQueued, sse.EventTypeProgress, false},
		{StatusRunning, sse.EventTypeProgress, false},
		{StatusCompleted, sse.EventTypeCompleted, true},
		{StatusFailed, sse.EventTypeFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			j := &Job{ID: "job-1", Status: tt.status, Progress: 0.5, Stage: "Transcribing audio...", Text: "secret text"}
			ev, err := j.Event()
			if err != nil {
				t.Fatalf("Event: %v", err)
			}
			if ev.Type != tt.wantType || ev.Final != tt.wantFinal {
				t.Errorf("event = %s final=%v, want %s final=%v", ev.Type, ev.Final, tt.wantType, tt.wantFinal)
			}
			var u Update
			if err := json.Unmarshal(ev.Data, &u); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if u.ID != "job-1" || u.Status != tt.status || u.Progress != 0.5 {
				t.Errorf("payload = %+v", u)
			}
		})
	}
}

func TestCloneDropsToken(t *testing.T) {
	j := &Job{ID: "job-1", Options: Options{Model: "tiny", Token: "hf_secret"}, Warnings: []string{"a"}}
	c := j.Clone()
	if c.Options.Token != "" {
		t.Error("clone kept the token")
	}
	c.Warnings[0] = "b"
	if j.Warnings[0] != "a" {
		t.Error("clone shares the warnings slice")
	}

	data, err := json.Marshal(j)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("hf_secret")) {
		t.Errorf("token serialized: %s", data)
	}
}

func TestEventPattern(t *testing.T) {
	if got := EventPattern("abc"); got != "job:abc:*" {
		t.Errorf("EventPattern = %q", got)
	}
	if got := ClientID("abc", "c1"); got != "job:abc:c1" {
		t.Errorf("ClientID = %q", got)
	}
}
