package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/diarscribe/storage"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := storage.WriteBytes(ctx, s, "job-1/talk_transcript.txt", []byte("hello")); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	got, err := storage.ReadBytes(ctx, s, "job-1/talk_transcript.txt")
	if err != nil || string(got) != "hello" {
		t.Fatalf("ReadBytes = %q, %v", got, err)
	}
	ok, err := s.Exists(ctx, "job-1/talk_transcript.txt")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	if _, err := s.Download(ctx, "job-1/missing.txt"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download missing: %v", err)
	}
}

func TestTraversalStaysInBase(t *testing.T) {
	base := t.TempDir()
	s, _ := NewStorage(base)
	if err := storage.WriteBytes(context.Background(), s, "../../escape.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(base, "escape.txt")); err != nil {
		t.Errorf("file should be written inside base: %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(t.TempDir())
	for _, k := range []string{"b/2.txt", "a/1.txt", "a/0.txt", "c.txt"} {
		storage.WriteBytes(ctx, s, k, []byte(k))
	}

	files, err := s.List(ctx, "a/")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].Path != "a/0.txt" || files[1].Path != "a/1.txt" {
		t.Errorf("List(a/) = %+v", files)
	}
	if !strings.HasPrefix(files[0].ContentType, "text/plain") {
		t.Errorf("ContentType = %q", files[0].ContentType)
	}

	all, _ := s.List(ctx, "")
	if len(all) != 4 {
		t.Errorf("List('') returned %d files", len(all))
	}
}

func TestFactoryRegistered(t *testing.T) {
	st, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := st.(*Storage); !ok {
		t.Errorf("got %T", st)
	}
}
