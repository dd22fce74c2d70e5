package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	rejected := 0
	b := NewBulkhead(BulkheadConfig{Name: "jobs", MaxConcurrent: 1, OnReject: func(string) { rejected++ }})

	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected != 1 {
		t.Errorf("expected one rejection, got %d", rejected)
	}

	release()
	release()
	if b.InUse() != 0 || b.Available() != 1 {
		t.Errorf("expected slot released once, in use=%d available=%d", b.InUse(), b.Available())
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, _ := b.Acquire(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()
	second, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected slot after wait, got %v", err)
	}
	second()
}

func TestBulkhead_TimesOut(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 5 * time.Millisecond})
	release, _ := b.Acquire(context.Background())
	defer release()
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestBulkhead_ContextCancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, _ := b.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
