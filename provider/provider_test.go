package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type testProvider struct {
	name      string
	available bool
	initErr   error
	inited    bool
}

func (p *testProvider) Name() string                       { return p.name }
func (p *testProvider) IsAvailable(_ context.Context) bool { return p.available }
func (p *testProvider) Init(_ context.Context) error {
	p.inited = true
	return p.initErr
}

type testConfig struct {
	Available bool
	InitErr   error
}

func newTestRegistry() *Registry[*testProvider, testConfig] {
	reg := NewRegistry[*testProvider, testConfig]()
	for _, name := range []string{"whisper", "whisperx"} {
		reg.RegisterFactory(name, func(cfg testConfig) (*testProvider, error) {
			return &testProvider{name: name, available: cfg.Available, initErr: cfg.InitErr}, nil
		})
	}
	return reg
}

func TestRegistryCreateUnregistered(t *testing.T) {
	_, err := newTestRegistry().Create("missing", testConfig{})
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
}

func TestRegistryList(t *testing.T) {
	names := newTestRegistry().List()
	if len(names) != 2 || names[0] != "whisper" || names[1] != "whisperx" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestManagerInitializeCallsInit(t *testing.T) {
	mgr := NewManager(newTestRegistry(), &PrioritySelector[*testProvider]{})
	if err := mgr.Initialize(context.Background(), "whisper", testConfig{Available: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	p, err := mgr.GetByName("whisper")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if !p.inited {
		t.Error("expected Init to be called")
	}
}

func TestManagerInitializeFailure(t *testing.T) {
	mgr := NewManager(newTestRegistry(), &PrioritySelector[*testProvider]{})
	err := mgr.Initialize(context.Background(), "whisperx", testConfig{InitErr: errors.New("binary not found")})
	if err == nil {
		t.Fatal("expected init error")
	}
	if len(mgr.Available()) != 0 {
		t.Errorf("failed provider must not be registered, got %v", mgr.Available())
	}
}

func TestManagerGetUsesPriority(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newTestRegistry(), &PrioritySelector[*testProvider]{Priority: []string{"whisperx"}})
	_ = mgr.Initialize(ctx, "whisper", testConfig{Available: true})
	_ = mgr.Initialize(ctx, "whisperx", testConfig{Available: true})

	p, err := mgr.Get(ctx)
	if err != nil || p.Name() != "whisperx" {
		t.Fatalf("expected whisperx, got %v err=%v", p, err)
	}

	wx, _ := mgr.GetByName("whisperx")
	wx.available = false
	p, err = mgr.Get(ctx)
	if err != nil || p.Name() != "whisper" {
		t.Errorf("expected fallback to whisper, got %v err=%v", p, err)
	}
}

func TestPrioritySelectorNoneAvailable(t *testing.T) {
	sel := &PrioritySelector[*testProvider]{Priority: []string{"a"}}
	_, err := sel.Select(context.Background(), map[string]*testProvider{"a": {name: "a"}, "b": {name: "b"}})
	if err == nil {
		t.Error("expected error when nothing is available")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware[string, string] {
		return func(inner RequestResponse[string, string]) RequestResponse[string, string] {
			return Func(inner, func(ctx context.Context, in string) (string, error) {
				order = append(order, name)
				return inner.Execute(ctx, in)
			})
		}
	}
	base := Func(&testProvider{name: "base", available: true}, func(_ context.Context, in string) (string, error) {
		order = append(order, "base")
		return in + "!", nil
	})

	out, err := Chain(tag("a"), tag("b"))(base).Execute(context.Background(), "hi")
	if err != nil || out != "hi!" {
		t.Fatalf("unexpected result %q %v", out, err)
	}
	if strings.Join(order, ",") != "a,b,base" {
		t.Errorf("unexpected order %v", order)
	}
	if base.Name() != "base" {
		t.Errorf("Func should keep the provider name, got %q", base.Name())
	}
}
