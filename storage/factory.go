package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/diarscribe/logger"
)

// Factory creates a backend from the shared config.
type Factory func(ctx context.Context, cfg Config) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a backend available to New. Backend packages call it
// from init, so import them for side effects.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates the backend selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}
	logger.Get("storage").Info("initializing storage", logger.Fields(
		logger.FieldProvider, cfg.Provider,
		"location", cfg.Details(),
	))
	return f(ctx, cfg)
}
