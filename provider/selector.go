package provider

import (
	"context"
	"fmt"
	"sort"
)

// Selector picks a provider from the initialized ones.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector returns the first available provider in Priority order,
// then falls back to any other available provider in name order.
type PrioritySelector[T Provider] struct {
	Priority []string
}

// Select implements Selector.
func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	seen := make(map[string]bool, len(s.Priority))
	for _, name := range s.Priority {
		seen[name] = true
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}

	rest := make([]string, 0, len(providers))
	for name := range providers {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		if p := providers[name]; p.IsAvailable(ctx) {
			return p, nil
		}
	}

	var zero T
	return zero, fmt.Errorf("no available provider among %d configured", len(providers))
}
