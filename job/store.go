package job

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/diarscribe/redis"
)

// ErrNotFound is returned when a job does not exist or has expired.
var ErrNotFound = errors.New("job not found")

// Store persists job state.
type Store interface {
	Save(ctx context.Context, j *Job) error
	// Load returns ErrNotFound for unknown IDs.
	Load(ctx context.Context, id string) (*Job, error)
	// List returns up to limit jobs, newest first.
	List(ctx context.Context, limit int) ([]*Job, error)
}

// MemoryStore keeps jobs in process memory. Jobs older than the TTL are
// dropped on the next Save.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore creates a memory store. A zero ttl keeps jobs forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, jobs: make(map[string]*Job)}
}

// Save stores a copy of j.
func (s *MemoryStore) Save(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j.Clone()
	s.expire()
	return nil
}

// Load returns a copy of the stored job.
func (s *MemoryStore) Load(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok || s.expired(j) {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// List returns copies of the newest jobs.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*Job, error) {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !s.expired(j) {
			out = append(out, j.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// expired must be called with mu held. Running jobs never expire.
func (s *MemoryStore) expired(j *Job) bool {
	return s.ttl > 0 && j.Status.Terminal() && s.now().Sub(j.UpdatedAt) > s.ttl
}

func (s *MemoryStore) expire() {
	for id, j := range s.jobs {
		if s.expired(j) {
			delete(s.jobs, id)
		}
	}
}

// RedisStore keeps jobs in Redis so several replicas share them.
type RedisStore struct {
	store *redis.TypedStore[Job]
	ttl   time.Duration
}

// NewRedisStore creates a store under the "jobs" namespace.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{store: redis.NewTypedStore[Job](client, "jobs"), ttl: ttl}
}

// Save writes j and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, j *Job) error {
	return s.store.SaveIndexed(ctx, j.ID, j.Clone(), s.ttl, float64(j.CreatedAt.UnixNano()))
}

// Load reads a job.
func (s *RedisStore) Load(ctx context.Context, id string) (*Job, error) {
	j, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, ErrNotFound
	}
	return j, nil
}

// List returns the newest jobs.
func (s *RedisStore) List(ctx context.Context, limit int) ([]*Job, error) {
	return s.store.Recent(ctx, limit)
}
