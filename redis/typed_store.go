package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/diarscribe/logger"
)

// TypedStore keeps JSON-encoded values of one type under a shared key
// namespace, plus a sorted-set index ordered by a caller-supplied score.
type TypedStore[C any] struct {
	client    *Client
	namespace string
}

// NewTypedStore creates a store whose keys live under <prefix>:<namespace>.
func NewTypedStore[C any](client *Client, namespace string) *TypedStore[C] {
	return &TypedStore[C]{client: client, namespace: namespace}
}

func (s *TypedStore[C]) key(id string) string {
	return s.client.Key(s.namespace, id)
}

func (s *TypedStore[C]) indexKey() string {
	return s.client.Key(s.namespace, "_index")
}

// Load returns (nil, nil) when the key does not exist.
func (s *TypedStore[C]) Load(ctx context.Context, id string) (*C, error) {
	raw, err := s.client.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("typed store load %q: %w", id, err)
	}
	var val C
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, fmt.Errorf("typed store unmarshal %q: %w", id, err)
	}
	return &val, nil
}

// Save stores val with the given TTL. A zero TTL never expires.
func (s *TypedStore[C]) Save(ctx context.Context, id string, val *C, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("typed store marshal %q: %w", id, err)
	}
	if err := s.client.rdb.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("typed store save %q: %w", id, err)
	}
	return nil
}

// SaveIndexed stores val and records id in the index with score in one
// transaction.
func (s *TypedStore[C]) SaveIndexed(ctx context.Context, id string, val *C, ttl time.Duration, score float64) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("typed store marshal %q: %w", id, err)
	}
	_, err = s.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.key(id), data, ttl)
		pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: score, Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("typed store save %q: %w", id, err)
	}
	return nil
}

// Recent returns up to limit indexed values, highest score first. Index
// entries whose value has expired are pruned.
func (s *TypedStore[C]) Recent(ctx context.Context, limit int) ([]*C, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := s.client.rdb.ZRevRange(ctx, s.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("typed store index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	raws, err := s.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("typed store mget: %w", err)
	}

	out := make([]*C, 0, len(raws))
	var stale []interface{}
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var val C
		if err := json.Unmarshal([]byte(str), &val); err != nil {
			return nil, fmt.Errorf("typed store unmarshal %q: %w", ids[i], err)
		}
		out = append(out, &val)
	}
	if len(stale) > 0 {
		if err := s.client.rdb.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			s.client.log.Warn("Failed to prune job index", logger.ErrorFields("zrem", err))
		}
	}
	return out, nil
}
