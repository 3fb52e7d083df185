package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrContention is returned when an optimistic Redis update kept losing races.
var ErrContention = errors.New("ratelimit: too much contention")

// UpdateFunc receives the current record (exists=false for a new key) and returns the one to store.
type UpdateFunc func(rec Record, exists bool) Record

// Store persists records. Update must be atomic per key.
type Store interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// MemoryStore is a mutex-guarded map for single-process deployments.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	m.records[key] = fn(rec, ok)
	return nil
}

// Sweep drops records that can no longer affect a decision: the window started
// more than retention ago and no block is active.
func (m *MemoryStore) Sweep(now time.Time, retention time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, rec := range m.records {
		if rec.Blocked(now) {
			continue
		}
		if now.Sub(rec.WindowStart) > retention {
			delete(m.records, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// RedisStore shares counters across processes. Keys expire after the policy
// retention, so no sweeper is needed.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewRedisStore(client redis.UniversalClient, retention time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		prefix:    "ratelimit:",
		retention: retention,
	}
}

func (r *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	rkey := r.prefix + key

	txf := func(tx *redis.Tx) error {
		var (
			rec    Record
			exists bool
		)

		val, err := tx.Get(ctx, rkey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("ratelimit: failed to unmarshal: %w", err)
			}
			exists = true
		}

		data, err := json.Marshal(fn(rec, exists))
		if err != nil {
			return fmt.Errorf("ratelimit: failed to marshal: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, data, r.retention)
			return nil
		})
		return err
	}

	for i := 0; i < 8; i++ {
		err := r.client.Watch(ctx, txf, rkey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}
