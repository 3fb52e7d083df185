package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "session:"
	maxUpdateRetries = 8
	scanBatch        = 200
)

// RedisStore keeps sessions as JSON values with a TTL, so records also disappear
// on their own when no sweeper is running.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	inactivity time.Duration
	now        func() time.Time
}

// NewRedisStore creates a Redis-backed session store. inactivity bounds the key TTL
// together with each session's absolute expiry.
func NewRedisStore(client redis.UniversalClient, inactivity time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		prefix:     redisKeyPrefix,
		inactivity: inactivity,
		now:        time.Now,
	}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) ttl(s *Session) time.Duration {
	deadline := s.ExpiresAt
	if idle := s.LastActivity.Add(r.inactivity); idle.Before(deadline) {
		deadline = idle
	}
	return deadline.Sub(r.now())
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session: missing id")
	}

	ttl := r.ttl(&s)
	if ttl <= 0 {
		return fmt.Errorf("session: already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	return r.client.Set(ctx, r.key(s.ID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	return r.get(ctx, r.client, r.key(id))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) get(ctx context.Context, c getter, key string) (*Session, error) {
	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &s, nil
}

// Update runs fn inside WATCH/MULTI and retries when another client touched the key.
func (r *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*Session, error) {
	key := r.key(id)
	var result *Session

	txf := func(tx *redis.Tx) error {
		result = nil

		s, err := r.get(ctx, tx, key)
		if err != nil {
			return err
		}

		keep := fn(s)
		ttl := r.ttl(s)

		var data []byte
		if keep && ttl > 0 {
			if data, err = json.Marshal(s); err != nil {
				return fmt.Errorf("session: failed to marshal: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if data == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		if err == nil && data != nil {
			result = s
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrContention
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// DeleteWhere scans every session key and deletes the matches. Each candidate is
// re-read under WATCH so a concurrent Validate is never overwritten by a stale decision.
func (r *RedisStore) DeleteWhere(ctx context.Context, pred func(s *Session) bool) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		deleted := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			deleted = false
			s, err := r.get(ctx, tx, key)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if !pred(s) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			deleted = err == nil
			return err
		}, key)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			// Touched while we looked at it; the next sweep decides again.
			continue
		case err != nil:
			return removed, fmt.Errorf("session: sweep: %w", err)
		}
		if deleted {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (r *RedisStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.DeleteWhere(ctx, func(s *Session) bool { return s.UserID == userID })
}
