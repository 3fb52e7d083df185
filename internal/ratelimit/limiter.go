package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Limiter applies a [Policy] to keys held in a [Store].
type Limiter struct {
	policy Policy
	store  Store
	log    *slog.Logger
	now    func() time.Time
}

func New(policy Policy, store Store, log *slog.Logger) *Limiter {
	return &Limiter{
		policy: policy,
		store:  store,
		log:    log,
		now:    time.Now,
	}
}

func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow counts one request for key. The error is non-nil only when the store failed;
// the caller decides whether to fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	var decision Decision
	err := l.store.Update(ctx, key, func(rec Record, exists bool) Record {
		next, d := l.policy.Apply(rec, exists, now)
		decision = d
		return next
	})
	if err != nil {
		return Decision{Allowed: true}, err
	}

	if !decision.Allowed {
		l.log.Debug("rate limit exceeded", "key", key, "retry_after", decision.RetryAfter)
	}
	return decision, nil
}

type sweeper interface {
	Sweep(now time.Time, retention time.Duration) int
}

// SweepJob drops stale records from stores that need it. Redis keys expire on their own.
func (l *Limiter) SweepJob(ctx context.Context) error {
	s, ok := l.store.(sweeper)
	if !ok {
		return nil
	}
	if n := s.Sweep(l.now(), l.policy.Retention()); n > 0 {
		l.log.Debug("swept rate limit records", "count", n)
	}
	return ctx.Err()
}
