package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/logutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDuration   = 24 * time.Hour
	testInactivity = 30 * time.Minute
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type storeFactory func(t *testing.T, clock *fakeClock) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, _ *fakeClock) Store {
			return NewMemoryStore()
		},
		"redis": func(t *testing.T, clock *fakeClock) Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })

			s := NewRedisStore(client, testInactivity)
			s.now = clock.Now
			return s
		},
	}
}

func newTestManager(t *testing.T, factory storeFactory) (*Manager, Store, *fakeClock) {
	clock := newFakeClock()
	store := factory(t, clock)
	m := NewManager(store, testDuration, testInactivity, logutil.Discard())
	m.now = clock.Now
	return m, store, clock
}

func forEachStore(t *testing.T, fn func(t *testing.T, factory storeFactory)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory)
		})
	}
}

func TestManager_Create(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, store, clock := newTestManager(t, factory)
		ctx := context.Background()
		userID := uuid.New()

		s, err := m.Create(ctx, userID, Meta{UserAgent: "test-agent", ClientAddress: "10.0.0.1"})
		require.NoError(t, err)

		// 32 random bytes in unpadded base64url.
		assert.Len(t, s.ID, 43)
		assert.Equal(t, userID, s.UserID)
		assert.Equal(t, clock.Now().Add(testDuration), s.ExpiresAt)
		assert.Equal(t, clock.Now(), s.LastActivity)

		stored, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "test-agent", stored.UserAgent)
		assert.Equal(t, "10.0.0.1", stored.ClientAddress)

		other, err := m.Create(ctx, userID, Meta{})
		require.NoError(t, err)
		assert.NotEqual(t, s.ID, other.ID)
	})
}

func TestManager_ValidateUnknownAndMalformed(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, _, _ := newTestManager(t, factory)
		ctx := context.Background()

		_, err := m.Validate(ctx, "dGhpcy1kb2VzLW5vdC1leGlzdA")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = m.Validate(ctx, "")
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)

		_, err = m.Validate(ctx, "has spaces and $ymbols")
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})
}

func TestManager_ValidateExtendsExpiryMonotonically(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, _, clock := newTestManager(t, factory)
		ctx := context.Background()

		s, err := m.Create(ctx, uuid.New(), Meta{})
		require.NoError(t, err)

		clock.Advance(time.Minute)
		first, err := m.Validate(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, first.ExpiresAt.After(s.ExpiresAt))

		second, err := m.Validate(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, second.ExpiresAt.Before(first.ExpiresAt))

		clock.Advance(time.Second)
		third, err := m.Validate(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, third.ExpiresAt.After(second.ExpiresAt))
		assert.Equal(t, clock.Now(), third.LastActivity)
	})
}

func TestManager_ValidateExpired(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, store, clock := newTestManager(t, factory)
		// Inactivity longer than duration so only absolute expiry applies.
		m.inactivity = 48 * time.Hour
		if rs, ok := store.(*RedisStore); ok {
			rs.inactivity = 48 * time.Hour
		}
		ctx := context.Background()

		s, err := m.Create(ctx, uuid.New(), Meta{})
		require.NoError(t, err)

		// now >= expiresAt is expired, not only now > expiresAt.
		clock.Advance(testDuration)
		_, err = m.Validate(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrSessionExpired)

		_, err = store.Get(ctx, s.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = m.Validate(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestManager_ValidateRejectsIdleSession(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, _, clock := newTestManager(t, factory)
		ctx := context.Background()

		s, err := m.Create(ctx, uuid.New(), Meta{})
		require.NoError(t, err)

		clock.Advance(testInactivity + time.Second)
		_, err = m.Validate(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
		assert.True(t, domain.IsAuthError(err))
	})
}

func TestManager_RevokeIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, _, _ := newTestManager(t, factory)
		ctx := context.Background()

		s, err := m.Create(ctx, uuid.New(), Meta{})
		require.NoError(t, err)

		require.NoError(t, m.Revoke(ctx, s.ID))
		require.NoError(t, m.Revoke(ctx, s.ID))
		require.NoError(t, m.Revoke(ctx, ""))

		_, err = m.Validate(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestManager_RevokeUser(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, _, _ := newTestManager(t, factory)
		ctx := context.Background()
		alice, bob := uuid.New(), uuid.New()

		a1, err := m.Create(ctx, alice, Meta{})
		require.NoError(t, err)
		a2, err := m.Create(ctx, alice, Meta{})
		require.NoError(t, err)
		b1, err := m.Create(ctx, bob, Meta{})
		require.NoError(t, err)

		n, err := m.RevokeUser(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		for _, id := range []string{a1.ID, a2.ID} {
			_, err = m.Validate(ctx, id)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		}
		_, err = m.Validate(ctx, b1.ID)
		assert.NoError(t, err)
	})
}

func TestManager_SweepRemovesIdleBeforeExpiry(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, store, clock := newTestManager(t, factory)
		ctx := context.Background()

		idle, err := m.Create(ctx, uuid.New(), Meta{})
		require.NoError(t, err)
		active, err := m.Create(ctx, uuid.New(), Meta{})
		require.NoError(t, err)

		clock.Advance(20 * time.Minute)
		_, err = m.Validate(ctx, active.ID)
		require.NoError(t, err)

		clock.Advance(15 * time.Minute)
		// idle: last activity 35m ago but expiresAt is still ~23h away.
		n, err := m.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.Get(ctx, idle.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.Get(ctx, active.ID)
		assert.NoError(t, err)
	})
}

func TestManager_SweepRemovesExpired(t *testing.T) {
	forEachStore(t, func(t *testing.T, factory storeFactory) {
		m, store, clock := newTestManager(t, factory)
		ctx := context.Background()

		s, err := m.Create(ctx, uuid.New(), Meta{})
		require.NoError(t, err)

		// Keep it active right up to expiry, then step past it.
		s.LastActivity = clock.Now().Add(testDuration)
		s.ExpiresAt = clock.Now().Add(time.Hour)
		_, err = store.Update(ctx, s.ID, func(rec *Session) bool {
			rec.ExpiresAt = s.ExpiresAt
			rec.LastActivity = s.LastActivity
			return true
		})
		require.NoError(t, err)

		clock.Advance(time.Hour + time.Second)
		n, err := m.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestManager_ConcurrentValidateAndRevoke(t *testing.T) {
	m, store, _ := newTestManager(t, storeFactories()["memory"])
	ctx := context.Background()

	s, err := m.Create(ctx, uuid.New(), Meta{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Validate(ctx, s.ID)
		}()
	}
	require.NoError(t, m.Revoke(ctx, s.ID))
	wg.Wait()

	// A Validate that lost the race must not have written the record back.
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
