package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/logutil"
	"github.com/KaiavN/Transac/pkg/crypto"
	"github.com/google/uuid"
)

const (
	tokenBytes = 32
	// Tokens are base64url without padding; anything longer is not ours.
	maxTokenLength = 128
)

type Manager struct {
	store      Store
	duration   time.Duration
	inactivity time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func NewManager(store Store, duration, inactivity time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		store:      store,
		duration:   duration,
		inactivity: inactivity,
		log:        log,
		now:        time.Now,
	}
}

// Duration is the sliding lifetime; cookies are issued with the same max age.
func (m *Manager) Duration() time.Duration {
	return m.duration
}

// Create stores a fresh session for userID and returns it.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID, meta Meta) (*Session, error) {
	token, err := crypto.GenerateToken(tokenBytes)
	if err != nil {
		return nil, logutil.LogAndWrapErr(m.log, "failed to generate session token", err)
	}

	now := m.now()
	s := Session{
		ID:            token,
		UserID:        userID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.duration),
		LastActivity:  now,
		UserAgent:     meta.UserAgent,
		ClientAddress: meta.ClientAddress,
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, logutil.LogAndWrapErr(m.log, "failed to save session", err, "user_id", userID)
	}

	m.log.Debug("session created", "user_id", userID)
	return &s, nil
}

// Validate checks the token and, on success, slides expiresAt and lastActivity to now.
// A session found expired or idle is deleted in the same atomic step.
func (m *Manager) Validate(ctx context.Context, id string) (*Session, error) {
	if !wellFormed(id) {
		return nil, domain.ErrSessionInvalid
	}

	expired := false
	s, err := m.store.Update(ctx, id, func(s *Session) bool {
		now := m.now()
		if !now.Before(s.ExpiresAt) || now.Sub(s.LastActivity) > m.inactivity {
			expired = true
			return false
		}
		s.ExpiresAt = now.Add(m.duration)
		s.LastActivity = now
		return true
	})

	switch {
	case errors.Is(err, ErrNotFound):
		return nil, domain.ErrUnauthenticated
	case err != nil:
		return nil, logutil.LogAndWrapErr(m.log, "failed to validate session", err)
	case expired || s == nil:
		return nil, logutil.DebugAndWrapErr(m.log, "session expired on use", domain.ErrSessionExpired)
	}

	return s, nil
}

// Revoke removes the session. Unknown or malformed ids are not an error.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if !wellFormed(id) {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return logutil.LogAndWrapErr(m.log, "failed to revoke session", err)
	}
	return nil
}

// RevokeUser removes every session belonging to userID and returns how many were removed.
func (m *Manager) RevokeUser(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		return n, logutil.LogAndWrapErr(m.log, "failed to revoke user sessions", err, "user_id", userID)
	}
	m.log.Info("revoked user sessions", "user_id", userID, "count", n)
	return n, nil
}

// Sweep deletes every session past expiresAt or idle past the inactivity timeout.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	n, err := m.store.DeleteWhere(ctx, func(s *Session) bool {
		return s.Stale(now, m.inactivity)
	})
	if err != nil {
		return n, fmt.Errorf("session sweep: %w", err)
	}
	if n > 0 {
		m.log.Info("swept stale sessions", "count", n)
	}
	return n, nil
}

// SweepJob adapts Sweep to worker.Job.
func (m *Manager) SweepJob(ctx context.Context) error {
	_, err := m.Sweep(ctx)
	return err
}

func wellFormed(id string) bool {
	if id == "" || len(id) > maxTokenLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
