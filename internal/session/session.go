// Package session issues and validates opaque session tokens with sliding
// expiry and an inactivity timeout.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by a Store when no record exists for an id.
	ErrNotFound = errors.New("session: not found")
	// ErrContention is returned when an optimistic update kept losing races.
	ErrContention = errors.New("session: too much contention")
)

type Session struct {
	ID            string    `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	LastActivity  time.Time `json:"last_activity"`
	UserAgent     string    `json:"user_agent,omitempty"`
	ClientAddress string    `json:"client_address,omitempty"`
}

// Meta is optional request context recorded on a new session.
type Meta struct {
	UserAgent     string
	ClientAddress string
}

// Stale reports whether s is past its absolute expiry or idle for longer than inactivity.
func (s *Session) Stale(now time.Time, inactivity time.Duration) bool {
	return s.ExpiresAt.Before(now) || s.LastActivity.Add(inactivity).Before(now)
}

// UpdateFunc mutates a session in place. Returning false deletes the record instead of saving it.
type UpdateFunc func(s *Session) (keep bool)

// Store holds session records. Every method is safe for concurrent use.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Update applies fn atomically with respect to every other Store call on the same id.
	// It returns the saved session, nil if fn asked for deletion, or ErrNotFound.
	Update(ctx context.Context, id string, fn UpdateFunc) (*Session, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	DeleteWhere(ctx context.Context, pred func(s *Session) bool) (int, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error)
}
