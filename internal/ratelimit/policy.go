// Package ratelimit bounds request volume per client with a fixed-window
// counter and a cooldown block once the ceiling is exceeded.
package ratelimit

import "time"

// Record is the per-client counter state.
type Record struct {
	Count        int        `json:"count"`
	WindowStart  time.Time  `json:"window_start"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

// Blocked reports whether the record is in an active cooldown at now.
func (r Record) Blocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// Decision is the outcome of one request against a [Policy].
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	// ResetAt is when the current window ends. Zero while blocked.
	ResetAt time.Time
}

// Policy is the fixed-window configuration.
type Policy struct {
	MaxRequests   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Apply evaluates one request and returns the record to store and the decision.
// It is pure: the same inputs always give the same outputs.
//
// The window reset happens before the increment, so a request arriving after
// the window elapsed is counted against a fresh window.
func (p Policy) Apply(rec Record, exists bool, now time.Time) (Record, Decision) {
	if !exists {
		rec = Record{WindowStart: now}
	}

	if rec.Blocked(now) {
		return rec, Decision{Allowed: false, RetryAfter: rec.BlockedUntil.Sub(now)}
	}

	// A served-out block starts a fresh window: the first request after it counts as 1.
	if rec.BlockedUntil != nil {
		rec = Record{WindowStart: now}
	}

	if now.Sub(rec.WindowStart) > p.Window {
		rec.Count = 0
		rec.WindowStart = now
	}

	rec.Count++

	if rec.Count > p.MaxRequests {
		until := now.Add(p.BlockDuration)
		rec.BlockedUntil = &until
		return rec, Decision{Allowed: false, RetryAfter: p.BlockDuration}
	}

	return rec, Decision{
		Allowed:   true,
		Remaining: p.MaxRequests - rec.Count,
		ResetAt:   rec.WindowStart.Add(p.Window),
	}
}

// Retention is how long a record can still influence a decision after its last write.
func (p Policy) Retention() time.Duration {
	return p.Window + p.BlockDuration
}
