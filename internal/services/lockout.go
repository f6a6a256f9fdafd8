package services

import (
	"sync"
	"time"

	"github.com/hrplatform/auth-service/internal/models"
)

// lockoutTracker tracks consecutive failed logins per username and applies a
// temporary lockout once the attempt threshold is reached. State is
// process-local; a multi-instance deployment gets per-instance lockouts.
type lockoutTracker struct {
	mu          sync.Mutex
	maxAttempts int
	duration    time.Duration
	records     map[string]*models.FailedLoginRecord
}

func newLockoutTracker(maxAttempts int, duration time.Duration) *lockoutTracker {
	return &lockoutTracker{
		maxAttempts: maxAttempts,
		duration:    duration,
		records:     make(map[string]*models.FailedLoginRecord),
	}
}

// IsLocked reports whether the username is currently locked out. Expired
// lockouts are cleared lazily here, which also resets the attempt count.
func (t *lockoutTracker) IsLocked(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[username]
	if !ok || rec.LockedUntil == nil {
		return false
	}

	if time.Now().After(*rec.LockedUntil) {
		delete(t.records, username)
		return false
	}

	return true
}

// RecordFailure increments the failed-attempt count for the username,
// locking the account when the threshold is reached. Reports whether this
// failure triggered a lockout.
func (t *lockoutTracker) RecordFailure(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()

	rec, ok := t.records[username]
	if !ok {
		rec = &models.FailedLoginRecord{
			Count:        1,
			FirstAttempt: now,
			LastAttempt:  now,
		}
		t.records[username] = rec
	} else {
		rec.Count++
		rec.LastAttempt = now
	}

	// The threshold applies to the very first failure too, so a
	// one-attempt policy locks immediately.
	if rec.Count >= t.maxAttempts && rec.LockedUntil == nil {
		lockedUntil := now.Add(t.duration)
		rec.LockedUntil = &lockedUntil
		return true
	}

	return false
}

// Clear removes the failed-attempt record for the username.
func (t *lockoutTracker) Clear(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, username)
}

// AttemptCount returns the current failed-attempt count for the username.
func (t *lockoutTracker) AttemptCount(username string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[username]
	if !ok {
		return 0
	}
	return rec.Count
}

// sweepExpired removes records whose lockout has expired. Sub-threshold
// records are left alone: their count only resets on success or explicit
// clear. Returns the number of records removed.
func (t *lockoutTracker) sweepExpired(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for username, rec := range t.records {
		if rec.LockedUntil != nil && now.After(*rec.LockedUntil) {
			delete(t.records, username)
			removed++
		}
	}
	return removed
}
