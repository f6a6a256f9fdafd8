package services

import (
	"sync"
	"time"

	"github.com/hrplatform/auth-service/internal/models"
	pkgauth "github.com/hrplatform/auth-service/pkg/auth"
)

// resetTokenStore holds outstanding password reset tokens. Tokens are single
// use: a consumed token stays in the table marked used, an expired token is
// dropped the next time it is looked at.
type resetTokenStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]*models.ResetTokenRecord
}

func newResetTokenStore(ttl time.Duration) *resetTokenStore {
	return &resetTokenStore{
		ttl:    ttl,
		tokens: make(map[string]*models.ResetTokenRecord),
	}
}

// Generate creates a new reset token for the email. No check is made that
// the email belongs to a real account; that is the caller's concern.
func (s *resetTokenStore) Generate(email string) (string, error) {
	token, err := pkgauth.GenerateResetToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &models.ResetTokenRecord{
		Email:     email,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	return token, nil
}

// Validate returns the email behind the token without side effects on valid
// tokens. Unknown or used tokens return ("", false); expired tokens are
// purged and return ("", false).
func (s *resetTokenStore) Validate(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return "", false
	}

	if time.Now().After(rec.ExpiresAt) {
		delete(s.tokens, token)
		return "", false
	}

	if rec.Used {
		return "", false
	}

	return rec.Email, true
}

// MarkUsed flags the token as consumed. The record is kept, not deleted.
func (s *resetTokenStore) MarkUsed(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.tokens[token]; ok {
		rec.Used = true
	}
}

// sweepExpired drops expired records to bound memory growth in long-running
// processes. Returns the number of records removed.
func (s *resetTokenStore) sweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, rec := range s.tokens {
		if now.After(rec.ExpiresAt) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}
