package services

import (
	"sync"
	"time"

	"github.com/hrplatform/auth-service/internal/models"
	pkgauth "github.com/hrplatform/auth-service/pkg/auth"
)

// sessionStore is the in-memory registry of logical logins. Entries are
// created at login and removed at logout; token refresh does not touch them.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*models.Session),
	}
}

// Create registers a new session and returns its random id.
func (s *sessionStore) Create(userID int64, username string) (string, error) {
	id, err := pkgauth.GenerateSessionID()
	if err != nil {
		return "", err
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &models.Session{
		UserID:       userID,
		Username:     username,
		CreatedAt:    now,
		LastActivity: now,
	}

	return id, nil
}

// Get returns the session for id, or nil if none exists.
func (s *sessionStore) Get(id string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Remove deletes the session and reports whether it existed.
func (s *sessionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *sessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
