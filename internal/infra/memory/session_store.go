package memory

import (
	"context"
	"sync"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
)

// SessionStore is the in-process implementation of app.SessionStore. A
// defensive copy crosses the boundary in both directions so callers never
// share mutable state with the map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]app.Session
}

var _ app.SessionStore = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]app.Session)}
}

func (s *SessionStore) Get(_ context.Context, userID int64) (*app.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, false, nil
	}
	return &session, true, nil
}

func (s *SessionStore) Put(_ context.Context, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = *session
	return nil
}

func (s *SessionStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
