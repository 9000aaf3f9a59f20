package memory

import (
	"sync"

	"quiz-buzzer-service/internal/app"
	"quiz-buzzer-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions are created on first use and live until process exit; a client
// disconnecting never removes one, since scores must outlive connections.
type SessionStore struct {
	roster   int
	defaults domain.QuizSetting

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(roster int, defaults domain.QuizSetting) *SessionStore {
	return &SessionStore{
		roster:   roster,
		defaults: defaults,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := app.NewSession(sessionID, s.roster, s.defaults)
	s.sessions[sessionID] = session
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}
