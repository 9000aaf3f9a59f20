package redis

import (
	"context"
	"sync"
	"time"

	"quiz-buzzer-service/internal/app"
	"quiz-buzzer-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions still live in a local in-memory map so the in-process press
//     arbitration and broadcast logic keep their single-lock total order.
//   - Redis only marks session liveness for dashboards (and could be extended
//     to route cross-instance pub/sub).
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	roster   int
	defaults domain.QuizSetting

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, roster int, defaults domain.QuizSetting) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		roster:   roster,
		defaults: defaults,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		// best-effort liveness refresh
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
		return session
	}
	session := app.NewSession(sessionID, s.roster, s.defaults)
	s.sessions[sessionID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) key(sessionID string) string {
	return "buzzer:session:" + sessionID
}
