package app

import (
	"context"
	"time"

	"quiz-buzzer-service/internal/domain"
)

// SessionRepository abstracts how buzzer sessions are stored (in-memory, Redis-tracked, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string) *Session
	Get(sessionID string) (*Session, bool)
}

// QuestionSetRepository loads prepared question sets (from cache/backing store).
type QuestionSetRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
	ListQuestionSets(ctx context.Context) ([]domain.QuestionSetInfo, error)
}

// BuzzerService contains the buzzer quiz use cases. All mutations funnel
// through the session's single lock, so concurrent client actions resolve to
// one total order.
type BuzzerService struct {
	sessions SessionRepository
	library  QuestionSetRepository
}

func NewBuzzerService(sessions SessionRepository, library QuestionSetRepository) *BuzzerService {
	return &BuzzerService{sessions: sessions, library: library}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, roster int, settings domain.QuizSetting) *Session {
	return newSession(id, roster, settings)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, roster int, settings domain.QuizSetting, now func() time.Time) *Session {
	return newSessionWithClock(id, roster, settings, now)
}

// StartQuestion begins a new question, resetting all press state.
func (s *BuzzerService) StartQuestion(sessionID string, q domain.QuestionData) error {
	return s.sessions.GetOrCreate(sessionID).startQuestion(q)
}

// StartQuestionFromSet looks up a prepared question and starts it.
func (s *BuzzerService) StartQuestionFromSet(ctx context.Context, sessionID, setID string, index int) error {
	set, err := s.library.GetQuestionSet(ctx, setID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(set.Questions) {
		return domain.ErrQuestionIndex
	}
	return s.sessions.GetOrCreate(sessionID).startQuestion(set.Questions[index])
}

// QuestionSets lists the available prepared sets.
func (s *BuzzerService) QuestionSets(ctx context.Context) ([]domain.QuestionSetInfo, error) {
	return s.library.ListQuestionSets(ctx)
}

// PressButton records a buzz. Presses while inactive or duplicates are
// silently dropped; only an out-of-roster ID is an error.
func (s *BuzzerService) PressButton(sessionID string, playerID int, timestamp int64) error {
	return s.sessions.GetOrCreate(sessionID).registerPress(playerID, timestamp)
}

// Judge marks the front of the press queue correct or incorrect.
func (s *BuzzerService) Judge(sessionID string, correct bool) {
	s.sessions.GetOrCreate(sessionID).judge(correct)
}

// EndQuiz deactivates the current question without touching scores.
func (s *BuzzerService) EndQuiz(sessionID string) {
	s.sessions.GetOrCreate(sessionID).endQuiz()
}

func (s *BuzzerService) UpdatePlayerName(sessionID string, playerID int, name string) error {
	return s.sessions.GetOrCreate(sessionID).updateName(playerID, name)
}

func (s *BuzzerService) AdjustScore(sessionID string, playerID, delta int) error {
	return s.sessions.GetOrCreate(sessionID).adjustScore(playerID, delta)
}

func (s *BuzzerService) SetScore(sessionID string, playerID, score int) error {
	return s.sessions.GetOrCreate(sessionID).setScore(playerID, score)
}

func (s *BuzzerService) ResetAllScores(sessionID string) {
	s.sessions.GetOrCreate(sessionID).resetAllScores()
}

func (s *BuzzerService) SetShowHint(sessionID string, show bool) {
	s.sessions.GetOrCreate(sessionID).setShowHint(show)
}

func (s *BuzzerService) SetShowAnswer(sessionID string, show bool) {
	s.sessions.GetOrCreate(sessionID).setShowAnswer(show)
}

// MergeSettings applies a partial settings update to the session policy.
func (s *BuzzerService) MergeSettings(sessionID string, patch domain.QuizSettingPatch) error {
	return s.sessions.GetOrCreate(sessionID).mergeSettings(patch)
}

// Snapshot returns the current full state of a session.
func (s *BuzzerService) Snapshot(sessionID string) domain.Snapshot {
	return s.sessions.GetOrCreate(sessionID).Snapshot()
}

// Subscribe returns a channel that receives events for a session, starting
// with one state snapshot. The caller must invoke the returned cancel function
// to avoid leaks.
func (s *BuzzerService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Event, func()) {
	return s.sessions.GetOrCreate(sessionID).subscribe()
}
