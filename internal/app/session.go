package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"quiz-buzzer-service/internal/domain"
)

// Session is the in-memory authoritative state of one buzzer quiz: the fixed
// roster, the current question, and the press queue. One mutex guards every
// mutation, so arrival order at the lock is the press-order tie-break.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu          sync.Mutex
	settings    domain.QuizSetting
	question    *domain.QuestionData
	active      bool
	showHint    bool
	showAnswer  bool
	players     []domain.Player
	pressOrder  []int
	subscribers map[chan domain.Event]struct{}
}

func newSession(id string, roster int, settings domain.QuizSetting) *Session {
	return newSessionWithClock(id, roster, settings, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id string, roster int, settings domain.QuizSetting, now func() time.Time) *Session {
	if roster < 1 {
		roster = 1
	}
	players := make([]domain.Player, roster)
	for i := range players {
		players[i] = domain.Player{
			ID:   i + 1,
			Name: fmt.Sprintf("Player %d", i+1),
		}
	}
	return &Session{
		id:          id,
		createdAt:   now(),
		now:         now,
		settings:    settings,
		players:     players,
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// startQuestion installs a new question and hard-resets press state. It is
// legal from any prior state.
func (s *Session) startQuestion(q domain.QuestionData) error {
	if q.Question == "" || q.Answer == "" {
		return domain.ErrInvalidQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.question = &q
	s.active = true
	s.showHint = false
	s.showAnswer = false
	s.resetPressesLocked()
	s.broadcastLocked(domain.StateEvent(s.snapshotLocked()))
	return nil
}

// endQuiz deactivates the question and clears the press queue. Scores and the
// question text stay. Callable from any state.
func (s *Session) endQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.resetPressesLocked()
	s.broadcastLocked(domain.StateEvent(s.snapshotLocked()))
}

// registerPress appends the player to the press queue. Presses while inactive
// and duplicate presses are benign races and are dropped without broadcast;
// the client-supplied timestamp is informational only and never used for
// ordering.
func (s *Session) registerPress(playerID int, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	player, err := s.playerLocked(playerID)
	if err != nil {
		return err
	}
	if player.Pressed {
		return nil
	}

	rank := len(s.pressOrder) + 1
	player.Pressed = true
	player.Order = &rank
	s.pressOrder = append(s.pressOrder, playerID)

	s.broadcastLocked(
		domain.Event{Type: domain.EventButtonPressed, PlayerID: playerID, Timestamp: timestamp},
		domain.StateEvent(s.snapshotLocked()),
	)
	return nil
}

// judge scores the front of the press queue. A correct answer terminates the
// question outright; an incorrect one retracts only the front player and
// promotes the rest.
func (s *Session) judge(correct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pressOrder) == 0 {
		log.Printf("session %s: judgment with empty press queue ignored", s.id)
		return
	}

	front := s.pressOrder[0]
	player, err := s.playerLocked(front)
	if err != nil {
		log.Printf("session %s: press queue references unknown player %d", s.id, front)
		return
	}

	if correct {
		player.Score += s.settings.CorrectPoints
		s.active = false
		s.resetPressesLocked()
		s.broadcastLocked(
			domain.Event{Type: domain.EventCorrectAnswer, PlayerID: front},
			domain.StateEvent(s.snapshotLocked()),
		)
		return
	}

	player.Score += s.settings.IncorrectPoints
	player.Pressed = false
	player.Order = nil
	s.pressOrder = s.pressOrder[1:]
	for i, id := range s.pressOrder {
		if p, err := s.playerLocked(id); err == nil {
			rank := i + 1
			p.Order = &rank
		}
	}
	s.broadcastLocked(
		domain.Event{Type: domain.EventIncorrectAnswer, PlayerID: front},
		domain.StateEvent(s.snapshotLocked()),
	)
}

func (s *Session) updateName(playerID int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.playerLocked(playerID)
	if err != nil {
		return err
	}
	player.Name = name
	s.broadcastLocked(domain.StateEvent(s.snapshotLocked()))
	return nil
}

func (s *Session) adjustScore(playerID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.playerLocked(playerID)
	if err != nil {
		return err
	}
	player.Score += delta
	s.broadcastLocked(
		domain.Event{Type: domain.EventScoreUpdated, PlayerID: playerID, NewScore: player.Score},
		domain.StateEvent(s.snapshotLocked()),
	)
	return nil
}

func (s *Session) setScore(playerID, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.playerLocked(playerID)
	if err != nil {
		return err
	}
	player.Score = score
	s.broadcastLocked(
		domain.Event{Type: domain.EventScoreUpdated, PlayerID: playerID, NewScore: player.Score},
		domain.StateEvent(s.snapshotLocked()),
	)
	return nil
}

// resetAllScores zeroes every score. Names and press state are untouched.
func (s *Session) resetAllScores() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.players {
		s.players[i].Score = 0
	}
	s.broadcastLocked(domain.StateEvent(s.snapshotLocked()))
}

func (s *Session) setShowHint(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showHint = show
	s.broadcastLocked(domain.StateEvent(s.snapshotLocked()))
}

func (s *Session) setShowAnswer(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showAnswer = show
	s.broadcastLocked(domain.StateEvent(s.snapshotLocked()))
}

// mergeSettings applies a partial settings update. The live roster size never
// changes; MaxPlayers is policy data for clients.
func (s *Session) mergeSettings(patch domain.QuizSettingPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.settings
	if err := patch.Apply(&merged); err != nil {
		return err
	}
	s.settings = merged
	s.broadcastLocked(domain.StateEvent(s.snapshotLocked()))
	return nil
}

// Snapshot returns a copy of the full session state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := domain.StateEvent(s.snapshotLocked())
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) playerLocked(playerID int) (*domain.Player, error) {
	if playerID < 1 || playerID > len(s.players) {
		return nil, domain.ErrPlayerNotFound
	}
	return &s.players[playerID-1], nil
}

// resetPressesLocked clears the press queue and every per-player press flag.
func (s *Session) resetPressesLocked() {
	s.pressOrder = nil
	for i := range s.players {
		s.players[i].Pressed = false
		s.players[i].Order = nil
	}
}

func (s *Session) broadcastLocked(events ...domain.Event) {
	for ch := range s.subscribers {
		for _, ev := range events {
			select {
			case ch <- ev:
			default:
				// Drop the oldest pending event so a slow client never
				// blocks the session.
				select {
				case <-ch:
				default:
				}
				ch <- ev
			}
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	players := make([]domain.Player, len(s.players))
	copy(players, s.players)
	for i := range players {
		if s.players[i].Order != nil {
			rank := *s.players[i].Order
			players[i].Order = &rank
		}
	}

	order := make([]int, len(s.pressOrder))
	copy(order, s.pressOrder)

	var question *domain.QuestionData
	if s.question != nil {
		q := *s.question
		question = &q
	}

	return domain.Snapshot{
		QuestionData: question,
		IsActive:     s.active,
		Players:      players,
		PressedOrder: order,
		ShowHint:     s.showHint,
		ShowAnswer:   s.showAnswer,
		Settings:     s.settings,
	}
}
