package domain

// Player is one fixed roster slot. IDs are 1-based and assigned at session
// creation; Name and Score are the only fields that survive a new question.
type Player struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Pressed bool   `json:"pressed"`
	// Order is the 1-based press rank for the current question, nil when the
	// player has not buzzed in.
	Order *int `json:"order"`
}

// QuestionData is the payload of a single question. Replaced wholesale when a
// new question starts, never partially mutated.
type QuestionData struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Hint     *string `json:"hint"`
}

// QuizSetting holds the policy knobs consumed by judgment and by client-side
// timers. HintTime and AnswerTime are seconds.
type QuizSetting struct {
	MaxPlayers      int `json:"maxPlayers"`
	HintTime        int `json:"hintTime"`
	AnswerTime      int `json:"answerTime"`
	CorrectPoints   int `json:"correctPoints"`
	IncorrectPoints int `json:"incorrectPoints"`
	// AnswerBreakPenalty is reserved: it is configurable and broadcast but no
	// judgment path consumes it yet.
	AnswerBreakPenalty int `json:"answerBreakPenalty"`
}

// QuizSettingPatch is a partial settings update; nil fields are left alone.
type QuizSettingPatch struct {
	MaxPlayers         *int `json:"maxPlayers" yaml:"maxPlayers"`
	HintTime           *int `json:"hintTime" yaml:"hintTime"`
	AnswerTime         *int `json:"answerTime" yaml:"answerTime"`
	CorrectPoints      *int `json:"correctPoints" yaml:"correctPoints"`
	IncorrectPoints    *int `json:"incorrectPoints" yaml:"incorrectPoints"`
	AnswerBreakPenalty *int `json:"answerBreakPenalty" yaml:"answerBreakPenalty"`
}

// Apply merges the patch into s field by field. Counts that are semantically
// non-negative are validated; point deltas may be negative.
func (p QuizSettingPatch) Apply(s *QuizSetting) error {
	if p.MaxPlayers != nil {
		if *p.MaxPlayers < 1 {
			return ErrInvalidSetting
		}
		s.MaxPlayers = *p.MaxPlayers
	}
	if p.HintTime != nil {
		if *p.HintTime < 0 {
			return ErrInvalidSetting
		}
		s.HintTime = *p.HintTime
	}
	if p.AnswerTime != nil {
		if *p.AnswerTime < 0 {
			return ErrInvalidSetting
		}
		s.AnswerTime = *p.AnswerTime
	}
	if p.CorrectPoints != nil {
		s.CorrectPoints = *p.CorrectPoints
	}
	if p.IncorrectPoints != nil {
		s.IncorrectPoints = *p.IncorrectPoints
	}
	if p.AnswerBreakPenalty != nil {
		if *p.AnswerBreakPenalty < 0 {
			return ErrInvalidSetting
		}
		s.AnswerBreakPenalty = *p.AnswerBreakPenalty
	}
	return nil
}

// DefaultSettings mirrors the values the buzzer controller shipped with.
func DefaultSettings() QuizSetting {
	return QuizSetting{
		MaxPlayers:         6,
		HintTime:           10,
		AnswerTime:         20,
		CorrectPoints:      10,
		IncorrectPoints:    -5,
		AnswerBreakPenalty: 0,
	}
}

// Snapshot is the full authoritative state pushed to every client after each
// mutation and on connect.
type Snapshot struct {
	QuestionData *QuestionData `json:"questionData"`
	IsActive     bool          `json:"isActive"`
	Players      []Player      `json:"players"`
	PressedOrder []int         `json:"pressedOrder"`
	ShowHint     bool          `json:"showHint"`
	ShowAnswer   bool          `json:"showAnswer"`
	Settings     QuizSetting   `json:"settings"`
}

// QuestionSet is a named, ordered list of prepared questions.
type QuestionSet struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuestionData `json:"questions"`
}

// QuestionSetInfo is the listing view of a set (no question bodies).
type QuestionSetInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
}
