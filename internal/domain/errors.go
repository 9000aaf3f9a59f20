package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a buzzer session has not been initialized.
	ErrSessionNotFound = errors.New("buzzer session not found")
	// ErrPlayerNotFound is returned for a player ID outside the roster.
	ErrPlayerNotFound = errors.New("player not in roster")
	// ErrInvalidQuestion indicates a question payload missing required fields.
	ErrInvalidQuestion = errors.New("question requires question and answer text")
	// ErrInvalidSetting indicates a settings patch with an out-of-range value.
	ErrInvalidSetting = errors.New("invalid quiz setting value")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrQuestionIndex indicates an index outside the question set.
	ErrQuestionIndex = errors.New("question index out of range")
)
