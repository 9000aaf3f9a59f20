package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-buzzer-service/internal/app"
	"quiz-buzzer-service/internal/domain"
	"quiz-buzzer-service/internal/infra/memory"
)

const session = "main"

func TestPressOrderMatchesArrival(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)

	// Timestamps are deliberately reversed: arrival order wins, not clocks.
	mustPress(t, service, 2, 300)
	mustPress(t, service, 1, 200)
	mustPress(t, service, 3, 100)

	snap := service.Snapshot(session)
	if got, want := snap.PressedOrder, []int{2, 1, 3}; !equalInts(got, want) {
		t.Fatalf("expected press order %v, got %v", want, got)
	}
	for rank, id := range snap.PressedOrder {
		player := snap.Players[id-1]
		if !player.Pressed {
			t.Fatalf("player %d should be pressed", id)
		}
		if player.Order == nil || *player.Order != rank+1 {
			t.Fatalf("player %d should have order %d, got %v", id, rank+1, player.Order)
		}
	}
}

func TestDuplicateAndInactivePressesIgnored(t *testing.T) {
	service := newTestService(t)

	// No question yet: press must be dropped.
	mustPress(t, service, 1, 1)
	if snap := service.Snapshot(session); len(snap.PressedOrder) != 0 {
		t.Fatalf("press while idle should be ignored, got %v", snap.PressedOrder)
	}

	startQuestion(t, service)
	mustPress(t, service, 1, 2)
	mustPress(t, service, 1, 3)

	snap := service.Snapshot(session)
	if !equalInts(snap.PressedOrder, []int{1}) {
		t.Fatalf("duplicate press should be suppressed, got %v", snap.PressedOrder)
	}

	service.EndQuiz(session)
	mustPress(t, service, 2, 4)
	if snap := service.Snapshot(session); len(snap.PressedOrder) != 0 {
		t.Fatalf("press after endQuiz should be ignored, got %v", snap.PressedOrder)
	}
}

func TestPressUnknownPlayer(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)

	if err := service.PressButton(session, 99, 1); err != domain.ErrPlayerNotFound {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if snap := service.Snapshot(session); len(snap.PressedOrder) != 0 {
		t.Fatalf("unknown player must not enter the queue, got %v", snap.PressedOrder)
	}
}

func TestCorrectAnswerEndsQuestion(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)
	mustPress(t, service, 1, 1)
	mustPress(t, service, 2, 2)

	service.Judge(session, true)

	snap := service.Snapshot(session)
	if snap.IsActive {
		t.Fatalf("correct answer must end the question")
	}
	if len(snap.PressedOrder) != 0 {
		t.Fatalf("press queue should be empty, got %v", snap.PressedOrder)
	}
	if got := snap.Players[0].Score; got != snap.Settings.CorrectPoints {
		t.Fatalf("front player should earn %d, got %d", snap.Settings.CorrectPoints, got)
	}
	if got := snap.Players[1].Score; got != 0 {
		t.Fatalf("queued player score should be untouched, got %d", got)
	}
	for _, p := range snap.Players {
		if p.Pressed || p.Order != nil {
			t.Fatalf("player %d press state should be cleared, got %+v", p.ID, p)
		}
	}
}

func TestIncorrectAnswerRetractsAndReranks(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)
	mustPress(t, service, 1, 1)
	mustPress(t, service, 2, 2)
	mustPress(t, service, 3, 3)

	service.Judge(session, false)

	snap := service.Snapshot(session)
	if !snap.IsActive {
		t.Fatalf("incorrect answer must keep the question active")
	}
	if !equalInts(snap.PressedOrder, []int{2, 3}) {
		t.Fatalf("expected queue [2 3], got %v", snap.PressedOrder)
	}
	if got := snap.Players[0].Score; got != snap.Settings.IncorrectPoints {
		t.Fatalf("retracted player should score %d, got %d", snap.Settings.IncorrectPoints, got)
	}
	if snap.Players[0].Pressed || snap.Players[0].Order != nil {
		t.Fatalf("retracted player press state should be cleared")
	}
	for rank, id := range snap.PressedOrder {
		if p := snap.Players[id-1]; p.Order == nil || *p.Order != rank+1 {
			t.Fatalf("player %d should be re-ranked to %d, got %v", id, rank+1, p.Order)
		}
	}
}

func TestJudgeEmptyQueueIsNoOp(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)

	ch, cancel := service.Subscribe(context.Background(), session)
	defer cancel()
	<-ch // initial snapshot

	before := service.Snapshot(session)
	service.Judge(session, true)
	service.Judge(session, false)
	after := service.Snapshot(session)

	if !after.IsActive || len(after.PressedOrder) != 0 {
		t.Fatalf("empty-queue judgment changed state: %+v", after)
	}
	for i := range before.Players {
		if before.Players[i].Score != after.Players[i].Score {
			t.Fatalf("scores changed on empty-queue judgment")
		}
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected no broadcast, got %v", ev.Type)
	default:
	}
}

func TestJudgmentScenario(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)
	mustPress(t, service, 1, 10)
	mustPress(t, service, 2, 20)
	mustPress(t, service, 3, 30)

	service.Judge(session, false)
	snap := service.Snapshot(session)
	if !equalInts(snap.PressedOrder, []int{2, 3}) {
		t.Fatalf("expected queue [2 3], got %v", snap.PressedOrder)
	}

	service.Judge(session, true)
	snap = service.Snapshot(session)
	if snap.IsActive || len(snap.PressedOrder) != 0 {
		t.Fatalf("expected question ended, got %+v", snap)
	}
	if got := snap.Players[1].Score; got != snap.Settings.CorrectPoints {
		t.Fatalf("player 2 should have %d points, got %d", snap.Settings.CorrectPoints, got)
	}
	if got := snap.Players[0].Score; got != snap.Settings.IncorrectPoints {
		t.Fatalf("player 1 should keep the incorrect penalty, got %d", got)
	}
}

func TestStartQuestionResetsPressState(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)
	mustPress(t, service, 1, 1)
	mustPress(t, service, 2, 2)
	service.SetShowHint(session, true)
	service.SetShowAnswer(session, true)

	startQuestion(t, service)

	snap := service.Snapshot(session)
	if len(snap.PressedOrder) != 0 {
		t.Fatalf("new question must clear the queue, got %v", snap.PressedOrder)
	}
	if snap.ShowHint || snap.ShowAnswer {
		t.Fatalf("new question must reset display flags")
	}
	for _, p := range snap.Players {
		if p.Pressed || p.Order != nil {
			t.Fatalf("player %d press state should be cleared", p.ID)
		}
	}
	if !snap.IsActive {
		t.Fatalf("new question should be active")
	}
}

func TestStartQuestionValidatesShape(t *testing.T) {
	service := newTestService(t)
	if err := service.StartQuestion(session, domain.QuestionData{Answer: "x"}); err != domain.ErrInvalidQuestion {
		t.Fatalf("expected ErrInvalidQuestion for empty question, got %v", err)
	}
	if err := service.StartQuestion(session, domain.QuestionData{Question: "x"}); err != domain.ErrInvalidQuestion {
		t.Fatalf("expected ErrInvalidQuestion for empty answer, got %v", err)
	}
}

func TestEndQuizPreservesScoresAndQuestion(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)
	mustPress(t, service, 1, 1)
	service.Judge(session, false)

	service.EndQuiz(session)
	service.EndQuiz(session) // idempotent

	snap := service.Snapshot(session)
	if snap.IsActive || len(snap.PressedOrder) != 0 {
		t.Fatalf("endQuiz should deactivate and clear queue, got %+v", snap)
	}
	if snap.QuestionData == nil {
		t.Fatalf("endQuiz must not clear the question text")
	}
	if got := snap.Players[0].Score; got != snap.Settings.IncorrectPoints {
		t.Fatalf("endQuiz must not touch scores, got %d", got)
	}
}

func TestRegistryOperations(t *testing.T) {
	service := newTestService(t)

	if err := service.UpdatePlayerName(session, 2, "Hana"); err != nil {
		t.Fatalf("update name: %v", err)
	}
	if err := service.UpdatePlayerName(session, 0, "nope"); err != domain.ErrPlayerNotFound {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if err := service.AdjustScore(session, 1, 7); err != nil {
		t.Fatalf("adjust score: %v", err)
	}
	if err := service.AdjustScore(session, 1, -10); err != nil {
		t.Fatalf("adjust score: %v", err)
	}
	if err := service.SetScore(session, 3, 42); err != nil {
		t.Fatalf("set score: %v", err)
	}

	snap := service.Snapshot(session)
	if snap.Players[1].Name != "Hana" {
		t.Fatalf("expected renamed player, got %q", snap.Players[1].Name)
	}
	if snap.Players[0].Score != -3 {
		t.Fatalf("expected score -3, got %d", snap.Players[0].Score)
	}
	if snap.Players[2].Score != 42 {
		t.Fatalf("expected score 42, got %d", snap.Players[2].Score)
	}
}

func TestResetAllScoresPreservesNamesAndPresses(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)
	mustPress(t, service, 1, 1)
	if err := service.UpdatePlayerName(session, 1, "Kei"); err != nil {
		t.Fatalf("update name: %v", err)
	}
	if err := service.SetScore(session, 2, 50); err != nil {
		t.Fatalf("set score: %v", err)
	}

	service.ResetAllScores(session)

	snap := service.Snapshot(session)
	for _, p := range snap.Players {
		if p.Score != 0 {
			t.Fatalf("player %d score should be 0, got %d", p.ID, p.Score)
		}
	}
	if snap.Players[0].Name != "Kei" {
		t.Fatalf("reset must keep names, got %q", snap.Players[0].Name)
	}
	if !snap.Players[0].Pressed {
		t.Fatalf("reset must not touch press state")
	}
}

func TestMergeSettings(t *testing.T) {
	service := newTestService(t)

	ten, minusOne := 10, -1
	if err := service.MergeSettings(session, domain.QuizSettingPatch{CorrectPoints: &ten, IncorrectPoints: &minusOne}); err != nil {
		t.Fatalf("merge settings: %v", err)
	}
	snap := service.Snapshot(session)
	if snap.Settings.CorrectPoints != 10 || snap.Settings.IncorrectPoints != -1 {
		t.Fatalf("settings not merged: %+v", snap.Settings)
	}
	// Untouched fields keep their values.
	if snap.Settings.AnswerTime != domain.DefaultSettings().AnswerTime {
		t.Fatalf("unpatched field changed: %+v", snap.Settings)
	}

	bad := -5
	if err := service.MergeSettings(session, domain.QuizSettingPatch{HintTime: &bad}); err != domain.ErrInvalidSetting {
		t.Fatalf("expected ErrInvalidSetting, got %v", err)
	}
}

func TestSubscribeReceivesPressEvents(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)

	ch, cancel := service.Subscribe(context.Background(), session)
	defer cancel()

	first := <-ch
	if first.Type != domain.EventState {
		t.Fatalf("expected initial state event, got %v", first.Type)
	}

	mustPress(t, service, 2, 123)

	pressed := <-ch
	if pressed.Type != domain.EventButtonPressed || pressed.PlayerID != 2 || pressed.Timestamp != 123 {
		t.Fatalf("expected buttonPressed for player 2, got %+v", pressed)
	}
	state := <-ch
	if state.Type != domain.EventState || state.State == nil {
		t.Fatalf("expected state broadcast after press, got %+v", state)
	}
	if !equalInts(state.State.PressedOrder, []int{2}) {
		t.Fatalf("broadcast snapshot should carry the press, got %v", state.State.PressedOrder)
	}
}

func TestStartQuestionFromSet(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if err := service.StartQuestionFromSet(ctx, session, "set-1", 1); err != nil {
		t.Fatalf("start from set: %v", err)
	}
	snap := service.Snapshot(session)
	if snap.QuestionData == nil || snap.QuestionData.Question != "Second question" {
		t.Fatalf("expected second question, got %+v", snap.QuestionData)
	}

	if err := service.StartQuestionFromSet(ctx, session, "set-1", 5); err != domain.ErrQuestionIndex {
		t.Fatalf("expected ErrQuestionIndex, got %v", err)
	}
	if err := service.StartQuestionFromSet(ctx, session, "missing", 0); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	service := newTestService(t)
	startQuestion(t, service)
	mustPress(t, service, 1, 1)

	other := service.Snapshot("green-room")
	if other.IsActive || len(other.PressedOrder) != 0 {
		t.Fatalf("second session should start idle, got %+v", other)
	}
}

func newTestService(t *testing.T) *app.BuzzerService {
	t.Helper()
	store := memory.NewSessionStore(3, domain.DefaultSettings())
	library := memory.NewQuestionSetRepository(memory.NewStaticQuestionSetLoader(map[string]domain.QuestionSet{
		"set-1": {
			ID:    "set-1",
			Title: "General knowledge",
			Questions: []domain.QuestionData{
				{Question: "First question", Answer: "A"},
				{Question: "Second question", Answer: "B"},
			},
		},
	}), 5*time.Minute)
	return app.NewBuzzerService(store, library)
}

func startQuestion(t *testing.T, service *app.BuzzerService) {
	t.Helper()
	err := service.StartQuestion(session, domain.QuestionData{
		Question: "What is 2 + 2?",
		Answer:   "4",
	})
	if err != nil {
		t.Fatalf("start question: %v", err)
	}
}

func mustPress(t *testing.T, service *app.BuzzerService, playerID int, ts int64) {
	t.Helper()
	if playerID >= 1 && playerID <= 3 {
		if err := service.PressButton(session, playerID, ts); err != nil {
			t.Fatalf("press player %d: %v", playerID, err)
		}
		return
	}
	_ = service.PressButton(session, playerID, ts)
}

func equalInts(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
