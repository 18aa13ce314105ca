package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// QuestionView is the engine's output for one question: the question itself
// plus where the user is in the test.
type QuestionView struct {
	Number   int // 1-based
	Total    int
	Question domain.Question
}

// Summary is the completion payload of a finished attempt. Rank is the
// user's 1-based global position, 0 when unranked.
type Summary struct {
	Test       domain.Test
	Correct    int
	Total      int
	Percentage float64
	Rank       int
	Tier       domain.Tier
}

// Step is what the engine yields when presenting: exactly one of the next
// question or the completion summary.
type Step struct {
	Question *QuestionView
	Summary  *Summary
}

// Feedback reports the outcome of a single submitted answer.
type Feedback struct {
	Correct      bool
	CorrectLabel string
}

// Engine drives per-user quiz sessions: idle -> in_progress -> idle.
// All state transitions happen under a per-user lock.
type Engine struct {
	store     Store
	sessions  SessionStore
	questions QuestionSource
	now       func() time.Time
	locks     *keyedLocks
}

func NewEngine(store Store, sessions SessionStore, questions QuestionSource) *Engine {
	return NewEngineWithClock(store, sessions, questions, time.Now)
}

// NewEngineWithClock is test-only for deterministic timestamps.
func NewEngineWithClock(store Store, sessions SessionStore, questions QuestionSource, now func() time.Time) *Engine {
	return &Engine{
		store:     store,
		sessions:  sessions,
		questions: questions,
		now:       now,
		locks:     newKeyedLocks(),
	}
}

// Start opens a fresh session at question zero, silently replacing any
// session the user already has. A test with no questions completes
// immediately with a 0/0 summary.
func (e *Engine) Start(ctx context.Context, userID, testID int64) (Step, error) {
	test, err := e.store.GetTest(ctx, testID)
	if err != nil {
		return Step{}, err
	}
	if !test.IsActive {
		return Step{}, domain.ErrTestInactive
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	session := &Session{UserID: userID, TestID: testID, StartedAt: e.now()}
	if err := e.sessions.Put(ctx, session); err != nil {
		return Step{}, fmt.Errorf("store session: %w", err)
	}
	return e.present(ctx, session)
}

// Active reports whether the user has an open session.
func (e *Engine) Active(ctx context.Context, userID int64) bool {
	_, ok, err := e.sessions.Get(ctx, userID)
	return err == nil && ok
}

// Present returns the current question (with progress) or, when the index
// has reached the question count, finishes the attempt.
func (e *Engine) Present(ctx context.Context, userID int64) (Step, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	session, ok, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return Step{}, err
	}
	if !ok {
		return Step{}, domain.ErrNoSession
	}
	return e.present(ctx, session)
}

// Submit validates and records one answer. Invalid input returns
// domain.ErrInvalidInput with no state change and nothing persisted; the
// caller re-prompts. When the question list shrank below the session index
// it returns domain.ErrAttemptStale and the caller should present, which
// finishes the attempt. On success the attempt answer is persisted before
// the index advances, and the caller presents the next step.
func (e *Engine) Submit(ctx context.Context, userID int64, raw string) (Feedback, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	session, ok, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return Feedback{}, err
	}
	if !ok {
		return Feedback{}, domain.ErrNoSession
	}

	label := NormalizeLabel(raw)
	if label == "" {
		return Feedback{}, domain.ErrInvalidInput
	}

	questions, err := e.questions.Questions(ctx, session.TestID)
	if err != nil {
		return Feedback{}, err
	}
	if session.Index >= len(questions) {
		return Feedback{}, domain.ErrAttemptStale
	}

	question := questions[session.Index]
	correct := label == question.CorrectOption

	answer := &domain.AttemptAnswer{
		UserID:     session.UserID,
		TestID:     session.TestID,
		QuestionID: question.ID,
		UserAnswer: label,
		IsCorrect:  correct,
		AnsweredAt: e.now(),
	}
	if err := e.store.SaveAnswer(ctx, answer); err != nil {
		return Feedback{}, fmt.Errorf("save answer: %w", err)
	}

	if correct {
		session.Correct++
	}
	session.Answers = append(session.Answers, AnswerRecord{
		QuestionID: question.ID,
		UserAnswer: label,
		Correct:    question.CorrectOption,
		IsCorrect:  correct,
	})
	session.Index++
	if err := e.sessions.Put(ctx, session); err != nil {
		return Feedback{}, fmt.Errorf("store session: %w", err)
	}

	return Feedback{Correct: correct, CorrectLabel: question.CorrectOption}, nil
}

// Cancel discards the user's session without persisting a result. It
// reports whether a session existed.
func (e *Engine) Cancel(ctx context.Context, userID int64) bool {
	unlock := e.locks.lock(userID)
	defer unlock()

	_, ok, err := e.sessions.Get(ctx, userID)
	if err != nil || !ok {
		return false
	}
	_ = e.sessions.Delete(ctx, userID)
	return true
}

func (e *Engine) present(ctx context.Context, session *Session) (Step, error) {
	questions, err := e.questions.Questions(ctx, session.TestID)
	if err != nil {
		return Step{}, err
	}
	if session.Index >= len(questions) {
		return e.finish(ctx, session, len(questions))
	}
	return Step{Question: &QuestionView{
		Number:   session.Index + 1,
		Total:    len(questions),
		Question: questions[session.Index],
	}}, nil
}

// finish freezes the percentage, persists the result and destroys the
// session. The session is gone regardless of whether the result write
// succeeds; a failed write loses the attempt rather than double-counting it.
func (e *Engine) finish(ctx context.Context, session *Session, total int) (Step, error) {
	test, err := e.store.GetTest(ctx, session.TestID)
	if err != nil {
		_ = e.sessions.Delete(ctx, session.UserID)
		return Step{}, err
	}

	percentage := domain.ComputePercentage(session.Correct, total)
	result := &domain.Result{
		UserID:       session.UserID,
		TestID:       session.TestID,
		CorrectCount: session.Correct,
		TotalCount:   total,
		Percentage:   percentage,
		CompletedAt:  e.now(),
	}

	_ = e.sessions.Delete(ctx, session.UserID)
	if err := e.store.SaveResult(ctx, result); err != nil {
		return Step{}, fmt.Errorf("save result: %w", err)
	}

	rank, err := e.store.UserRank(ctx, session.UserID)
	if err != nil && !errors.Is(err, domain.ErrNoResults) {
		// Ranking is presentation, not correctness; an unranked summary
		// beats failing a completed attempt.
		rank = 0
	}

	return Step{Summary: &Summary{
		Test:       *test,
		Correct:    session.Correct,
		Total:      total,
		Percentage: percentage,
		Rank:       rank,
		Tier:       domain.TierFor(percentage),
	}}, nil
}
