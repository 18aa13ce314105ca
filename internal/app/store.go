package app

import (
	"context"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// Store is the persistence gateway: typed CRUD over the five entities plus
// the report queries. Every write is durable before the call returns.
// Implementations live in internal/infra (memory, postgres).
type Store interface {
	// Users. UpsertUser replaces an existing row with the same TelegramID.
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, telegramID int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// Tests. DeleteTest removes the test and its questions, results and
	// attempt answers in one atomic unit; a partial cascade is reported as
	// domain.ErrIntegrity and rolled back.
	CreateTest(ctx context.Context, name string, questionCount int) (*domain.Test, error)
	GetTest(ctx context.Context, id int64) (*domain.Test, error)
	ListTests(ctx context.Context) ([]domain.Test, error)
	ListActiveTests(ctx context.Context) ([]domain.Test, error)
	SetTestBroadcast(ctx context.Context, testID int64, channelMessageID string) error
	DeactivateTest(ctx context.Context, testID int64) error
	DeleteTest(ctx context.Context, testID int64) error

	// Questions, ordered by creation within their test.
	AddQuestion(ctx context.Context, q *domain.Question) error
	ListQuestions(ctx context.Context, testID int64) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (*domain.Question, error)
	UpdateQuestion(ctx context.Context, q *domain.Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	// Attempt answers (append-only audit trail).
	SaveAnswer(ctx context.Context, a *domain.AttemptAnswer) error
	ListAttemptAnswers(ctx context.Context, userID, testID int64) ([]domain.AttemptAnswer, error)

	// Results. Percentage is frozen by the caller at write time.
	SaveResult(ctx context.Context, r *domain.Result) error
	ListUserResults(ctx context.Context, userID int64) ([]domain.Result, error)
	ListResults(ctx context.Context) ([]domain.Result, error)

	// Reports. UserRank returns domain.ErrNoResults for users with no
	// completed attempts.
	TestLeaderboard(ctx context.Context, testID int64, limit int) ([]domain.TestLeaderboardRow, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]domain.GlobalLeaderboardRow, error)
	UserRank(ctx context.Context, telegramID int64) (int, error)
	TodayStats(ctx context.Context) (domain.TodayStats, error)
	TotalStats(ctx context.Context) (domain.TotalStats, error)
}

// SessionStore holds in-progress quiz sessions keyed by user. Sessions are
// ephemeral: losing them loses at most a not-yet-completed attempt.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, bool, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
}

// QuestionSource serves the ordered question list of a test. The cached
// implementation may return slightly stale data; stored results are never
// recomputed from it.
type QuestionSource interface {
	Questions(ctx context.Context, testID int64) ([]domain.Question, error)
}

// Invalidator drops a test's cached question list after its questions
// changed, so the next attempt sees fresh data instead of waiting out the
// TTL. A nil Invalidator disables invalidation.
type Invalidator interface {
	Invalidate(testID int64)
}

// Sender delivers a message to a user or channel. Fire-and-forget from the
// core's perspective: delivery failures are the transport's problem and
// must never fail the operation that triggered the send.
type Sender interface {
	Send(recipientID int64, text string, choices ...domain.Choice)
}
