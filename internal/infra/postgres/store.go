// Package postgres is the durable implementation of the persistence
// gateway: bun for typed CRUD, a pgx pool for the raw report SQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

type Store struct {
	db   *bun.DB
	pool *pgxpool.Pool
}

var _ app.Store = (*Store)(nil)

func NewStore(db *bun.DB, pool *pgxpool.Pool) *Store {
	return &Store{db: db, pool: pool}
}

// ---- users ----

func (s *Store) UpsertUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.NewInsert().
		Model(u).
		On("CONFLICT (telegram_id) DO UPDATE").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("phone = EXCLUDED.phone").
		Set("school = EXCLUDED.school").
		Set("study_center = EXCLUDED.study_center").
		Set("region = EXCLUDED.region").
		Set("district = EXCLUDED.district").
		Returning("id, registered_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.TelegramID, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	u := new(domain.User)
	err := s.db.NewSelect().Model(u).Where("telegram_id = ?", telegramID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.db.NewSelect().Model(&users).Order("id DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ---- tests ----

func (s *Store) CreateTest(ctx context.Context, name string, questionCount int) (*domain.Test, error) {
	test := &domain.Test{Name: name, QuestionCount: questionCount, IsActive: true}
	if _, err := s.db.NewInsert().Model(test).Returning("id, created_at").Exec(ctx); err != nil {
		return nil, fmt.Errorf("create test %q: %w", name, err)
	}
	return test, nil
}

func (s *Store) GetTest(ctx context.Context, id int64) (*domain.Test, error) {
	test := new(domain.Test)
	err := s.db.NewSelect().Model(test).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get test %d: %w", id, err)
	}
	return test, nil
}

func (s *Store) ListTests(ctx context.Context) ([]domain.Test, error) {
	var tests []domain.Test
	if err := s.db.NewSelect().Model(&tests).Order("id DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return tests, nil
}

func (s *Store) ListActiveTests(ctx context.Context) ([]domain.Test, error) {
	var tests []domain.Test
	err := s.db.NewSelect().Model(&tests).Where("is_active").Order("id DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tests: %w", err)
	}
	return tests, nil
}

func (s *Store) SetTestBroadcast(ctx context.Context, testID int64, channelMessageID string) error {
	res, err := s.db.NewUpdate().
		Model((*domain.Test)(nil)).
		Set("sent_to_channel = TRUE").
		Set("channel_message_id = ?", channelMessageID).
		Where("id = ?", testID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark test %d broadcast: %w", testID, err)
	}
	return requireRow(res)
}

func (s *Store) DeactivateTest(ctx context.Context, testID int64) error {
	res, err := s.db.NewUpdate().
		Model((*domain.Test)(nil)).
		Set("is_active = FALSE").
		Where("id = ?", testID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deactivate test %d: %w", testID, err)
	}
	return requireRow(res)
}

// DeleteTest removes the test with its questions, results and attempt
// answers in one transaction. Children go first to satisfy the foreign
// keys; any failure rolls the whole cascade back.
func (s *Store) DeleteTest(ctx context.Context, testID int64) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.AttemptAnswer)(nil)).Where("test_id = ?", testID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.Result)(nil)).Where("test_id = ?", testID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.Question)(nil)).Where("test_id = ?", testID).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*domain.Test)(nil)).Where("id = ?", testID).Exec(ctx)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("cascade delete of test %d rolled back: %w", testID, domain.ErrIntegrity)
}

// ---- questions ----

func (s *Store) AddQuestion(ctx context.Context, q *domain.Question) error {
	if q.Option(q.CorrectOption) == "" {
		return domain.ErrInvalidInput
	}
	if _, err := s.db.NewInsert().Model(q).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("add question to test %d: %w", q.TestID, err)
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context, testID int64) ([]domain.Question, error) {
	var questions []domain.Question
	err := s.db.NewSelect().Model(&questions).Where("test_id = ?", testID).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions of test %d: %w", testID, err)
	}
	return questions, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	q := new(domain.Question)
	err := s.db.NewSelect().Model(q).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return q, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	if q.Option(q.CorrectOption) == "" {
		return domain.ErrInvalidInput
	}
	res, err := s.db.NewUpdate().
		Model(q).
		Column("prompt", "option_a", "option_b", "option_c", "option_d", "correct_option").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question %d: %w", q.ID, err)
	}
	return requireRow(res)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*domain.Question)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question %d: %w", id, err)
	}
	return requireRow(res)
}

// ---- attempt answers ----

func (s *Store) SaveAnswer(ctx context.Context, a *domain.AttemptAnswer) error {
	if _, err := s.db.NewInsert().Model(a).Returning("id, answered_at").Exec(ctx); err != nil {
		return fmt.Errorf("save answer of user %d: %w", a.UserID, err)
	}
	return nil
}

func (s *Store) ListAttemptAnswers(ctx context.Context, userID, testID int64) ([]domain.AttemptAnswer, error) {
	var answers []domain.AttemptAnswer
	err := s.db.NewSelect().
		Model(&answers).
		Where("user_id = ?", userID).
		Where("test_id = ?", testID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers of user %d: %w", userID, err)
	}
	return answers, nil
}

// ---- results ----

func (s *Store) SaveResult(ctx context.Context, r *domain.Result) error {
	if _, err := s.db.NewInsert().Model(r).Returning("id, completed_at").Exec(ctx); err != nil {
		return fmt.Errorf("save result of user %d: %w", r.UserID, err)
	}
	return nil
}

func (s *Store) ListUserResults(ctx context.Context, userID int64) ([]domain.Result, error) {
	var results []domain.Result
	err := s.db.NewSelect().
		Model(&results).
		ColumnExpr("result.*").
		ColumnExpr("t.name AS test_name").
		Join("LEFT JOIN tests AS t ON t.id = result.test_id").
		Where("result.user_id = ?", userID).
		Order("result.completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results of user %d: %w", userID, err)
	}
	return results, nil
}

func (s *Store) ListResults(ctx context.Context) ([]domain.Result, error) {
	var results []domain.Result
	err := s.db.NewSelect().
		Model(&results).
		ColumnExpr("result.*").
		ColumnExpr("t.name AS test_name").
		Join("LEFT JOIN tests AS t ON t.id = result.test_id").
		Order("result.completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
