package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// Report queries run over the pgx pool as raw SQL. Results join users on
// telegram_id: that is what results.user_id stores.

func (s *Store) TestLeaderboard(ctx context.Context, testID int64, limit int) ([]domain.TestLeaderboardRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.first_name, u.last_name, u.school,
		       r.correct_count, r.total_count, r.percentage, r.completed_at
		FROM results r
		JOIN users u ON u.telegram_id = r.user_id
		WHERE r.test_id = $1
		ORDER BY r.percentage DESC, r.completed_at ASC
		LIMIT $2`, testID, limit)
	if err != nil {
		return nil, fmt.Errorf("test leaderboard %d: %w", testID, err)
	}
	defer rows.Close()

	var board []domain.TestLeaderboardRow
	for rows.Next() {
		var row domain.TestLeaderboardRow
		if err := rows.Scan(&row.FirstName, &row.LastName, &row.School,
			&row.CorrectCount, &row.TotalCount, &row.Percentage, &row.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		board = append(board, row)
	}
	return board, rows.Err()
}

func (s *Store) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.GlobalLeaderboardRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.telegram_id, u.first_name, u.last_name, u.school,
		       SUM(r.correct_count), SUM(r.total_count), AVG(r.percentage)
		FROM results r
		JOIN users u ON u.telegram_id = r.user_id
		GROUP BY u.telegram_id, u.first_name, u.last_name, u.school
		HAVING SUM(r.total_count) > 0
		ORDER BY AVG(r.percentage) DESC, SUM(r.correct_count) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}
	defer rows.Close()

	var board []domain.GlobalLeaderboardRow
	for rows.Next() {
		var row domain.GlobalLeaderboardRow
		if err := rows.Scan(&row.TelegramID, &row.FirstName, &row.LastName, &row.School,
			&row.TotalCorrect, &row.TotalQuestions, &row.AvgPercentage); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		board = append(board, row)
	}
	return board, rows.Err()
}

func (s *Store) UserRank(ctx context.Context, telegramID int64) (int, error) {
	var rank int
	err := s.pool.QueryRow(ctx, `
		WITH ranked AS (
			SELECT user_id,
			       ROW_NUMBER() OVER (ORDER BY AVG(percentage) DESC, SUM(correct_count) DESC) AS pos
			FROM results
			GROUP BY user_id
			HAVING SUM(total_count) > 0
		)
		SELECT pos FROM ranked WHERE user_id = $1`, telegramID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNoResults
	}
	if err != nil {
		return 0, fmt.Errorf("rank of user %d: %w", telegramID, err)
	}
	return rank, nil
}

func (s *Store) TodayStats(ctx context.Context) (domain.TodayStats, error) {
	var stats domain.TodayStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT user_id), COUNT(*)
		FROM results
		WHERE completed_at::date = CURRENT_DATE`).Scan(&stats.ActiveUsers, &stats.TestsTaken)
	if err != nil {
		return domain.TodayStats{}, fmt.Errorf("today stats: %w", err)
	}
	return stats, nil
}

func (s *Store) TotalStats(ctx context.Context) (domain.TotalStats, error) {
	var stats domain.TotalStats
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM tests),
		       (SELECT COUNT(*) FROM results),
		       (SELECT COUNT(*) FROM tests WHERE sent_to_channel)`).
		Scan(&stats.TotalUsers, &stats.TotalTests, &stats.TotalResults, &stats.SentTests)
	if err != nil {
		return domain.TotalStats{}, fmt.Errorf("total stats: %w", err)
	}
	return stats, nil
}
