package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a registered participant, keyed by their stable Telegram identity.
// Re-registration upserts by TelegramID; rows are never deleted by normal flow.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	TelegramID   int64     `bun:"telegram_id,unique,notnull" json:"telegram_id"`
	FirstName    string    `bun:"first_name,notnull" json:"first_name"`
	LastName     string    `bun:"last_name,notnull" json:"last_name"`
	Phone        string    `bun:"phone,notnull" json:"phone"`
	School       string    `bun:"school,notnull" json:"school"`
	StudyCenter  string    `bun:"study_center" json:"study_center"`
	Region       string    `bun:"region,notnull" json:"region"`
	District     string    `bun:"district,notnull" json:"district"`
	RegisteredAt time.Time `bun:"registered_at,nullzero,default:current_timestamp" json:"registered_at"`
}

// Test is an authored multiple-choice test. QuestionCount is advisory:
// authoring may under- or over-fill it, and a test is playable as soon as
// one question exists.
type Test struct {
	bun.BaseModel `bun:"table:tests"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	Name             string    `bun:"name,notnull" json:"name"`
	QuestionCount    int       `bun:"question_count,notnull" json:"question_count"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	IsActive         bool      `bun:"is_active,notnull,default:true" json:"is_active"`
	SentToChannel    bool      `bun:"sent_to_channel,notnull,default:false" json:"sent_to_channel"`
	ChannelMessageID string    `bun:"channel_message_id" json:"channel_message_id"`
}

// Question belongs to exactly one test. Presentation order is insertion
// order (ascending id).
type Question struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	TestID        int64  `bun:"test_id,notnull" json:"test_id"`
	Prompt        string `bun:"prompt,notnull" json:"prompt"`
	OptionA       string `bun:"option_a,notnull" json:"option_a"`
	OptionB       string `bun:"option_b,notnull" json:"option_b"`
	OptionC       string `bun:"option_c,notnull" json:"option_c"`
	OptionD       string `bun:"option_d,notnull" json:"option_d"`
	CorrectOption string `bun:"correct_option,notnull" json:"correct_option"`
}

// Option returns the option text for a label in "A".."D", or "" otherwise.
func (q Question) Option(label string) string {
	switch label {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// AttemptAnswer is the append-only audit record of one answered question.
// Rows are never updated and never used for re-scoring.
type AttemptAnswer struct {
	bun.BaseModel `bun:"table:user_answers"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64     `bun:"user_id,notnull" json:"user_id"`
	TestID     int64     `bun:"test_id,notnull" json:"test_id"`
	QuestionID int64     `bun:"question_id,notnull" json:"question_id"`
	UserAnswer string    `bun:"user_answer,notnull" json:"user_answer"`
	IsCorrect  bool      `bun:"is_correct,notnull" json:"is_correct"`
	AnsweredAt time.Time `bun:"answered_at,nullzero,default:current_timestamp" json:"answered_at"`
}

// Result is the durable record of one completed attempt. Percentage is
// frozen at write time and must never be recomputed from question data.
// Duplicate (user, test) pairs are allowed; ranking tolerates repeats.
type Result struct {
	bun.BaseModel `bun:"table:results"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID       int64     `bun:"user_id,notnull" json:"user_id"`
	TestID       int64     `bun:"test_id,notnull" json:"test_id"`
	CorrectCount int       `bun:"correct_count,notnull" json:"correct_count"`
	TotalCount   int       `bun:"total_count,notnull" json:"total_count"`
	Percentage   float64   `bun:"percentage,notnull" json:"percentage"`
	CompletedAt  time.Time `bun:"completed_at,nullzero,default:current_timestamp" json:"completed_at"`

	// Joined fields for reporting views; not columns of results.
	TestName string `bun:"test_name,scanonly" json:"test_name,omitempty"`
}

// Percentage computes the frozen score for a finished attempt.
func ComputePercentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// TestLeaderboardRow is one entry of a per-test leaderboard, ordered by
// percentage descending with earlier completion winning ties.
type TestLeaderboardRow struct {
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	School       string    `json:"school"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	Percentage   float64   `json:"percentage"`
	CompletedAt  time.Time `json:"completed_at"`
}

// GlobalLeaderboardRow aggregates all of one user's results. AvgPercentage
// is the average of per-attempt percentages, not recomputed from totals.
type GlobalLeaderboardRow struct {
	TelegramID     int64   `json:"telegram_id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	School         string  `json:"school"`
	TotalCorrect   int     `json:"total_correct"`
	TotalQuestions int     `json:"total_questions"`
	AvgPercentage  float64 `json:"avg_percentage"`
}

// TodayStats counts activity since local midnight.
type TodayStats struct {
	ActiveUsers int `json:"active_users"`
	TestsTaken  int `json:"tests_taken"`
}

// TotalStats are the all-time counters shown on the admin panel.
type TotalStats struct {
	TotalUsers   int `json:"total_users"`
	TotalTests   int `json:"total_tests"`
	TotalResults int `json:"total_results"`
	SentTests    int `json:"sent_tests"`
}

// Tier buckets a percentage into a feedback category.
type Tier int

const (
	TierEncourage Tier = iota // below 50
	TierPassing               // >= 50
	TierGood                  // >= 70
	TierTop                   // >= 90
)

// TierFor maps a frozen percentage to its feedback tier.
func TierFor(percentage float64) Tier {
	switch {
	case percentage >= 90:
		return TierTop
	case percentage >= 70:
		return TierGood
	case percentage >= 50:
		return TierPassing
	default:
		return TierEncourage
	}
}
