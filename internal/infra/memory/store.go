package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// Store is the in-process implementation of the persistence gateway, used
// when no Postgres URL is configured and by unit tests. Report ordering
// matches the SQL implementation: deterministic and stable across calls.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	userSeq     int64
	testSeq     int64
	questionSeq int64
	answerSeq   int64
	resultSeq   int64

	users     map[int64]domain.User // keyed by telegram id
	tests     map[int64]domain.Test
	questions map[int64]domain.Question
	answers   []domain.AttemptAnswer
	results   []domain.Result

	// DeleteHook, when set, runs before each cascade stage of DeleteTest
	// ("questions", "results", "answers", "test"). An error aborts the
	// whole delete with nothing mutated. Test-only.
	DeleteHook func(stage string) error
}

var _ app.Store = (*Store)(nil)

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock is test-only for deterministic timestamps.
func NewStoreWithClock(clock func() time.Time) *Store {
	return &Store{
		clock:     clock,
		users:     make(map[int64]domain.User),
		tests:     make(map[int64]domain.Test),
		questions: make(map[int64]domain.Question),
	}
}

// ---- users ----

func (s *Store) UpsertUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.TelegramID]; ok {
		u.ID = existing.ID
	} else {
		s.userSeq++
		u.ID = s.userSeq
	}
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = s.clock()
	}
	s.users[u.TelegramID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, telegramID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[telegramID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

// ---- tests ----

func (s *Store) CreateTest(_ context.Context, name string, questionCount int) (*domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testSeq++
	test := domain.Test{
		ID:            s.testSeq,
		Name:          name,
		QuestionCount: questionCount,
		CreatedAt:     s.clock(),
		IsActive:      true,
	}
	s.tests[test.ID] = test
	return &test, nil
}

func (s *Store) GetTest(_ context.Context, id int64) (*domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTests(_ context.Context) ([]domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTestsLocked(func(domain.Test) bool { return true }), nil
}

func (s *Store) ListActiveTests(_ context.Context) ([]domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTestsLocked(func(t domain.Test) bool { return t.IsActive }), nil
}

func (s *Store) listTestsLocked(keep func(domain.Test) bool) []domain.Test {
	tests := make([]domain.Test, 0, len(s.tests))
	for _, t := range s.tests {
		if keep(t) {
			tests = append(tests, t)
		}
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].ID > tests[j].ID })
	return tests
}

func (s *Store) SetTestBroadcast(_ context.Context, testID int64, channelMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[testID]
	if !ok {
		return domain.ErrNotFound
	}
	t.SentToChannel = true
	t.ChannelMessageID = channelMessageID
	s.tests[testID] = t
	return nil
}

func (s *Store) DeactivateTest(_ context.Context, testID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[testID]
	if !ok {
		return domain.ErrNotFound
	}
	t.IsActive = false
	s.tests[testID] = t
	return nil
}

// DeleteTest cascades to questions, results and attempt answers in that
// order. The hook can fail any stage; nothing mutates until every stage
// has been cleared.
func (s *Store) DeleteTest(_ context.Context, testID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[testID]; !ok {
		return domain.ErrNotFound
	}

	for _, stage := range []string{"questions", "results", "answers", "test"} {
		if s.DeleteHook != nil {
			if err := s.DeleteHook(stage); err != nil {
				return domain.ErrIntegrity
			}
		}
	}

	for id, q := range s.questions {
		if q.TestID == testID {
			delete(s.questions, id)
		}
	}
	s.results = filterResults(s.results, func(r domain.Result) bool { return r.TestID != testID })
	s.answers = filterAnswers(s.answers, func(a domain.AttemptAnswer) bool { return a.TestID != testID })
	delete(s.tests, testID)
	return nil
}

// ---- questions ----

func (s *Store) AddQuestion(_ context.Context, q *domain.Question) error {
	if q.Option(q.CorrectOption) == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[q.TestID]; !ok {
		return domain.ErrNotFound
	}
	s.questionSeq++
	q.ID = s.questionSeq
	s.questions[q.ID] = *q
	return nil
}

func (s *Store) ListQuestions(_ context.Context, testID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.TestID == testID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &q, nil
}

func (s *Store) UpdateQuestion(_ context.Context, q *domain.Question) error {
	if q.Option(q.CorrectOption) == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[q.ID]
	if !ok {
		return domain.ErrNotFound
	}
	q.TestID = existing.TestID
	s.questions[q.ID] = *q
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.questions, id)
	return nil
}

// ---- attempt answers ----

func (s *Store) SaveAnswer(_ context.Context, a *domain.AttemptAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answerSeq++
	a.ID = s.answerSeq
	if a.AnsweredAt.IsZero() {
		a.AnsweredAt = s.clock()
	}
	s.answers = append(s.answers, *a)
	return nil
}

func (s *Store) ListAttemptAnswers(_ context.Context, userID, testID int64) ([]domain.AttemptAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	answers := make([]domain.AttemptAnswer, 0)
	for _, a := range s.answers {
		if a.UserID == userID && a.TestID == testID {
			answers = append(answers, a)
		}
	}
	return answers, nil
}

// ---- results ----

func (s *Store) SaveResult(_ context.Context, r *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultSeq++
	r.ID = s.resultSeq
	if r.CompletedAt.IsZero() {
		r.CompletedAt = s.clock()
	}
	s.results = append(s.results, *r)
	return nil
}

func (s *Store) ListUserResults(_ context.Context, userID int64) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.UserID == userID {
			results = append(results, s.withTestNameLocked(r))
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].CompletedAt.After(results[j].CompletedAt) })
	return results, nil
}

func (s *Store) ListResults(_ context.Context) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.Result, 0, len(s.results))
	for _, r := range s.results {
		results = append(results, s.withTestNameLocked(r))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].CompletedAt.After(results[j].CompletedAt) })
	return results, nil
}

func (s *Store) withTestNameLocked(r domain.Result) domain.Result {
	if t, ok := s.tests[r.TestID]; ok {
		r.TestName = t.Name
	}
	return r
}

// ---- reports ----

func (s *Store) TestLeaderboard(_ context.Context, testID int64, limit int) ([]domain.TestLeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]domain.TestLeaderboardRow, 0)
	for _, r := range s.results {
		if r.TestID != testID {
			continue
		}
		u, ok := s.users[r.UserID]
		if !ok {
			continue
		}
		rows = append(rows, domain.TestLeaderboardRow{
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			School:       u.School,
			CorrectCount: r.CorrectCount,
			TotalCount:   r.TotalCount,
			Percentage:   r.Percentage,
			CompletedAt:  r.CompletedAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Percentage != rows[j].Percentage {
			return rows[i].Percentage > rows[j].Percentage
		}
		return rows[i].CompletedAt.Before(rows[j].CompletedAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) GlobalLeaderboard(_ context.Context, limit int) ([]domain.GlobalLeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.globalRowsLocked()
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) UserRank(_ context.Context, telegramID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, row := range s.globalRowsLocked() {
		if row.TelegramID == telegramID {
			return i + 1, nil
		}
	}
	return 0, domain.ErrNoResults
}

// globalRowsLocked aggregates all results per user. AvgPercentage averages
// the frozen per-attempt percentages; users whose attempts cover zero
// questions are excluded. Ordering: avg desc, total correct desc, with
// telegram id ascending underneath so ties stay stable across calls.
func (s *Store) globalRowsLocked() []domain.GlobalLeaderboardRow {
	type agg struct {
		row   domain.GlobalLeaderboardRow
		count int
		sum   float64
	}
	byUser := make(map[int64]*agg)
	for _, r := range s.results {
		u, ok := s.users[r.UserID]
		if !ok {
			continue
		}
		a, ok := byUser[r.UserID]
		if !ok {
			a = &agg{row: domain.GlobalLeaderboardRow{
				TelegramID: u.TelegramID,
				FirstName:  u.FirstName,
				LastName:   u.LastName,
				School:     u.School,
			}}
			byUser[r.UserID] = a
		}
		a.row.TotalCorrect += r.CorrectCount
		a.row.TotalQuestions += r.TotalCount
		a.sum += r.Percentage
		a.count++
	}

	rows := make([]domain.GlobalLeaderboardRow, 0, len(byUser))
	for _, a := range byUser {
		if a.row.TotalQuestions == 0 {
			continue
		}
		a.row.AvgPercentage = a.sum / float64(a.count)
		rows = append(rows, a.row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TelegramID < rows[j].TelegramID })
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AvgPercentage != rows[j].AvgPercentage {
			return rows[i].AvgPercentage > rows[j].AvgPercentage
		}
		return rows[i].TotalCorrect > rows[j].TotalCorrect
	})
	return rows
}

func (s *Store) TodayStats(_ context.Context) (domain.TodayStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	today := s.clock().Format("2006-01-02")
	seen := make(map[int64]bool)
	stats := domain.TodayStats{}
	for _, r := range s.results {
		if r.CompletedAt.Format("2006-01-02") != today {
			continue
		}
		stats.TestsTaken++
		if !seen[r.UserID] {
			seen[r.UserID] = true
			stats.ActiveUsers++
		}
	}
	return stats, nil
}

func (s *Store) TotalStats(_ context.Context) (domain.TotalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.TotalStats{
		TotalUsers:   len(s.users),
		TotalTests:   len(s.tests),
		TotalResults: len(s.results),
	}
	for _, t := range s.tests {
		if t.SentToChannel {
			stats.SentTests++
		}
	}
	return stats, nil
}

func filterResults(in []domain.Result, keep func(domain.Result) bool) []domain.Result {
	out := in[:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterAnswers(in []domain.AttemptAnswer, keep func(domain.AttemptAnswer) bool) []domain.AttemptAnswer {
	out := in[:0]
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
