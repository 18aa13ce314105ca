package memory

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

func TestUpsertUserKeepsRowID(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := &domain.User{TelegramID: 100, FirstName: "Ali", LastName: "Valiyev"}
	if err := store.UpsertUser(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	second := &domain.User{TelegramID: 100, FirstName: "Ali", LastName: "Karimov"}
	if err := store.UpsertUser(ctx, second); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected row id %d preserved, got %d", first.ID, second.ID)
	}

	got, err := store.GetUser(ctx, 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastName != "Karimov" {
		t.Fatalf("expected updated last name, got %q", got.LastName)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.GetUser(context.Background(), 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveTestsSkipsDeactivated(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	active, _ := store.CreateTest(ctx, "faol", 5)
	retired, _ := store.CreateTest(ctx, "eski", 5)
	if err := store.DeactivateTest(ctx, retired.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	tests, err := store.ListActiveTests(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(tests) != 1 || tests[0].ID != active.ID {
		t.Fatalf("expected only test %d, got %+v", active.ID, tests)
	}
}

func TestAddQuestionRejectsUnknownCorrectOption(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	test, _ := store.CreateTest(ctx, "t", 1)

	q := &domain.Question{TestID: test.ID, Prompt: "?", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "E"}
	if err := store.AddQuestion(ctx, q); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteTestCascades(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	test := seedTestWithQuestions(t, store, "o'chiriladigan", 2)
	keep := seedTestWithQuestions(t, store, "qoladigan", 1)

	registerUser(t, store, 10)
	saveResult(t, store, 10, test.ID, 2, 2)
	saveResult(t, store, 10, keep.ID, 1, 1)
	saveAnswer(t, store, 10, test.ID)

	if err := store.DeleteTest(ctx, test.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.GetTest(ctx, test.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected test gone, got %v", err)
	}
	questions, _ := store.ListQuestions(ctx, test.ID)
	if len(questions) != 0 {
		t.Fatalf("expected questions gone, got %d", len(questions))
	}
	results, _ := store.ListResults(ctx)
	if len(results) != 1 || results[0].TestID != keep.ID {
		t.Fatalf("expected only sibling result to survive, got %+v", results)
	}
	answers, _ := store.ListAttemptAnswers(ctx, 10, test.ID)
	if len(answers) != 0 {
		t.Fatalf("expected answers gone, got %d", len(answers))
	}
}

func TestDeleteTestFailedCascadeLeavesEverything(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	test := seedTestWithQuestions(t, store, "t", 2)
	registerUser(t, store, 10)
	saveResult(t, store, 10, test.ID, 1, 2)
	saveAnswer(t, store, 10, test.ID)

	store.DeleteHook = func(stage string) error {
		if stage == "results" {
			return errors.New("boom")
		}
		return nil
	}
	if err := store.DeleteTest(ctx, test.ID); !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}

	if _, err := store.GetTest(ctx, test.ID); err != nil {
		t.Fatalf("test must survive a failed cascade: %v", err)
	}
	questions, _ := store.ListQuestions(ctx, test.ID)
	if len(questions) != 2 {
		t.Fatalf("questions must survive, got %d", len(questions))
	}
	results, _ := store.ListResults(ctx)
	if len(results) != 1 {
		t.Fatalf("results must survive, got %d", len(results))
	}
	answers, _ := store.ListAttemptAnswers(ctx, 10, test.ID)
	if len(answers) != 1 {
		t.Fatalf("answers must survive, got %d", len(answers))
	}
}

func TestTestLeaderboardOrdersByScoreThenTime(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	store := NewStoreWithClock(clock.Now)
	ctx := context.Background()

	test := seedTestWithQuestions(t, store, "t", 2)
	registerUser(t, store, 1)
	registerUser(t, store, 2)
	registerUser(t, store, 3)

	// user 2 scored highest; users 1 and 3 tie, user 1 finished earlier.
	saveResult(t, store, 1, test.ID, 1, 2)
	clock.Advance(time.Minute)
	saveResult(t, store, 3, test.ID, 1, 2)
	clock.Advance(time.Minute)
	saveResult(t, store, 2, test.ID, 2, 2)

	rows, err := store.TestLeaderboard(ctx, test.ID, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].FirstName != "user-2" {
		t.Fatalf("expected user-2 first, got %q", rows[0].FirstName)
	}
	if rows[1].FirstName != "user-1" || rows[2].FirstName != "user-3" {
		t.Fatalf("tie must break by earlier completion: %q then %q", rows[1].FirstName, rows[2].FirstName)
	}
}

func TestGlobalLeaderboardAveragesFrozenPercentages(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	t1 := seedTestWithQuestions(t, store, "t1", 2)
	t2 := seedTestWithQuestions(t, store, "t2", 4)
	registerUser(t, store, 1)
	registerUser(t, store, 2)

	// user 1: 50% and 100% -> avg 75. user 2: single 80%.
	saveResult(t, store, 1, t1.ID, 1, 2)
	saveResult(t, store, 1, t2.ID, 4, 4)
	saveResult(t, store, 2, t2.ID, 4, 5)

	rows, err := store.GlobalLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TelegramID != 2 {
		t.Fatalf("expected user 2 on top, got %d", rows[0].TelegramID)
	}
	if rows[1].AvgPercentage != 75 {
		t.Fatalf("expected avg 75 for user 1, got %v", rows[1].AvgPercentage)
	}

	rank, err := store.UserRank(ctx, 1)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 2 {
		t.Fatalf("expected rank 2, got %d", rank)
	}
}

func TestGlobalLeaderboardTieBreaksByTotalCorrect(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	t1 := seedTestWithQuestions(t, store, "t1", 2)
	t2 := seedTestWithQuestions(t, store, "t2", 4)
	registerUser(t, store, 1)
	registerUser(t, store, 2)

	// Both average 50%; user 2 has more correct answers in total.
	saveResult(t, store, 1, t1.ID, 1, 2)
	saveResult(t, store, 2, t2.ID, 2, 4)

	rows, err := store.GlobalLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 || rows[0].TelegramID != 2 {
		t.Fatalf("tie must break by total correct, got %+v", rows)
	}
}

func TestUserRankWithoutResults(t *testing.T) {
	store := NewStore()
	registerUser(t, store, 1)
	if _, err := store.UserRank(context.Background(), 1); !errors.Is(err, domain.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestTodayStatsCountsDistinctUsers(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	store := NewStoreWithClock(clock.Now)

	test := seedTestWithQuestions(t, store, "t", 1)
	registerUser(t, store, 1)
	registerUser(t, store, 2)

	// Yesterday's attempt must not count.
	clock.Advance(-24 * time.Hour)
	saveResult(t, store, 2, test.ID, 1, 1)
	clock.Advance(24 * time.Hour)
	saveResult(t, store, 1, test.ID, 1, 1)
	saveResult(t, store, 1, test.ID, 0, 1)

	stats, err := store.TodayStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TestsTaken != 2 || stats.ActiveUsers != 1 {
		t.Fatalf("expected 2 attempts by 1 user today, got %+v", stats)
	}
}

func TestTotalStats(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	test := seedTestWithQuestions(t, store, "t", 1)
	seedTestWithQuestions(t, store, "t2", 1)
	registerUser(t, store, 1)
	saveResult(t, store, 1, test.ID, 1, 1)
	if err := store.SetTestBroadcast(ctx, test.ID, "msg-1"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	stats, err := store.TotalStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.TotalStats{TotalUsers: 1, TotalTests: 2, TotalResults: 1, SentTests: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestListUserResultsJoinsTestName(t *testing.T) {
	store := NewStore()

	test := seedTestWithQuestions(t, store, "Ona tili", 1)
	registerUser(t, store, 1)
	saveResult(t, store, 1, test.ID, 1, 1)

	results, err := store.ListUserResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 1 || results[0].TestName != "Ona tili" {
		t.Fatalf("expected joined test name, got %+v", results)
	}
}

// ---- helpers ----

type fakeClock struct{ now time.Time }

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func registerUser(t *testing.T, store *Store, telegramID int64) {
	t.Helper()
	u := &domain.User{
		TelegramID: telegramID,
		FirstName:  "user-" + strconv.FormatInt(telegramID, 10),
		LastName:   "test",
		Phone:      "+998900000000",
		School:     "1-maktab",
		Region:     "Toshkent",
		District:   "Chilonzor",
	}
	if err := store.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
}

func saveResult(t *testing.T, store *Store, userID, testID int64, correct, total int) {
	t.Helper()
	r := &domain.Result{
		UserID:       userID,
		TestID:       testID,
		CorrectCount: correct,
		TotalCount:   total,
		Percentage:   domain.ComputePercentage(correct, total),
	}
	if err := store.SaveResult(context.Background(), r); err != nil {
		t.Fatalf("save result: %v", err)
	}
}

func saveAnswer(t *testing.T, store *Store, userID, testID int64) {
	t.Helper()
	a := &domain.AttemptAnswer{UserID: userID, TestID: testID, QuestionID: 1, UserAnswer: "A", IsCorrect: true}
	if err := store.SaveAnswer(context.Background(), a); err != nil {
		t.Fatalf("save answer: %v", err)
	}
}

