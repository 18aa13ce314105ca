package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	store := NewStore()
	test := seedTestWithQuestions(t, store, "Algebra", 3)
	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	questions, err := cache.Questions(context.Background(), test.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.Questions(context.Background(), test.ID); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheExpires(t *testing.T) {
	store := NewStore()
	test := seedTestWithQuestions(t, store, "Geometry", 1)
	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.Questions(context.Background(), test.ID); err != nil {
		t.Fatalf("questions: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Questions(context.Background(), test.ID); err != nil {
		t.Fatalf("questions after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheInvalidate(t *testing.T) {
	store := NewStore()
	test := seedTestWithQuestions(t, store, "History", 2)
	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.Questions(context.Background(), test.ID); err != nil {
		t.Fatalf("questions: %v", err)
	}
	cache.Invalidate(test.ID)
	if _, err := cache.Questions(context.Background(), test.ID); err != nil {
		t.Fatalf("questions after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuestionCachePropagatesLoaderError(t *testing.T) {
	loadErr := errors.New("backend down")
	cache := NewQuestionCache(failingLoader{err: loadErr}, time.Minute)

	if _, err := cache.Questions(context.Background(), 1); !errors.Is(err, loadErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) ListQuestions(ctx context.Context, testID int64) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.ListQuestions(ctx, testID)
}

type failingLoader struct{ err error }

func (l failingLoader) ListQuestions(context.Context, int64) ([]domain.Question, error) {
	return nil, l.err
}

func seedTestWithQuestions(t *testing.T, store *Store, name string, n int) *domain.Test {
	t.Helper()
	test, err := store.CreateTest(context.Background(), name, n)
	if err != nil {
		t.Fatalf("create test: %v", err)
	}
	for i := 0; i < n; i++ {
		q := &domain.Question{
			TestID:        test.ID,
			Prompt:        "savol",
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: "A",
		}
		if err := store.AddQuestion(context.Background(), q); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	return test
}
