package app

import (
	"strings"
	"sync"
	"time"
)

// AnswerRecord is the in-memory trace of one answered question within a
// session, kept alongside the persisted attempt answer for the final recap.
type AnswerRecord struct {
	QuestionID int64  `json:"question_id"`
	UserAnswer string `json:"user_answer"`
	Correct    string `json:"correct"`
	IsCorrect  bool   `json:"is_correct"`
}

// Session is one user's in-progress attempt. It is plain data so session
// stores can serialize it (the Redis store keeps it as JSON). Index only
// moves forward; a question is never revisited.
type Session struct {
	UserID    int64          `json:"user_id"`
	TestID    int64          `json:"test_id"`
	Index     int            `json:"index"`
	Correct   int            `json:"correct"`
	Answers   []AnswerRecord `json:"answers"`
	StartedAt time.Time      `json:"started_at"`
}

// NormalizeLabel reduces raw user input to a single option label, or ""
// when the input is not one of A-D.
func NormalizeLabel(raw string) string {
	label := strings.ToUpper(strings.TrimSpace(raw))
	switch label {
	case "A", "B", "C", "D":
		return label
	}
	return ""
}

// keyedLocks serializes quiz operations per user. A multi-worker transport
// may deliver two events for the same user concurrently; the engine assumes
// at most one in flight.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[int64]*sync.Mutex)}
}

func (k *keyedLocks) lock(userID int64) func() {
	k.mu.Lock()
	l, ok := k.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		k.locks[userID] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
