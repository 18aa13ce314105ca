package memory

import (
	"context"
	"testing"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
)

func TestSessionStoreCopiesOnPut(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	session := &app.Session{UserID: 1, TestID: 5, Index: 0}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	session.Index = 99

	got, ok, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected session")
	}
	if got.Index != 0 {
		t.Fatalf("store must hold its own copy, got index %d", got.Index)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	_ = store.Put(ctx, &app.Session{UserID: 1, TestID: 5})
	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, 1); ok {
		t.Fatalf("expected session gone")
	}
}
