// Package redis holds the Redis-backed session store. Sessions survive a
// process restart, so a user mid-quiz can keep answering after a deploy.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
)

// SessionStore keeps one JSON-serialized session per user under
// "quiz:session:<userID>" with a sliding TTL. An expired key simply means
// the attempt is abandoned; the engine treats that as no session.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ app.SessionStore = (*SessionStore)(nil)

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, userID int64) (*app.Session, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var session app.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (s *SessionStore) Put(ctx context.Context, session *app.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.UserID), raw, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *SessionStore) key(userID int64) string {
	return "quiz:session:" + strconv.FormatInt(userID, 10)
}
