package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// QuestionLoader fetches the ordered question list from a backing store.
type QuestionLoader interface {
	ListQuestions(ctx context.Context, testID int64) ([]domain.Question, error)
}

// QuestionCache caches question lists with TTL so a broadcast spike does
// not hammer the database. Concurrent misses for the same test collapse
// into a single load.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

var _ app.QuestionSource = (*QuestionCache)(nil)

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedQuestions),
	}
}

func (c *QuestionCache) Questions(ctx context.Context, testID int64) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[testID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.FormatInt(testID, 10), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[testID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.ListQuestions(ctx, testID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[testID] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops one test from the cache, e.g. after its questions were
// edited or the test deleted.
func (c *QuestionCache) Invalidate(testID int64) {
	c.mu.Lock()
	delete(c.cache, testID)
	c.mu.Unlock()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
