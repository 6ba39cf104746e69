package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"exam-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionResolver fetches question data from the question store.
type QuestionResolver interface {
	Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error)
}

// QuestionCache keeps resolved questions for a short TTL so that bursts of
// submissions for the same quiz share one upstream call.
type QuestionCache struct {
	upstream QuestionResolver
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group

	fetchTimeout time.Duration

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[int64]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

// defaultFetchTimeout bounds one shared upstream fetch.
const defaultFetchTimeout = 5 * time.Second

func NewQuestionCache(upstream QuestionResolver, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		upstream:     upstream,
		ttl:          ttl,
		clock:        time.Now,
		fetchTimeout: defaultFetchTimeout,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:        make(map[int64]cachedQuestion),
	}
}

// WithFetchTimeout sets the deadline of the shared upstream fetch.
func (c *QuestionCache) WithFetchTimeout(d time.Duration) *QuestionCache {
	if d > 0 {
		c.fetchTimeout = d
	}
	return c
}

// Resolve serves cached ids and fetches the rest in a single upstream batch.
func (c *QuestionCache) Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error) {
	resolved := make(map[int64]domain.Question, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	missing := c.lookup(ids, resolved)
	if len(missing) == 0 {
		return resolved, nil
	}

	// The shared fetch outlives any single caller; each caller still
	// stops waiting when its own context ends.
	ch := c.sf.DoChan(batchKey(missing), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		fetched, err := c.upstream.Resolve(fetchCtx, missing)
		if err != nil {
			return nil, err
		}
		expiresAt := c.clock().Add(c.ttlWithJitter())
		c.mu.Lock()
		for id, q := range fetched {
			c.cache[id] = cachedQuestion{question: q, expiresAt: expiresAt}
		}
		c.mu.Unlock()
		return fetched, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		for id, q := range res.Val.(map[int64]domain.Question) {
			resolved[id] = q
		}
		return resolved, nil
	}
}

func (c *QuestionCache) lookup(ids []int64, into map[int64]domain.Question) []int64 {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []int64
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			into[id] = entry.question
			continue
		}
		missing = append(missing, id)
	}
	return missing
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// batchKey identifies an id set regardless of order.
func batchKey(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
