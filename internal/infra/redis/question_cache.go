package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// QuestionResolver fetches question data from the question store.
type QuestionResolver interface {
	Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error)
}

const defaultFetchTimeout = 5 * time.Second

// QuestionCache keeps question payloads in Redis for a short TTL and falls
// back to the upstream resolver for misses.
// Each question is stored as JSON under question:{id}.
type QuestionCache struct {
	client   *redis.Client
	upstream QuestionResolver
	ttl      time.Duration
	log      logrus.FieldLogger
	sf       singleflight.Group

	fetchTimeout time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, upstream QuestionResolver, ttl time.Duration, log logrus.FieldLogger) *QuestionCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuestionCache{
		client:       client,
		upstream:     upstream,
		ttl:          ttl,
		log:          log,
		fetchTimeout: defaultFetchTimeout,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithFetchTimeout sets the deadline of the shared upstream fetch.
func (c *QuestionCache) WithFetchTimeout(d time.Duration) *QuestionCache {
	if d > 0 {
		c.fetchTimeout = d
	}
	return c
}

// Resolve reads cached questions with one MGET and fetches the rest upstream
// in a single batch. A Redis failure degrades to an upstream call.
func (c *QuestionCache) Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error) {
	resolved := make(map[int64]domain.Question, len(ids))
	ids = dedupe(ids)
	if len(ids) == 0 {
		return resolved, nil
	}

	missing := c.lookup(ctx, ids, resolved)
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
		c.store(fetchCtx, fetched)
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

func (c *QuestionCache) lookup(ctx context.Context, ids []int64, into map[int64]domain.Question) []int64 {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = questionKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.WithError(err).Warn("question cache read failed")
		return ids
	}

	var missing []int64
	for i, id := range ids {
		raw, ok := values[i].(string)
		if !ok {
			missing = append(missing, id)
			continue
		}
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			missing = append(missing, id)
			continue
		}
		into[id] = q
	}
	return missing
}

func (c *QuestionCache) store(ctx context.Context, questions map[int64]domain.Question) {
	if len(questions) == 0 || c.ttl <= 0 {
		return
	}
	ttl := c.ttlWithJitter()
	pipe := c.client.Pipeline()
	for id, q := range questions {
		payload, err := json.Marshal(q)
		if err != nil {
			continue
		}
		pipe.Set(ctx, questionKey(id), payload, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).Warn("question cache write failed")
	}
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func questionKey(id int64) string {
	return "question:" + strconv.FormatInt(id, 10)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func batchKey(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
