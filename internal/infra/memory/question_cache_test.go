package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"exam-quiz-service/internal/domain"
)

func TestQuestionCacheServesRepeatLookups(t *testing.T) {
	upstream := &countingResolver{QuestionResolver: NewStaticQuestionStore(sampleQuestions()...)}
	cache := NewQuestionCache(upstream, time.Minute)

	got, err := cache.Resolve(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 2 || upstream.calls != 1 {
		t.Fatalf("expected 2 questions from 1 call, got %d from %d", len(got), upstream.calls)
	}

	if _, err := cache.Resolve(context.Background(), []int64{2, 1}); err != nil {
		t.Fatalf("resolve 2: %v", err)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected cache hit, upstream calls %d", upstream.calls)
	}

	// Only the uncached id goes upstream.
	if _, err := cache.Resolve(context.Background(), []int64{1, 3}); err != nil {
		t.Fatalf("resolve 3: %v", err)
	}
	if upstream.calls != 2 || len(upstream.lastIDs) != 1 || upstream.lastIDs[0] != 3 {
		t.Fatalf("expected single-id upstream batch, got calls=%d ids=%v", upstream.calls, upstream.lastIDs)
	}
}

func TestQuestionCacheExpires(t *testing.T) {
	upstream := &countingResolver{QuestionResolver: NewStaticQuestionStore(sampleQuestions()...)}
	cache := NewQuestionCache(upstream, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, _ = cache.Resolve(context.Background(), []int64{1})
	now = now.Add(2 * time.Minute)
	_, _ = cache.Resolve(context.Background(), []int64{1})
	if upstream.calls != 2 {
		t.Fatalf("expected refetch after expiry, calls %d", upstream.calls)
	}
}

func TestQuestionCachePropagatesUpstreamFailure(t *testing.T) {
	cache := NewQuestionCache(failingResolver{}, time.Minute)
	if _, err := cache.Resolve(context.Background(), []int64{1}); !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	got, err := cache.Resolve(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result without upstream call, got %v %v", got, err)
	}
}

func TestQuestionCacheSharedFetchSurvivesCallerCancel(t *testing.T) {
	upstream := newGatedResolver(NewStaticQuestionStore(sampleQuestions()...))
	cache := NewQuestionCache(upstream, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := cache.Resolve(ctx, []int64{1, 2})
		errs <- err
	}()

	<-upstream.started
	cancel()
	if err := <-errs; !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency error for the cancelled caller, got %v", err)
	}

	close(upstream.release)
	waitFor(t, func() bool {
		return len(cache.lookup([]int64{1, 2}, map[int64]domain.Question{})) == 0
	})
	got, err := cache.Resolve(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("resolve after cancel: %v", err)
	}
	if len(got) != 2 || upstream.callCount() != 1 {
		t.Fatalf("expected the shared fetch to serve 2 questions from 1 call, got %d from %d", len(got), upstream.callCount())
	}
	if err := upstream.fetchErr(); err != nil {
		t.Fatalf("upstream fetch saw the caller's cancellation: %v", err)
	}
}

func waitFor(t *testing.T, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// gatedResolver blocks every fetch until release is closed.
type gatedResolver struct {
	QuestionResolver
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
	err   error
}

func newGatedResolver(inner QuestionResolver) *gatedResolver {
	return &gatedResolver{QuestionResolver: inner, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (r *gatedResolver) Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	select {
	case r.started <- struct{}{}:
	default:
	}
	<-r.release
	r.mu.Lock()
	r.err = ctx.Err()
	r.mu.Unlock()
	return r.QuestionResolver.Resolve(ctx, ids)
}

func (r *gatedResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *gatedResolver) fetchErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

type countingResolver struct {
	QuestionResolver
	calls   int
	lastIDs []int64
}

func (r *countingResolver) Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error) {
	r.calls++
	r.lastIDs = append([]int64(nil), ids...)
	return r.QuestionResolver.Resolve(ctx, ids)
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, []int64) (map[int64]domain.Question, error) {
	return nil, domain.ErrDependencyUnavailable
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Title: "Capital of France?", Type: "SHORT", CorrectAnswer: "Paris", Points: 10},
		{ID: 2, Title: "2 + 2?", Type: domain.QuestionTypeMCQ, Options: [4]string{"3", "4", "5", "6"}, CorrectAnswer: "4", Points: 5},
		{ID: 3, Title: "Largest ocean?", Type: "SHORT", CorrectAnswer: "Pacific", Points: 3},
	}
}
