package memory

import (
	"context"
	"sort"
	"strings"

	"exam-quiz-service/internal/domain"
)

// StaticQuestionStore serves questions from a map (useful for tests/demos).
// Categories drive Generate; questions without a category are never generated.
type StaticQuestionStore struct {
	questions  map[int64]domain.Question
	categories map[string][]int64
}

func NewStaticQuestionStore(questions ...domain.Question) *StaticQuestionStore {
	s := &StaticQuestionStore{
		questions:  make(map[int64]domain.Question, len(questions)),
		categories: make(map[string][]int64),
	}
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	return s
}

// WithCategory files question ids under category for Generate.
func (s *StaticQuestionStore) WithCategory(category string, ids ...int64) *StaticQuestionStore {
	key := strings.ToLower(category)
	s.categories[key] = append(s.categories[key], ids...)
	return s
}

func (s *StaticQuestionStore) Resolve(_ context.Context, ids []int64) (map[int64]domain.Question, error) {
	out := make(map[int64]domain.Question, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

// Generate returns up to count ids of the category in ascending order.
func (s *StaticQuestionStore) Generate(_ context.Context, category string, count int) ([]int64, error) {
	ids := append([]int64(nil), s.categories[strings.ToLower(category)]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if count < len(ids) {
		ids = ids[:count]
	}
	return ids, nil
}
