package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"exam-quiz-service/internal/domain"
)

// QuizRepository keeps quizzes in a map (useful for tests/demos).
type QuizRepository struct {
	clock func() time.Time

	mu      sync.RWMutex
	nextID  int64
	quizzes map[int64]domain.Quiz
}

func NewQuizRepository(seed ...domain.Quiz) *QuizRepository {
	r := &QuizRepository{
		clock:   time.Now,
		quizzes: make(map[int64]domain.Quiz),
	}
	for _, q := range seed {
		r.quizzes[q.ID] = cloneQuiz(q)
		if q.ID > r.nextID {
			r.nextID = q.ID
		}
	}
	return r
}

func (r *QuizRepository) Create(_ context.Context, quiz *domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	quiz.ID = r.nextID
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = r.clock().UTC()
	}
	r.quizzes[quiz.ID] = cloneQuiz(*quiz)
	return nil
}

func (r *QuizRepository) Get(_ context.Context, quizID int64) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (r *QuizRepository) GetMany(_ context.Context, quizIDs []int64) (map[int64]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found := make(map[int64]domain.Quiz, len(quizIDs))
	for _, id := range quizIDs {
		if quiz, ok := r.quizzes[id]; ok {
			found[id] = cloneQuiz(quiz)
		}
	}
	return found, nil
}

func (r *QuizRepository) Update(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	r.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (r *QuizRepository) Delete(_ context.Context, quizID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.quizzes, quizID)
	return nil
}

func (r *QuizRepository) List(_ context.Context) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(nil), nil
}

func (r *QuizRepository) ListByStatus(_ context.Context, statuses ...domain.QuizStatus) ([]domain.Quiz, error) {
	want := make(map[domain.QuizStatus]struct{}, len(statuses))
	for _, s := range statuses {
		want[s] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(q domain.Quiz) bool {
		_, ok := want[q.Status]
		return ok
	}), nil
}

func (r *QuizRepository) sortedLocked(keep func(domain.Quiz) bool) []domain.Quiz {
	out := make([]domain.Quiz, 0, len(r.quizzes))
	for _, q := range r.quizzes {
		if keep == nil || keep(q) {
			out = append(out, cloneQuiz(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	q.QuestionIDs = append([]int64(nil), q.QuestionIDs...)
	return q
}
