package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// SubmissionStore is an in-memory implementation of app.SubmissionRepository.
type SubmissionStore struct {
	clock func() time.Time

	mu          sync.RWMutex
	submissions map[uuid.UUID]domain.Submission
	byPair      map[pairKey]uuid.UUID
}

type pairKey struct {
	quizID    int64
	studentID int64
}

func NewSubmissionStore() *SubmissionStore {
	return NewSubmissionStoreWithClock(time.Now)
}

// NewSubmissionStoreWithClock allows deterministic timestamps in tests.
func NewSubmissionStoreWithClock(now func() time.Time) *SubmissionStore {
	return &SubmissionStore{
		clock:       now,
		submissions: make(map[uuid.UUID]domain.Submission),
		byPair:      make(map[pairKey]uuid.UUID),
	}
}

func (s *SubmissionStore) Create(_ context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{quizID: sub.QuizID, studentID: sub.StudentID}
	if _, ok := s.byPair[key]; ok {
		return domain.ErrAlreadySubmitted
	}
	sub.ID = uuid.New()
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.clock().UTC()
	}
	stored := *sub
	stored.Answers = append([]byte(nil), sub.Answers...)
	s.submissions[sub.ID] = stored
	s.byPair[key] = sub.ID
	return nil
}

func (s *SubmissionStore) Get(_ context.Context, id uuid.UUID) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *SubmissionStore) Exists(_ context.Context, quizID, studentID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPair[pairKey{quizID: quizID, studentID: studentID}]
	return ok, nil
}

// ListByStudent returns the student's submissions newest first.
func (s *SubmissionStore) ListByStudent(_ context.Context, studentID int64) ([]domain.Submission, error) {
	out := s.filter(func(sub domain.Submission) bool { return sub.StudentID == studentID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (s *SubmissionStore) ListByQuiz(_ context.Context, quizID int64) ([]domain.Submission, error) {
	return s.filter(func(sub domain.Submission) bool { return sub.QuizID == quizID }), nil
}

func (s *SubmissionStore) filter(keep func(domain.Submission) bool) []domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, 0)
	for _, sub := range s.submissions {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	return out
}
