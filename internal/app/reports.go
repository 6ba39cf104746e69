package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"exam-quiz-service/internal/config"
	"exam-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// unattemptedResolveLimit bounds concurrent question-store calls made while
// building one student's history.
const unattemptedResolveLimit = 4

// QuizResults aggregates all submissions of a quiz for the instructor.
func (s *QuizService) QuizResults(ctx context.Context, quizID int64) (domain.QuizResults, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.QuizResults{}, err
	}
	subs, err := s.submissions.ListByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResults{}, fmt.Errorf("list submissions: %w", err)
	}

	results := domain.QuizResults{
		QuizID:            quiz.ID,
		QuizTitle:         quiz.Title,
		PassingScore:      quiz.PassingScore,
		TotalParticipants: len(subs),
		ScoreDistribution: []domain.DistributionItem{},
		StudentResults:    []domain.StudentResult{},
	}
	if len(subs) == 0 {
		return results, nil
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})

	var (
		sum                       float64
		scored                    int
		passed, failed, completed int
	)
	for _, sub := range subs {
		if sub.TotalPossiblePoints > 0 {
			sum += percentage(sub.AchievedPoints, sub.TotalPossiblePoints)
			scored++
		}

		status := reconcileOutcome(sub, quiz.PassingScore)
		switch status {
		case domain.StudentStatusPassed:
			passed++
		case domain.StudentStatusFailed:
			failed++
		default:
			completed++
		}
		results.StudentResults = append(results.StudentResults, domain.StudentResult{
			SubmissionID: sub.ID,
			StudentID:    sub.StudentID,
			Score:        sub.AchievedPoints,
			Total:        sub.TotalPossiblePoints,
			Status:       status,
			SubmittedAt:  sub.SubmittedAt,
		})
	}
	if scored > 0 {
		results.AverageScorePercentage = math.Round(sum/float64(scored)*10) / 10
	}

	results.ScoreDistribution = append(results.ScoreDistribution,
		domain.DistributionItem{Label: "Passed", Value: passed},
		domain.DistributionItem{Label: "Failed", Value: failed},
	)
	if completed > 0 {
		results.ScoreDistribution = append(results.ScoreDistribution, domain.DistributionItem{Label: "Completed", Value: completed})
	}
	return results, nil
}

// ExamHistory lists a student's submissions plus every ended quiz they never
// attempted, most recent first.
func (s *QuizService) ExamHistory(ctx context.Context, studentID int64) ([]domain.QuizInfo, error) {
	log := config.WithContext(ctx).WithField("student_id", studentID)
	if studentID <= 0 {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrInvalidInput)
	}
	now := s.now()

	subs, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	quizIDs := make([]int64, 0, len(subs))
	submitted := make(map[int64]struct{}, len(subs))
	for _, sub := range subs {
		if _, seen := submitted[sub.QuizID]; !seen {
			quizIDs = append(quizIDs, sub.QuizID)
		}
		submitted[sub.QuizID] = struct{}{}
	}

	quizzes := map[int64]domain.Quiz{}
	if len(quizIDs) > 0 {
		if quizzes, err = s.quizzes.GetMany(ctx, quizIDs); err != nil {
			return nil, fmt.Errorf("load quizzes: %w", err)
		}
	}

	history := make([]domain.QuizInfo, 0, len(subs))
	for _, sub := range subs {
		quiz, ok := quizzes[sub.QuizID]
		if !ok {
			log.WithFields(logrus.Fields{"quiz_id": sub.QuizID, "submission_id": sub.ID}).
				Warn("quiz of submission not found; skipping history entry")
			continue
		}
		entry := quizInfo(quiz, now)
		subID, taken := sub.ID, sub.SubmittedAt
		score, total := sub.AchievedPoints, sub.TotalPossiblePoints
		entry.SubmissionID = &subID
		entry.DateTaken = &taken
		entry.Score = &score
		entry.TotalPoints = &total
		entry.StudentStatus = reconcileOutcome(sub, quiz.PassingScore)
		history = append(history, entry)
	}

	candidates, err := s.quizzes.ListByStatus(ctx, domain.QuizStatusPublished, domain.QuizStatusActive, domain.QuizStatusEnded)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	var unattempted []domain.Quiz
	for _, quiz := range candidates {
		if _, ok := submitted[quiz.ID]; ok {
			continue
		}
		if quiz.EffectiveStatus(now) == domain.QuizStatusEnded {
			unattempted = append(unattempted, quiz)
		}
	}

	entries := make([]domain.QuizInfo, len(unattempted))
	var g errgroup.Group
	g.SetLimit(unattemptedResolveLimit)
	for i, quiz := range unattempted {
		i, quiz := i, quiz
		g.Go(func() error {
			entry := quizInfo(quiz, now)
			entry.StudentStatus = domain.StudentStatusNotAttempted
			entry.DateTaken = quiz.EndDate
			if total, ok := s.totalPoints(ctx, quiz); ok {
				entry.TotalPoints = &total
			} else {
				log.WithField("quiz_id", quiz.ID).Warn("could not resolve questions for unattempted quiz; total points unknown")
			}
			entries[i] = entry
			return nil
		})
	}
	_ = g.Wait()
	history = append(history, entries...)

	sort.SliceStable(history, func(i, j int) bool {
		return relevantDate(history[i]).After(relevantDate(history[j]))
	})
	log.WithField("entries", len(history)).Debug("exam history built")
	return history, nil
}

// AvailableQuizzes lists published or active quizzes the student has not submitted yet.
func (s *QuizService) AvailableQuizzes(ctx context.Context, studentID int64) ([]domain.QuizInfo, error) {
	if studentID <= 0 {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrInvalidInput)
	}
	now := s.now()

	candidates, err := s.quizzes.ListByStatus(ctx, domain.QuizStatusPublished, domain.QuizStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	subs, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	submitted := make(map[int64]struct{}, len(subs))
	for _, sub := range subs {
		submitted[sub.QuizID] = struct{}{}
	}

	available := make([]domain.QuizInfo, 0, len(candidates))
	for _, quiz := range candidates {
		if _, ok := submitted[quiz.ID]; ok {
			continue
		}
		switch quiz.EffectiveStatus(now) {
		case domain.QuizStatusActive, domain.QuizStatusPublished:
			available = append(available, quizInfo(quiz, now))
		}
	}
	config.WithContext(ctx).WithFields(logrus.Fields{"student_id": studentID, "count": len(available)}).Debug("available quizzes listed")
	return available, nil
}

func (s *QuizService) totalPoints(ctx context.Context, quiz domain.Quiz) (int, bool) {
	if len(quiz.QuestionIDs) == 0 {
		return 0, true
	}
	resolved, err := s.resolve(ctx, quiz.QuestionIDs)
	if err != nil {
		return 0, false
	}
	total := 0
	for _, id := range quiz.QuestionIDs {
		if q, ok := resolved[id]; ok && q.Points > 0 {
			total += q.Points
		}
	}
	return total, true
}

func quizInfo(quiz domain.Quiz, now time.Time) domain.QuizInfo {
	return domain.QuizInfo{
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		DurationMinutes: quiz.DurationMinutes,
		StartDate:       quiz.StartDate,
		EndDate:         quiz.EndDate,
		PassingScore:    quiz.PassingScore,
		Status:          quiz.EffectiveStatus(now),
	}
}

func relevantDate(info domain.QuizInfo) time.Time {
	if info.DateTaken != nil {
		return *info.DateTaken
	}
	if info.EndDate != nil {
		return *info.EndDate
	}
	return time.Time{}
}
