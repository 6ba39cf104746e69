package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuizStatus is the instructor-set lifecycle state of a quiz.
type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "DRAFT"
	QuizStatusPublished QuizStatus = "PUBLISHED"
	QuizStatusActive    QuizStatus = "ACTIVE"
	QuizStatusEnded     QuizStatus = "ENDED"
)

var AllQuizStatuses = []QuizStatus{
	QuizStatusDraft,
	QuizStatusPublished,
	QuizStatusActive,
	QuizStatusEnded,
}

func (s QuizStatus) IsValid() bool {
	for _, v := range AllQuizStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseQuizStatus accepts any letter case and surrounding whitespace.
func ParseQuizStatus(raw string) (QuizStatus, bool) {
	s := QuizStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// StudentStatus is the outcome of a single submission, plus the synthetic
// NOT_ATTEMPTED marker used by history views.
type StudentStatus string

const (
	StudentStatusCompleted    StudentStatus = "COMPLETED"
	StudentStatusPassed       StudentStatus = "PASSED"
	StudentStatusFailed       StudentStatus = "FAILED"
	StudentStatusNotAttempted StudentStatus = "NOT_ATTEMPTED"
)

// Quiz is owned by this service. QuestionIDs reference questions held by the
// external question store.
type Quiz struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	QuestionIDs     []int64    `json:"questionIds"`
	Status          QuizStatus `json:"status"`
	DurationMinutes int        `json:"durationMinutes"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	PassingScore    *int       `json:"passingScore,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// QuestionTypeMCQ marks multiple choice questions; every other type is free text.
const QuestionTypeMCQ = "MCQ"

// Question is read-only data resolved from the question store.
type Question struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Options       [4]string `json:"options"`
	Type          string    `json:"type"`
	CorrectAnswer string    `json:"correctAnswer"`
	Points        int       `json:"points"`
}

func (q Question) IsMCQ() bool {
	return strings.EqualFold(q.Type, QuestionTypeMCQ)
}

// OptionList returns the non-empty options in order.
func (q Question) OptionList() []string {
	options := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt != "" {
			options = append(options, opt)
		}
	}
	return options
}

// Response is one submitted answer. Either field may be missing in client input.
type Response struct {
	QuestionID *int64  `json:"id"`
	Answer     *string `json:"response"`
}

// AnswerSheet maps question id to the answer text the student submitted.
type AnswerSheet map[int64]string

// Submission is an immutable record of a scored attempt.
type Submission struct {
	ID                  uuid.UUID     `json:"id"`
	QuizID              int64         `json:"quizId"`
	StudentID           int64         `json:"studentId"`
	AchievedPoints      int           `json:"achievedPoints"`
	TotalPossiblePoints int           `json:"totalPossiblePoints"`
	SubmittedAt         time.Time     `json:"submittedAt"`
	Answers             []byte        `json:"-"`
	AnswersFormat       string        `json:"-"`
	Outcome             StudentStatus `json:"studentStatus"`
}

// QuizSummary is the instructor listing row.
type QuizSummary struct {
	Quiz
	EffectiveStatus QuizStatus `json:"effectiveStatus"`
}

// QuizInfo is a row of the available-quizzes and exam-history views.
type QuizInfo struct {
	QuizID          int64         `json:"id"`
	Title           string        `json:"title"`
	DurationMinutes int           `json:"durationMinutes"`
	StartDate       *time.Time    `json:"startDate,omitempty"`
	EndDate         *time.Time    `json:"endDate,omitempty"`
	PassingScore    *int          `json:"passingScore,omitempty"`
	Status          QuizStatus    `json:"status"`
	SubmissionID    *uuid.UUID    `json:"submissionId,omitempty"`
	DateTaken       *time.Time    `json:"dateTaken,omitempty"`
	Score           *int          `json:"score,omitempty"`
	TotalPoints     *int          `json:"totalPoints,omitempty"`
	StudentStatus   StudentStatus `json:"studentStatus,omitempty"`
}

// DistributionItem is one bucket of a pass/fail distribution.
type DistributionItem struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// StudentResult is one submission row inside QuizResults.
type StudentResult struct {
	SubmissionID uuid.UUID     `json:"submissionId"`
	StudentID    int64         `json:"userId"`
	Score        int           `json:"score"`
	Total        int           `json:"total"`
	Status       StudentStatus `json:"status"`
	SubmittedAt  time.Time     `json:"submittedAt"`
}

// QuizResults aggregates every submission of a quiz.
type QuizResults struct {
	QuizID                 int64              `json:"quizId"`
	QuizTitle              string             `json:"quizTitle"`
	PassingScore           *int               `json:"passingScore,omitempty"`
	TotalParticipants      int                `json:"totalParticipants"`
	AverageScorePercentage float64            `json:"averageScorePercentage"`
	ScoreDistribution      []DistributionItem `json:"scoreDistribution"`
	StudentResults         []StudentResult    `json:"studentResults"`
}

// QuestionView is a question as shown to a student taking the quiz.
type QuestionView struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
	Points  int      `json:"points"`
}

// QuizSession is what a student receives when opening a quiz.
type QuizSession struct {
	QuizID          int64          `json:"quizId"`
	Title           string         `json:"title"`
	DurationMinutes int            `json:"durationMinutes"`
	Questions       []QuestionView `json:"questions"`
}

// QuestionReview compares the stored answer against the current question data.
type QuestionReview struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Points        int      `json:"points"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	UserAnswer    string   `json:"userAnswer"`
	IsCorrect     bool     `json:"isCorrect"`
}

// SubmissionReview is the per-question breakdown of one submission.
type SubmissionReview struct {
	SubmissionID        uuid.UUID        `json:"submissionId"`
	QuizID              int64            `json:"quizId"`
	QuizTitle           string           `json:"quizTitle"`
	DateTaken           time.Time        `json:"dateTaken"`
	AchievedPoints      int              `json:"achievedPoints"`
	TotalPossiblePoints int              `json:"totalPossiblePoints"`
	Questions           []QuestionReview `json:"questions"`
}

// SubmissionEvent is published after a submission has been recorded.
type SubmissionEvent struct {
	QuizID       int64         `json:"quizId"`
	SubmissionID uuid.UUID     `json:"submissionId"`
	StudentID    int64         `json:"studentId"`
	Outcome      StudentStatus `json:"studentStatus"`
	SubmittedAt  time.Time     `json:"submittedAt"`
}
