package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"exam-quiz-service/internal/config"
	"exam-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// QuizRepository abstracts how quizzes are stored (in-memory, Postgres, etc).
type QuizRepository interface {
	Create(ctx context.Context, quiz *domain.Quiz) error
	Get(ctx context.Context, quizID int64) (domain.Quiz, error)
	GetMany(ctx context.Context, quizIDs []int64) (map[int64]domain.Quiz, error)
	Update(ctx context.Context, quiz domain.Quiz) error
	Delete(ctx context.Context, quizID int64) error
	List(ctx context.Context) ([]domain.Quiz, error)
	ListByStatus(ctx context.Context, statuses ...domain.QuizStatus) ([]domain.Quiz, error)
}

// SubmissionRepository is the append-only submission ledger.
// Create assigns the identity and timestamp and fails with
// domain.ErrAlreadySubmitted when the (quiz, student) pair already exists.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *domain.Submission) error
	Get(ctx context.Context, id uuid.UUID) (domain.Submission, error)
	Exists(ctx context.Context, quizID, studentID int64) (bool, error)
	ListByStudent(ctx context.Context, studentID int64) ([]domain.Submission, error)
	ListByQuiz(ctx context.Context, quizID int64) ([]domain.Submission, error)
}

// QuestionResolver loads question data from the question store in one batch.
// Ids that do not resolve are absent from the result.
type QuestionResolver interface {
	Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error)
}

// QuestionGenerator picks question ids for a category.
type QuestionGenerator interface {
	Generate(ctx context.Context, category string, count int) ([]int64, error)
}

// SubmissionPublisher announces recorded submissions to live results viewers.
type SubmissionPublisher interface {
	PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error
}

const (
	defaultResolveTimeout  = 5 * time.Second
	defaultSubmissionGrace = 2 * time.Minute

	generatedDurationMinutes = 60
	generatedPassingScore    = 50
)

// QuizService contains the quiz lifecycle, scoring and reporting use cases.
type QuizService struct {
	quizzes     QuizRepository
	submissions SubmissionRepository
	questions   QuestionResolver
	generator   QuestionGenerator

	codec          AnswerCodec
	feed           *ResultsFeed
	publisher      SubmissionPublisher
	now            func() time.Time
	resolveTimeout time.Duration
	grace          time.Duration
}

type Option func(*QuizService)

// WithClock is mostly for tests that need deterministic time.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func WithAnswerCodec(codec AnswerCodec) Option {
	return func(s *QuizService) { s.codec = codec }
}

func WithResultsFeed(feed *ResultsFeed) Option {
	return func(s *QuizService) { s.feed = feed }
}

// WithSubmissionPublisher routes submission events through p instead of
// straight into the local results feed.
func WithSubmissionPublisher(p SubmissionPublisher) Option {
	return func(s *QuizService) { s.publisher = p }
}

func WithResolveTimeout(d time.Duration) Option {
	return func(s *QuizService) { s.resolveTimeout = d }
}

// WithSubmissionGrace accepts submissions arriving up to d after the end date.
func WithSubmissionGrace(d time.Duration) Option {
	return func(s *QuizService) { s.grace = d }
}

func NewQuizService(quizzes QuizRepository, submissions SubmissionRepository, questions QuestionResolver, generator QuestionGenerator, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:        quizzes,
		submissions:    submissions,
		questions:      questions,
		generator:      generator,
		codec:          JSONAnswerCodec{},
		now:            time.Now,
		resolveTimeout: defaultResolveTimeout,
		grace:          defaultSubmissionGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil && s.feed != nil {
		s.publisher = s.feed
	}
	return s
}

// QuizInput carries instructor-provided quiz fields for create and update.
type QuizInput struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	QuestionIDs     []int64    `json:"questionIds"`
	DurationMinutes *int       `json:"durationMinutes"`
	StartDate       *time.Time `json:"startDate"`
	EndDate         *time.Time `json:"endDate"`
	PassingScore    *int       `json:"passingScore"`
	Status          string     `json:"status"`
}

// GenerateInput asks the question store to pick questions for a new quiz.
type GenerateInput struct {
	Title    string `json:"title"`
	Category string `json:"categoryName"`
	Count    int    `json:"numQuestions"`
}

func (in QuizInput) validate(requireQuestions bool) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if requireQuestions && len(in.QuestionIDs) == 0 {
		return fmt.Errorf("%w: quiz must contain at least one question", domain.ErrInvalidInput)
	}
	if in.DurationMinutes == nil || *in.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
	}
	if in.PassingScore != nil && (*in.PassingScore < 0 || *in.PassingScore > 100) {
		return fmt.Errorf("%w: passing score must be between 0 and 100", domain.ErrInvalidInput)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: end date cannot be before start date", domain.ErrInvalidInput)
	}
	if in.Status != "" {
		if _, ok := domain.ParseQuizStatus(in.Status); !ok {
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, in.Status)
		}
	}
	return nil
}

// CreateQuiz validates and stores a quiz. Status defaults to PUBLISHED.
func (s *QuizService) CreateQuiz(ctx context.Context, in QuizInput) (domain.Quiz, error) {
	log := config.WithContext(ctx)
	if err := in.validate(true); err != nil {
		log.WithError(err).Warn("rejected quiz creation")
		return domain.Quiz{}, err
	}

	status := domain.QuizStatusPublished
	if in.Status != "" {
		status, _ = domain.ParseQuizStatus(in.Status)
	}
	quiz := domain.Quiz{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		QuestionIDs:     append([]int64(nil), in.QuestionIDs...),
		Status:          status,
		DurationMinutes: *in.DurationMinutes,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		PassingScore:    in.PassingScore,
	}
	if quiz.StartDate == nil && quiz.Status == domain.QuizStatusPublished {
		log.WithField("title", quiz.Title).Warn("published quiz has no start date; it is active immediately")
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "questions": len(quiz.QuestionIDs)}).Info("quiz created")
	return quiz, nil
}

// GenerateQuiz creates a published quiz from question ids chosen by the question store.
func (s *QuizService) GenerateQuiz(ctx context.Context, in GenerateInput) (domain.Quiz, error) {
	log := config.WithContext(ctx)
	if in.Count <= 0 {
		return domain.Quiz{}, fmt.Errorf("%w: number of questions must be positive", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Quiz{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if s.generator == nil {
		return domain.Quiz{}, fmt.Errorf("question generator is not configured: %w", domain.ErrDependencyUnavailable)
	}

	ids, err := s.generator.Generate(ctx, in.Category, in.Count)
	if err != nil {
		log.WithError(err).WithField("category", in.Category).Error("question generation failed")
		return domain.Quiz{}, err
	}
	if len(ids) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: %q", domain.ErrNoQuestionsForCategory, in.Category)
	}
	if len(ids) < in.Count {
		log.WithFields(logrus.Fields{"category": in.Category, "requested": in.Count, "received": len(ids)}).
			Warn("question store returned fewer questions than requested")
	}

	duration, passing := generatedDurationMinutes, generatedPassingScore
	return s.CreateQuiz(ctx, QuizInput{
		Title:           in.Title,
		QuestionIDs:     ids,
		DurationMinutes: &duration,
		PassingScore:    &passing,
		Status:          string(domain.QuizStatusPublished),
	})
}

// ListQuizzes returns every quiz, latest start date first; quizzes without a
// start date sort last, ties by id descending.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	quizzes, err := s.quizzes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		a, b := quizzes[i], quizzes[j]
		switch {
		case a.StartDate == nil && b.StartDate == nil:
		case a.StartDate == nil:
			return false
		case b.StartDate == nil:
			return true
		case !a.StartDate.Equal(*b.StartDate):
			return a.StartDate.After(*b.StartDate)
		}
		return a.ID > b.ID
	})

	now := s.now()
	summaries := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		summaries = append(summaries, domain.QuizSummary{Quiz: q, EffectiveStatus: q.EffectiveStatus(now)})
	}
	return summaries, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return s.quizzes.Get(ctx, quizID)
}

// UpdateQuiz replaces instructor fields. An empty question list keeps the current one.
func (s *QuizService) UpdateQuiz(ctx context.Context, quizID int64, in QuizInput) (domain.Quiz, error) {
	log := config.WithContext(ctx).WithField("quiz_id", quizID)

	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Status == domain.QuizStatusEnded {
		log.Warn("rejected update of ended quiz")
		return domain.Quiz{}, fmt.Errorf("%w: quiz %d has ended", domain.ErrForbidden, quizID)
	}
	if err := in.validate(false); err != nil {
		return domain.Quiz{}, err
	}

	quiz.Title = strings.TrimSpace(in.Title)
	quiz.Description = in.Description
	quiz.DurationMinutes = *in.DurationMinutes
	quiz.StartDate = in.StartDate
	quiz.EndDate = in.EndDate
	quiz.PassingScore = in.PassingScore
	if len(in.QuestionIDs) > 0 {
		quiz.QuestionIDs = append([]int64(nil), in.QuestionIDs...)
	}
	if in.Status != "" {
		quiz.Status, _ = domain.ParseQuizStatus(in.Status)
	}

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	log.Info("quiz updated")
	return quiz, nil
}

// DeleteQuiz removes a quiz unless it is currently active.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID int64) error {
	log := config.WithContext(ctx).WithField("quiz_id", quizID)

	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return err
	}
	if !quiz.Deletable(s.now()) {
		log.Warn("rejected deletion of active quiz")
		return fmt.Errorf("%w: quiz %d is active", domain.ErrForbidden, quizID)
	}
	if err := s.quizzes.Delete(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	log.Info("quiz deleted")
	return nil
}

// QuizSession returns the questions of an active quiz without their answers.
func (s *QuizService) QuizSession(ctx context.Context, quizID int64) (domain.QuizSession, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if len(quiz.QuestionIDs) == 0 {
		return domain.QuizSession{}, fmt.Errorf("%w: quiz %d has no questions", domain.ErrInconsistent, quizID)
	}
	if !quiz.Takeable(s.now()) {
		return domain.QuizSession{}, fmt.Errorf("%w: quiz %d is not active", domain.ErrForbidden, quizID)
	}

	resolved, err := s.resolve(ctx, quiz.QuestionIDs)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if len(resolved) == 0 {
		return domain.QuizSession{}, fmt.Errorf("quiz %d: %w", quizID, domain.ErrNoQuestionsResolved)
	}

	views := make([]domain.QuestionView, 0, len(quiz.QuestionIDs))
	for _, id := range quiz.QuestionIDs {
		q, ok := resolved[id]
		if !ok {
			continue
		}
		view := domain.QuestionView{ID: q.ID, Title: q.Title, Type: q.Type, Points: q.Points}
		if q.IsMCQ() {
			view.Options = q.OptionList()
		}
		views = append(views, view)
	}
	return domain.QuizSession{
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		DurationMinutes: quiz.DurationMinutes,
		Questions:       views,
	}, nil
}

// SubmitQuiz scores a student's responses and records the immutable submission.
// Nothing is written unless question resolution succeeded.
func (s *QuizService) SubmitQuiz(ctx context.Context, quizID, studentID int64, responses []domain.Response) (domain.Submission, error) {
	log := config.WithContext(ctx).WithFields(logrus.Fields{"quiz_id": quizID, "student_id": studentID})

	if responses == nil {
		return domain.Submission{}, fmt.Errorf("%w: responses are required", domain.ErrInvalidInput)
	}
	if studentID <= 0 {
		return domain.Submission{}, fmt.Errorf("%w: student id is required", domain.ErrInvalidInput)
	}

	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Submission{}, err
	}
	if len(quiz.QuestionIDs) == 0 {
		log.Error("quiz has no questions")
		return domain.Submission{}, fmt.Errorf("%w: quiz %d has no questions", domain.ErrInconsistent, quizID)
	}
	now := s.now()
	if !quiz.Takeable(now) && !quiz.Takeable(now.Add(-s.grace)) {
		log.WithField("status", quiz.EffectiveStatus(now)).Warn("rejected submission for quiz that is not active")
		return domain.Submission{}, fmt.Errorf("%w: quiz %d is not accepting submissions", domain.ErrForbidden, quizID)
	}

	exists, err := s.submissions.Exists(ctx, quizID, studentID)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("check submission: %w", err)
	}
	if exists {
		return domain.Submission{}, domain.ErrAlreadySubmitted
	}

	resolved, err := s.resolve(ctx, quiz.QuestionIDs)
	if err != nil {
		log.WithError(err).Error("question resolution failed; submission not recorded")
		return domain.Submission{}, err
	}
	if len(resolved) == 0 {
		return domain.Submission{}, fmt.Errorf("quiz %d: %w", quizID, domain.ErrNoQuestionsResolved)
	}
	if missing := unresolvedCount(quiz.QuestionIDs, resolved); missing > 0 {
		log.WithField("missing", missing).Warn("some quiz questions did not resolve; scoring without them")
	}

	result := Score(quiz.QuestionIDs, resolved, responses, quiz.PassingScore)
	blob, err := s.codec.Encode(result.Answers)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("encode answers: %w", err)
	}

	sub := domain.Submission{
		QuizID:              quizID,
		StudentID:           studentID,
		AchievedPoints:      result.Achieved,
		TotalPossiblePoints: result.Total,
		Answers:             blob,
		AnswersFormat:       s.codec.Name(),
		Outcome:             result.Outcome,
	}
	if err := s.submissions.Create(ctx, &sub); err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			return domain.Submission{}, err
		}
		return domain.Submission{}, fmt.Errorf("record submission: %w", err)
	}

	log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"score":         sub.AchievedPoints,
		"total":         sub.TotalPossiblePoints,
		"outcome":       sub.Outcome,
	}).Info("submission recorded")

	if s.publisher != nil {
		event := domain.SubmissionEvent{
			QuizID:       sub.QuizID,
			SubmissionID: sub.ID,
			StudentID:    sub.StudentID,
			Outcome:      sub.Outcome,
			SubmittedAt:  sub.SubmittedAt,
		}
		if err := s.publisher.PublishSubmission(ctx, event); err != nil {
			log.WithError(err).Warn("submission event not published")
		}
	}
	return sub, nil
}

// SubmissionReview shows a student their own answers next to the current question data.
func (s *QuizService) SubmissionReview(ctx context.Context, submissionID uuid.UUID, studentID int64) (domain.SubmissionReview, error) {
	log := config.WithContext(ctx).WithFields(logrus.Fields{"submission_id": submissionID, "student_id": studentID})

	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return domain.SubmissionReview{}, err
	}
	if sub.StudentID != studentID {
		log.WithField("owner_id", sub.StudentID).Warn("rejected access to another student's submission")
		return domain.SubmissionReview{}, fmt.Errorf("%w: submission belongs to another student", domain.ErrForbidden)
	}

	quiz, err := s.quizzes.Get(ctx, sub.QuizID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.SubmissionReview{}, fmt.Errorf("%w: quiz %d of submission %s is gone", domain.ErrInconsistent, sub.QuizID, sub.ID)
	}
	if err != nil {
		return domain.SubmissionReview{}, err
	}

	codec, err := AnswerCodecByName(sub.AnswersFormat)
	if err != nil {
		return domain.SubmissionReview{}, fmt.Errorf("%w: %v", domain.ErrInconsistent, err)
	}
	answers, err := codec.Decode(sub.Answers)
	if err != nil {
		log.WithError(err).Error("stored answers could not be decoded")
		return domain.SubmissionReview{}, fmt.Errorf("%w: %v", domain.ErrInconsistent, err)
	}

	resolved, err := s.resolve(ctx, quiz.QuestionIDs)
	if err != nil {
		return domain.SubmissionReview{}, err
	}

	reviews := make([]domain.QuestionReview, 0, len(quiz.QuestionIDs))
	for _, id := range quiz.QuestionIDs {
		q, ok := resolved[id]
		if !ok {
			continue
		}
		answer := answers[id]
		review := domain.QuestionReview{
			ID:            q.ID,
			Title:         q.Title,
			Type:          q.Type,
			Points:        q.Points,
			CorrectAnswer: q.CorrectAnswer,
			UserAnswer:    answer,
			IsCorrect:     answerMatches(answer, q.CorrectAnswer),
		}
		if q.IsMCQ() {
			review.Options = q.OptionList()
		}
		reviews = append(reviews, review)
	}

	return domain.SubmissionReview{
		SubmissionID:        sub.ID,
		QuizID:              quiz.ID,
		QuizTitle:           quiz.Title,
		DateTaken:           sub.SubmittedAt,
		AchievedPoints:      sub.AchievedPoints,
		TotalPossiblePoints: sub.TotalPossiblePoints,
		Questions:           reviews,
	}, nil
}

// Subscribe returns a channel that receives submission events for a quiz.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, quizID int64) (<-chan domain.SubmissionEvent, func(), error) {
	if s.feed == nil {
		return nil, nil, errors.New("results feed is not configured")
	}
	if _, err := s.quizzes.Get(ctx, quizID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(quizID)
	return ch, cancel, nil
}

func (s *QuizService) resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error) {
	if len(ids) == 0 {
		return map[int64]domain.Question{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	resolved, err := s.questions.Resolve(ctx, ids)
	if err != nil {
		if !errors.Is(err, domain.ErrDependencyUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, err)
		}
		return nil, err
	}
	return resolved, nil
}
