package postgres

import (
	"context"
	"errors"
	"fmt"

	"exam-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	uniqueViolation = "23505"

	submissionColumns = `id, quiz_id, student_id, achieved_points, total_possible_points, submitted_at, answers, answers_format, student_status`
)

// SubmissionStore is the append-only submission ledger. Rows are never updated.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO quiz_submissions (id, quiz_id, student_id, achieved_points, total_possible_points, answers, answers_format, student_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING submitted_at`,
		sub.ID.String(), sub.QuizID, sub.StudentID, sub.AchievedPoints, sub.TotalPossiblePoints,
		sub.Answers, sub.AnswersFormat, string(sub.Outcome),
	).Scan(&sub.SubmittedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadySubmitted
	}
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, id uuid.UUID) (domain.Submission, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions WHERE id = $1`, id.String())
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *SubmissionStore) Exists(ctx context.Context, quizID, studentID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quiz_submissions WHERE quiz_id = $1 AND student_id = $2)`,
		quizID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

func (s *SubmissionStore) ListByStudent(ctx context.Context, studentID int64) ([]domain.Submission, error) {
	return s.query(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions
		WHERE student_id = $1 ORDER BY submitted_at DESC, id`, studentID)
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID int64) ([]domain.Submission, error) {
	return s.query(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions
		WHERE quiz_id = $1 ORDER BY submitted_at, id`, quizID)
}

func (s *SubmissionStore) query(ctx context.Context, sql string, args ...interface{}) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var (
		sub     domain.Submission
		id      string
		outcome string
	)
	err := row.Scan(&id, &sub.QuizID, &sub.StudentID, &sub.AchievedPoints, &sub.TotalPossiblePoints,
		&sub.SubmittedAt, &sub.Answers, &sub.AnswersFormat, &outcome)
	if err != nil {
		return domain.Submission{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("parse submission id: %w", err)
	}
	sub.ID = parsed
	sub.Outcome = domain.StudentStatus(outcome)
	return sub, nil
}
