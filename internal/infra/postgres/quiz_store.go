package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const quizColumns = `id, title, description, question_ids, status, duration_minutes, start_date, end_date, passing_score, created_at`

// QuizStore persists quizzes in the quizzes table.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) Create(ctx context.Context, quiz *domain.Quiz) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO quizzes (title, description, question_ids, status, duration_minutes, start_date, end_date, passing_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		quiz.Title, quiz.Description, questionIDs(quiz.QuestionIDs), string(quiz.Status), quiz.DurationMinutes,
		quiz.StartDate, quiz.EndDate, quiz.PassingScore,
	).Scan(&quiz.ID, &quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) Get(ctx context.Context, quizID int64) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %d: %w", quizID, err)
	}
	return quiz, nil
}

func (s *QuizStore) GetMany(ctx context.Context, quizIDs []int64) (map[int64]domain.Quiz, error) {
	out := make(map[int64]domain.Quiz, len(quizIDs))
	if len(quizIDs) == 0 {
		return out, nil
	}
	quizzes, err := s.query(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = ANY($1)`, quizIDs)
	if err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		out[q.ID] = q
	}
	return out, nil
}

func (s *QuizStore) Update(ctx context.Context, quiz domain.Quiz) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE quizzes
		SET title = $2, description = $3, question_ids = $4, status = $5, duration_minutes = $6,
		    start_date = $7, end_date = $8, passing_score = $9
		WHERE id = $1`,
		quiz.ID, quiz.Title, quiz.Description, questionIDs(quiz.QuestionIDs), string(quiz.Status), quiz.DurationMinutes,
		quiz.StartDate, quiz.EndDate, quiz.PassingScore,
	)
	if err != nil {
		return fmt.Errorf("update quiz %d: %w", quiz.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) Delete(ctx context.Context, quizID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz %d: %w", quizID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) List(ctx context.Context) ([]domain.Quiz, error) {
	return s.query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY id`)
}

func (s *QuizStore) ListByStatus(ctx context.Context, statuses ...domain.QuizStatus) ([]domain.Quiz, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return s.query(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE status = ANY($1) ORDER BY id`, names)
}

func (s *QuizStore) query(ctx context.Context, sql string, args ...interface{}) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

// questionIDs keeps a nil slice from being written as NULL.
func questionIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz         domain.Quiz
		status       string
		passingScore *int32
		start, end   *time.Time
	)
	err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.QuestionIDs, &status,
		&quiz.DurationMinutes, &start, &end, &passingScore, &quiz.CreatedAt)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Status = domain.QuizStatus(status)
	quiz.StartDate, quiz.EndDate = start, end
	if passingScore != nil {
		p := int(*passingScore)
		quiz.PassingScore = &p
	}
	return quiz, nil
}
