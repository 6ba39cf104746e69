package memory

import (
	"context"
	"errors"
	"testing"

	"exam-quiz-service/internal/domain"
)

func TestQuizRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()

	quiz := domain.Quiz{Title: "Geography", QuestionIDs: []int64{1, 2}, Status: domain.QuizStatusPublished, DurationMinutes: 30}
	if err := repo.Create(ctx, &quiz); err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.ID != 1 || quiz.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned, got %+v", quiz)
	}

	got, err := repo.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.QuestionIDs[0] = 99
	again, _ := repo.Get(ctx, quiz.ID)
	if again.QuestionIDs[0] != 1 {
		t.Fatalf("expected stored quiz to be isolated from caller mutation")
	}

	got.Title = "World Geography"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ = repo.Get(ctx, quiz.ID)
	if again.Title != "World Geography" {
		t.Fatalf("expected updated title, got %q", again.Title)
	}

	if err := repo.Delete(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, quiz.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found on second delete, got %v", err)
	}
}

func TestQuizRepositoryListByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository(
		domain.Quiz{ID: 3, Status: domain.QuizStatusEnded},
		domain.Quiz{ID: 1, Status: domain.QuizStatusDraft},
		domain.Quiz{ID: 2, Status: domain.QuizStatusPublished},
	)

	quizzes, err := repo.ListByStatus(ctx, domain.QuizStatusPublished, domain.QuizStatusEnded)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != 2 || quizzes[1].ID != 3 {
		t.Fatalf("unexpected quizzes %+v", quizzes)
	}

	many, _ := repo.GetMany(ctx, []int64{1, 4})
	if len(many) != 1 {
		t.Fatalf("expected only existing ids, got %d", len(many))
	}

	next := domain.Quiz{Title: "new"}
	_ = repo.Create(ctx, &next)
	if next.ID != 4 {
		t.Fatalf("expected ids to continue after seed, got %d", next.ID)
	}
}
