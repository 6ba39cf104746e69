package domain

import (
	"testing"
	"time"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		quiz Quiz
		want QuizStatus
	}{
		{"stored ended with future dates", Quiz{Status: QuizStatusEnded, StartDate: &future, EndDate: &future}, QuizStatusEnded},
		{"stored ended without dates", Quiz{Status: QuizStatusEnded}, QuizStatusEnded},
		{"active past end date", Quiz{Status: QuizStatusActive, EndDate: &past}, QuizStatusEnded},
		{"draft past end date", Quiz{Status: QuizStatusDraft, EndDate: &past}, QuizStatusEnded},
		{"published without start", Quiz{Status: QuizStatusPublished}, QuizStatusActive},
		{"published started", Quiz{Status: QuizStatusPublished, StartDate: &past, EndDate: &future}, QuizStatusActive},
		{"published upcoming", Quiz{Status: QuizStatusPublished, StartDate: &future}, QuizStatusPublished},
		{"active upcoming", Quiz{Status: QuizStatusActive, StartDate: &future}, QuizStatusPublished},
		{"published starts exactly now", Quiz{Status: QuizStatusPublished, StartDate: &now}, QuizStatusActive},
		{"published ends exactly now", Quiz{Status: QuizStatusPublished, EndDate: &now}, QuizStatusActive},
		{"draft unchanged", Quiz{Status: QuizStatusDraft, StartDate: &past}, QuizStatusDraft},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.quiz.EffectiveStatus(now); got != tc.want {
				t.Fatalf("EffectiveStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDeletableAndTakeable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	active := Quiz{Status: QuizStatusPublished}
	if active.Deletable(now) || !active.Takeable(now) {
		t.Fatalf("expected active quiz to be takeable and not deletable")
	}

	ended := Quiz{Status: QuizStatusActive, EndDate: &past}
	if !ended.Deletable(now) || ended.Takeable(now) {
		t.Fatalf("expected ended quiz to be deletable and not takeable")
	}
}

func TestParseQuizStatus(t *testing.T) {
	if s, ok := ParseQuizStatus(" published "); !ok || s != QuizStatusPublished {
		t.Fatalf("ParseQuizStatus = (%s, %v), want (PUBLISHED, true)", s, ok)
	}
	if _, ok := ParseQuizStatus("archived"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}
