package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the kind shared by every unknown-identifier error.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks missing or out-of-range fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden marks operations the current quiz or submission state does not allow.
	ErrForbidden = errors.New("forbidden")
	// ErrDependencyUnavailable is returned when the question store cannot be reached or errors.
	ErrDependencyUnavailable = errors.New("question store unavailable")
	// ErrInconsistent marks stored data that references something no longer usable.
	ErrInconsistent = errors.New("inconsistent data")
	// ErrAlreadySubmitted is returned for a second submission of the same (quiz, student) pair.
	ErrAlreadySubmitted = errors.New("quiz already submitted by student")

	ErrQuizNotFound           = fmt.Errorf("quiz %w", ErrNotFound)
	ErrSubmissionNotFound     = fmt.Errorf("submission %w", ErrNotFound)
	ErrNoQuestionsForCategory = fmt.Errorf("questions for category %w", ErrNotFound)
	// ErrNoQuestionsResolved is returned when none of a quiz's questions could be resolved.
	ErrNoQuestionsResolved = fmt.Errorf("no questions resolved: %w", ErrDependencyUnavailable)
)
