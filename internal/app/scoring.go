package app

import (
	"strings"

	"exam-quiz-service/internal/domain"
)

// ScoreResult is the outcome of scoring one answer set.
type ScoreResult struct {
	Achieved int
	Total    int
	Outcome  domain.StudentStatus
	Answers  domain.AnswerSheet
}

// BuildAnswerSheet keeps trimmed answers and drops responses missing either the
// question id or the answer. A later response for the same question replaces an earlier one.
func BuildAnswerSheet(responses []domain.Response) domain.AnswerSheet {
	sheet := make(domain.AnswerSheet, len(responses))
	for _, r := range responses {
		if r.QuestionID == nil || r.Answer == nil {
			continue
		}
		sheet[*r.QuestionID] = strings.TrimSpace(*r.Answer)
	}
	return sheet
}

// Score grades responses against the resolved questions, walking questionIDs in
// quiz order. Questions missing from resolved count toward neither total.
func Score(questionIDs []int64, resolved map[int64]domain.Question, responses []domain.Response, passingScore *int) ScoreResult {
	sheet := BuildAnswerSheet(responses)

	achieved, total := 0, 0
	for _, id := range questionIDs {
		question, ok := resolved[id]
		if !ok {
			continue
		}
		points := question.Points
		if points < 0 {
			points = 0
		}
		total += points

		answer, answered := sheet[id]
		if answered && answerMatches(answer, question.CorrectAnswer) {
			achieved += points
		}
	}

	return ScoreResult{
		Achieved: achieved,
		Total:    total,
		Outcome:  outcomeFor(achieved, total, passingScore),
		Answers:  sheet,
	}
}

// answerMatches never credits a question that has no correct answer.
func answerMatches(submitted, correct string) bool {
	correct = strings.TrimSpace(correct)
	if correct == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(submitted), correct)
}

// unresolvedCount counts the distinct quiz question ids missing from resolved.
func unresolvedCount(questionIDs []int64, resolved map[int64]domain.Question) int {
	seen := make(map[int64]struct{}, len(questionIDs))
	missing := 0
	for _, id := range questionIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := resolved[id]; !ok {
			missing++
		}
	}
	return missing
}

// outcomeFor is PASSED/FAILED when a passing score applies, COMPLETED otherwise.
func outcomeFor(achieved, total int, passingScore *int) domain.StudentStatus {
	if passingScore == nil || total <= 0 {
		return domain.StudentStatusCompleted
	}
	if percentage(achieved, total) >= float64(*passingScore) {
		return domain.StudentStatusPassed
	}
	return domain.StudentStatusFailed
}

func percentage(achieved, total int) float64 {
	return float64(achieved) * 100.0 / float64(total)
}

// reconcileOutcome trusts a stored PASSED/FAILED and recomputes an ambiguous
// outcome against the quiz's current passing score.
func reconcileOutcome(sub domain.Submission, passingScore *int) domain.StudentStatus {
	switch sub.Outcome {
	case domain.StudentStatusPassed, domain.StudentStatusFailed:
		return sub.Outcome
	}
	return outcomeFor(sub.AchievedPoints, sub.TotalPossiblePoints, passingScore)
}
