package domain

import "time"

// EffectiveStatus derives the status a quiz has at now from its stored status
// and schedule. The result is never persisted.
func (q Quiz) EffectiveStatus(now time.Time) QuizStatus {
	if q.Status == QuizStatusEnded {
		return QuizStatusEnded
	}
	if q.EndDate != nil && now.After(*q.EndDate) {
		return QuizStatusEnded
	}
	switch q.Status {
	case QuizStatusPublished, QuizStatusActive:
		if q.StartDate == nil || !now.Before(*q.StartDate) {
			return QuizStatusActive
		}
		return QuizStatusPublished
	}
	return q.Status
}

// Takeable reports whether students may open or submit the quiz at now.
func (q Quiz) Takeable(now time.Time) bool {
	return q.EffectiveStatus(now) == QuizStatusActive
}

// Deletable reports whether the quiz may be removed at now.
func (q Quiz) Deletable(now time.Time) bool {
	return q.EffectiveStatus(now) != QuizStatusActive
}
