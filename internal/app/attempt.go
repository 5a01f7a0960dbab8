package app

import (
	"fmt"
	"sort"
	"time"

	"reading-club-service/internal/domain"
)

// Direction moves the attempt cursor one question.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// ScoringModel selects how earned points are derived.
type ScoringModel string

const (
	// ScoringWeighted sums each correct question's points.
	ScoringWeighted ScoringModel = "weighted"
	// ScoringPercentage awards the percentage itself, on a 0-100 scale.
	ScoringPercentage ScoringModel = "percentage"
)

// Attempt is one user's pass through a quiz. Transitions return a new value; the receiver
// is never modified, so a stored attempt only changes when it is replaced.
type Attempt struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	MaterialID string            `json:"materialId"`
	QuizID     string            `json:"quizId"`
	Questions  []domain.Question `json:"questions"`
	Answers    map[string]string `json:"answers"`
	Cursor     int               `json:"cursor"`
	StartedAt  time.Time         `json:"startedAt"`
}

// NewAttempt orders the quiz questions and returns a fresh attempt at index 0.
func NewAttempt(id, userID string, quiz domain.Quiz, startedAt time.Time) (Attempt, error) {
	if len(quiz.Questions) == 0 {
		return Attempt{}, domain.ErrEmptyQuiz
	}
	return Attempt{
		ID:         id,
		UserID:     userID,
		MaterialID: quiz.MaterialID,
		QuizID:     quiz.ID,
		Questions:  orderQuestions(quiz.Questions),
		Answers:    make(map[string]string),
		StartedAt:  startedAt,
	}, nil
}

// orderQuestions stable-sorts by Order and normalises non-positive points to 1.
func orderQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	for i := range out {
		if out[i].Points <= 0 {
			out[i].Points = 1
		}
	}
	return out
}

func (a Attempt) question(id string) (domain.Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (a Attempt) withAnswers(answers map[string]string) Attempt {
	next := a
	next.Answers = answers
	return next
}

func (a Attempt) copyAnswers() map[string]string {
	answers := make(map[string]string, len(a.Answers)+1)
	for k, v := range a.Answers {
		answers[k] = v
	}
	return answers
}

// WithAnswer records value for questionID, replacing any earlier value.
func (a Attempt) WithAnswer(questionID, value string) (Attempt, error) {
	q, ok := a.question(questionID)
	if !ok {
		return a, domain.ErrQuestionNotFound
	}
	if !q.Kind.Accepts(value) {
		return a, fmt.Errorf("%w: %q for question %s", domain.ErrInvalidAnswer, value, questionID)
	}
	answers := a.copyAnswers()
	answers[questionID] = value
	return a.withAnswers(answers), nil
}

// Restore merges previously persisted answers for questions in this attempt.
func (a Attempt) Restore(records []domain.AnswerRecord) Attempt {
	answers := a.copyAnswers()
	for _, rec := range records {
		q, ok := a.question(rec.QuestionID)
		if !ok || !q.Kind.Accepts(rec.Answer) {
			continue
		}
		answers[rec.QuestionID] = rec.Answer
	}
	return a.withAnswers(answers)
}

// Move steps the cursor; moving past either end leaves it where it is.
func (a Attempt) Move(dir Direction) Attempt {
	return a.JumpTo(a.Cursor + int(dir))
}

// JumpTo places the cursor at index, clamped to the question range.
func (a Attempt) JumpTo(index int) Attempt {
	next := a
	next.Cursor = clamp(index, 0, len(a.Questions)-1)
	return next
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Current returns the question under the cursor.
func (a Attempt) Current() domain.Question {
	if len(a.Questions) == 0 {
		return domain.Question{}
	}
	return a.Questions[clamp(a.Cursor, 0, len(a.Questions)-1)]
}

// IsComplete reports whether every question has a recorded answer.
func (a Attempt) IsComplete() bool {
	for _, q := range a.Questions {
		if _, ok := a.Answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Unanswered lists question IDs without an answer, in display order.
func (a Attempt) Unanswered() []string {
	var missing []string
	for _, q := range a.Questions {
		if _, ok := a.Answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// Grade scores the attempt. Missing answers count as incorrect.
func (a Attempt) Grade(model ScoringModel, completedAt time.Time) (domain.ScoreResult, error) {
	if len(a.Questions) == 0 {
		return domain.ScoreResult{}, domain.ErrEmptyQuiz
	}
	result := domain.ScoreResult{
		AttemptID:   a.ID,
		UserID:      a.UserID,
		MaterialID:  a.MaterialID,
		QuizID:      a.QuizID,
		Outcomes:    make([]domain.QuestionOutcome, 0, len(a.Questions)),
		CompletedAt: completedAt,
	}
	earned, maxPoints := 0, 0
	for _, q := range a.Questions {
		answer, answered := a.Answers[q.ID]
		correct := answered && q.IsCorrect(answer)
		outcome := domain.QuestionOutcome{
			QuestionID: q.ID,
			Answer:     answer,
			Answered:   answered,
			Correct:    correct,
		}
		if correct {
			outcome.Points = q.Points
			earned += q.Points
		}
		maxPoints += q.Points
		result.Outcomes = append(result.Outcomes, outcome)
	}
	if maxPoints <= 0 {
		return domain.ScoreResult{}, domain.ErrEmptyQuiz
	}

	percentage := Percentage(earned, maxPoints)
	switch model {
	case ScoringPercentage:
		result.EarnedPoints = percentage
		result.MaxPoints = 100
	default:
		result.EarnedPoints = earned
		result.MaxPoints = maxPoints
	}
	result.Percentage = percentage
	return result, nil
}

// Percentage is round(earned / maxPoints * 100) with halves rounded up. A zero maximum yields 0.
func Percentage(earned, maxPoints int) int {
	if maxPoints <= 0 {
		return 0
	}
	return (earned*200 + maxPoints) / (2 * maxPoints)
}
