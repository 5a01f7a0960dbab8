package memory

import (
	"context"
	"sync"

	"reading-club-service/internal/domain"
)

type answerKey struct {
	userID     string
	questionID string
}

// AnswerStore keeps the latest answer per (user, question).
type AnswerStore struct {
	mu      sync.RWMutex
	answers map[answerKey]domain.AnswerRecord
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[answerKey]domain.AnswerRecord)}
}

// UpsertAnswer ignores a record older than the one already stored.
func (s *AnswerStore) UpsertAnswer(_ context.Context, record domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey{userID: record.UserID, questionID: record.QuestionID}
	if held, ok := s.answers[key]; ok && held.AnsweredAt.After(record.AnsweredAt) {
		return nil
	}
	s.answers[key] = record
	return nil
}

func (s *AnswerStore) ListAnswers(_ context.Context, userID, quizID string) ([]domain.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AnswerRecord
	for key, record := range s.answers {
		if key.userID == userID && record.QuizID == quizID {
			out = append(out, record)
		}
	}
	return out, nil
}
