package memory

import (
	"context"
	"sync"

	"reading-club-service/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository, one attempt per user.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]app.Attempt),
	}
}

func (s *AttemptStore) Get(_ context.Context, userID string) (app.Attempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[userID]
	return attempt, ok, nil
}

func (s *AttemptStore) Put(_ context.Context, attempt app.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.UserID] = attempt
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, userID)
	return nil
}
