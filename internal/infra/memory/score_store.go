package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"reading-club-service/internal/domain"
)

// ScoreStore keeps best-attempt rows keyed by (user, material, quiz).
type ScoreStore struct {
	mu     sync.RWMutex
	scores map[domain.ScoreKey]domain.Score
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{scores: make(map[domain.ScoreKey]domain.Score)}
}

func (s *ScoreStore) GetScore(_ context.Context, key domain.ScoreKey) (domain.Score, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[key]
	return score, ok, nil
}

func (s *ScoreStore) InsertScore(_ context.Context, score domain.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scores[score.Key()]; exists {
		return fmt.Errorf("%w: score for %+v already exists", domain.ErrMutation, score.Key())
	}
	s.scores[score.Key()] = score
	return nil
}

func (s *ScoreStore) UpdateScore(_ context.Context, score domain.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scores[score.Key()]; !exists {
		return fmt.Errorf("%w: no score for %+v", domain.ErrMutation, score.Key())
	}
	s.scores[score.Key()] = score
	return nil
}

func (s *ScoreStore) ListScores(_ context.Context) ([]domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Score, 0, len(s.scores))
	for _, score := range s.scores {
		out = append(out, score)
	}
	sortScores(out)
	return out, nil
}

func (s *ScoreStore) ListUserScores(_ context.Context, userID string) ([]domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Score, 0)
	for key, score := range s.scores {
		if key.UserID == userID {
			out = append(out, score)
		}
	}
	sortScores(out)
	return out, nil
}

// sortScores orders rows by most recent completion, like the score table's default view.
func sortScores(scores []domain.Score) {
	sort.Slice(scores, func(i, j int) bool {
		if !scores[i].CompletedAt.Equal(scores[j].CompletedAt) {
			return scores[i].CompletedAt.After(scores[j].CompletedAt)
		}
		return scores[i].ID < scores[j].ID
	})
}
