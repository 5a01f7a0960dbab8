package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reading-club-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// AttemptStore is a Redis implementation of app.AttemptRepository.
// Attempts survive a process restart and are shared by every instance behind the
// load balancer; abandoned attempts expire after ttl.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Get(ctx context.Context, userID string) (app.Attempt, bool, error) {
	payload, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return app.Attempt{}, false, nil
	}
	if err != nil {
		return app.Attempt{}, false, fmt.Errorf("load attempt: %w", err)
	}
	var attempt app.Attempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return app.Attempt{}, false, fmt.Errorf("decode attempt: %w", err)
	}
	if attempt.Answers == nil {
		attempt.Answers = make(map[string]string)
	}
	return attempt, true, nil
}

func (s *AttemptStore) Put(ctx context.Context, attempt app.Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	return s.client.Set(ctx, s.key(attempt.UserID), payload, s.ttl).Err()
}

func (s *AttemptStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *AttemptStore) key(userID string) string {
	return "quiz:attempt:" + userID
}
