package memory

import (
	"context"
	"sort"
	"sync"

	"reading-club-service/internal/domain"
)

type storedProfile struct {
	profile domain.UserProfile
	hash    string
}

// ProfileStore is an in-memory implementation of app.ProfileRepository.
type ProfileStore struct {
	mu      sync.RWMutex
	byID    map[string]storedProfile
	byEmail map[string]string
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		byID:    make(map[string]storedProfile),
		byEmail: make(map[string]string),
	}
}

func (s *ProfileStore) GetProfile(_ context.Context, userID string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.byID[userID]
	if !ok {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	return stored.profile, nil
}

func (s *ProfileStore) ListProfiles(_ context.Context) ([]domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserProfile, 0, len(s.byID))
	for _, stored := range s.byID {
		out = append(out, stored.profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ProfileStore) CreateProfile(_ context.Context, profile domain.UserProfile, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[profile.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.byID[profile.ID] = storedProfile{profile: profile, hash: passwordHash}
	s.byEmail[profile.Email] = profile.ID
	return nil
}

func (s *ProfileStore) GetCredentials(_ context.Context, email string) (domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[email]
	if !ok {
		return domain.Credentials{}, domain.ErrProfileNotFound
	}
	return domain.Credentials{UserID: userID, PasswordHash: s.byID[userID].hash}, nil
}
