package app

import (
	"context"
	"sort"

	"reading-club-service/internal/domain"
	"reading-club-service/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProfileRepository resolves identities to profiles and stores credentials.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (domain.UserProfile, error)
	ListProfiles(ctx context.Context) ([]domain.UserProfile, error)
	CreateProfile(ctx context.Context, profile domain.UserProfile, passwordHash string) error
	GetCredentials(ctx context.Context, email string) (domain.Credentials, error)
}

// RankingSource is a remote aggregation that already knows every user's total.
// It returns at least the top limit users and everyone tied with the last of them, in any
// order; display names may be empty. An error means the client-side ranking must be used.
type RankingSource interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// Rank sums each user's TotalPoints across their score rows and orders users by that sum,
// highest first. Ties are broken by user ID so repeated calls agree.
func Rank(scores []domain.Score, profiles map[string]domain.UserProfile) []domain.LeaderboardEntry {
	totals := make(map[string]int)
	for _, score := range scores {
		totals[score.UserID] += score.TotalPoints
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for userID, total := range totals {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      userID,
			DisplayName: displayName(userID, profiles),
			TotalPoints: total,
		})
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []domain.LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
}

func displayName(userID string, profiles map[string]domain.UserProfile) string {
	if p, ok := profiles[userID]; ok && p.Name != "" {
		return p.Name
	}
	return userID
}

// RankOf returns the 1-based position of userID, or false when the user is not ranked.
func RankOf(userID string, entries []domain.LeaderboardEntry) (int, bool) {
	for i, entry := range entries {
		if entry.UserID == userID {
			return i + 1, true
		}
	}
	return 0, false
}

// Summary aggregates one user's score rows. An empty set yields zeros.
func Summary(scores []domain.Score) domain.ScoreSummary {
	if len(scores) == 0 {
		return domain.ScoreSummary{}
	}
	total, percentSum := 0, 0
	for _, score := range scores {
		total += score.TotalPoints
		percentSum += score.Percentage
	}
	return domain.ScoreSummary{
		TotalPoints:       total,
		CompletedCount:    len(scores),
		AveragePercentage: Percentage(percentSum, len(scores)*100),
	}
}

func truncate(entries []domain.LeaderboardEntry, limit int) []domain.LeaderboardEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// LeaderboardService projects stored score rows into rankings and per-user stats.
type LeaderboardService struct {
	scores   ScoreRepository
	profiles ProfileRepository
	ranking  RankingSource
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewLeaderboardService(scores ScoreRepository, profiles ProfileRepository, ranking RankingSource, m *metrics.Metrics, log *zap.Logger) *LeaderboardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LeaderboardService{scores: scores, profiles: profiles, ranking: ranking, metrics: m, log: log}
}

// Leaderboard returns the top limit entries; limit <= 0 returns everyone.
// The remote ranking is preferred; on failure the ranking is rebuilt from score rows.
func (s *LeaderboardService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if s.ranking != nil {
		entries, err := s.remoteLeaderboard(ctx, limit)
		if err == nil {
			s.metrics.LeaderboardServed("rpc")
			return entries, nil
		}
		s.log.Warn("remote leaderboard unavailable, ranking locally", zap.Error(err))
	}

	entries, err := s.rankAll(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.LeaderboardServed("client")
	return truncate(entries, limit), nil
}

func (s *LeaderboardService) remoteLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var (
		entries  []domain.LeaderboardEntry
		profiles map[string]domain.UserProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.ranking.Leaderboard(gctx, limit)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = s.profileIndex(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].DisplayName = displayName(entries[i].UserID, profiles)
	}
	sortEntries(entries)
	return truncate(entries, limit), nil
}

func (s *LeaderboardService) rankAll(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var (
		scores   []domain.Score
		profiles map[string]domain.UserProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scores, err = s.scores.ListScores(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = s.profileIndex(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Rank(scores, profiles), nil
}

func (s *LeaderboardService) profileIndex(ctx context.Context) (map[string]domain.UserProfile, error) {
	list, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.UserProfile, len(list))
	for _, p := range list {
		index[p.ID] = p
	}
	return index, nil
}

// Stats summarizes the user's rows and finds their rank in the full client-side ranking.
func (s *LeaderboardService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	own, err := s.scores.ListUserScores(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	stats := domain.UserStats{ScoreSummary: Summary(own)}
	if len(own) == 0 {
		return stats, nil
	}

	entries, err := s.rankAll(ctx)
	if err != nil {
		return domain.UserStats{}, err
	}
	stats.Rank, stats.Ranked = RankOf(userID, entries)
	return stats, nil
}

// UserScores lists the user's best-attempt rows.
func (s *LeaderboardService) UserScores(ctx context.Context, userID string) ([]domain.Score, error) {
	return s.scores.ListUserScores(ctx, userID)
}

// AllScores lists every stored row (admin view).
func (s *LeaderboardService) AllScores(ctx context.Context) ([]domain.Score, error) {
	return s.scores.ListScores(ctx)
}
