package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"reading-club-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey = "leaderboard:total_points"
	// leaderboardBuiltKey exists only while the sorted set matches the score table.
	leaderboardBuiltKey = "leaderboard:built"
)

// Leaderboard keeps every user's total in a sorted set.
// It follows improved submissions as an app.ScoreListener and serves the ranking as an
// app.RankingSource, so the full score table is not scanned on every read.
type Leaderboard struct {
	client *redis.Client
	stale  atomic.Bool
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

// ScoreImproved adds delta to the user's total. A failed increment marks the set stale
// until the next Rebuild.
func (l *Leaderboard) ScoreImproved(ctx context.Context, userID string, delta int) error {
	if err := l.client.ZIncrBy(ctx, leaderboardKey, float64(delta), userID).Err(); err != nil {
		l.stale.Store(true)
		if delErr := l.client.Del(ctx, leaderboardBuiltKey).Err(); delErr != nil {
			return errors.Join(err, delErr)
		}
		return err
	}
	return nil
}

// Leaderboard returns at least the top limit users by total, plus every user tied with the
// last of them; limit <= 0 returns everyone. Entries are unordered within a score, callers
// sort and truncate. domain.ErrRankingUnavailable is returned until a Rebuild has succeeded.
func (l *Leaderboard) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if l.stale.Load() {
		return nil, fmt.Errorf("%w: missed an update since the last rebuild", domain.ErrRankingUnavailable)
	}
	built, err := l.client.Exists(ctx, leaderboardBuiltKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: leaderboard: %v", domain.ErrQuery, err)
	}
	if built == 0 {
		return nil, fmt.Errorf("%w: leaderboard not built", domain.ErrRankingUnavailable)
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	rows, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: leaderboard: %v", domain.ErrQuery, err)
	}
	if limit > 0 && len(rows) == limit {
		rows, err = l.withTiesAt(ctx, rows)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		userID, _ := row.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      userID,
			TotalPoints: int(row.Score),
		})
	}
	return entries, nil
}

// withTiesAt replaces the members sharing the lowest score in rows with every member
// holding that score.
func (l *Leaderboard) withTiesAt(ctx context.Context, rows []redis.Z) ([]redis.Z, error) {
	boundary := rows[len(rows)-1].Score
	bound := strconv.FormatFloat(boundary, 'f', -1, 64)
	tied, err := l.client.ZRevRangeByScoreWithScores(ctx, leaderboardKey, &redis.ZRangeBy{Min: bound, Max: bound}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: leaderboard ties: %v", domain.ErrQuery, err)
	}
	out := make([]redis.Z, 0, len(rows)+len(tied))
	for _, row := range rows {
		if row.Score > boundary {
			out = append(out, row)
		}
	}
	return append(out, tied...), nil
}

// Rebuild replaces the sorted set with totals computed from stored score rows and marks it
// as built.
func (l *Leaderboard) Rebuild(ctx context.Context, scores []domain.Score) error {
	totals := make(map[string]int)
	for _, score := range scores {
		totals[score.UserID] += score.TotalPoints
	}

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, leaderboardKey)
		if len(totals) > 0 {
			members := make([]redis.Z, 0, len(totals))
			for userID, total := range totals {
				members = append(members, redis.Z{Score: float64(total), Member: userID})
			}
			pipe.ZAdd(ctx, leaderboardKey, members...)
		}
		pipe.Set(ctx, leaderboardBuiltKey, "1", 0)
		return nil
	})
	if err != nil {
		return err
	}
	l.stale.Store(false)
	return nil
}
