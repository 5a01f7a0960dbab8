package app_test

import (
	"context"
	"testing"

	"reading-club-service/internal/app"
	"reading-club-service/internal/domain"
	"reading-club-service/internal/infra/memory"
	infraredis "reading-club-service/internal/infra/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoard(t *testing.T) *infraredis.Leaderboard {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return infraredis.NewLeaderboard(client)
}

func TestUnbuiltBoardFallsBackToScoreRows(t *testing.T) {
	ctx := context.Background()
	scores, profiles := seededStores(t)
	board := newBoard(t)
	service := app.NewLeaderboardService(scores, profiles, board, nil, nil)

	entries, err := service.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "u2", entries[0].UserID)
	assert.Equal(t, 90, entries[0].TotalPoints)

	// increments on an unbuilt set must not turn a partial ranking into the answer
	require.NoError(t, board.ScoreImproved(ctx, "u3", 1000))
	entries, err = service.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "u2", entries[0].UserID)
}

func TestBoardTieAtLimitMatchesClientRanking(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	profiles := memory.NewProfileStore()
	rows := []domain.Score{
		{ID: "s1", UserID: "bob", MaterialID: "m1", QuizID: "q1", Points: 100, TotalPoints: 100},
		{ID: "s2", UserID: "alice", MaterialID: "m1", QuizID: "q1", Points: 100, TotalPoints: 100},
		{ID: "s3", UserID: "carol", MaterialID: "m1", QuizID: "q1", Points: 100, TotalPoints: 100},
		{ID: "s4", UserID: "zed", MaterialID: "m1", QuizID: "q1", Points: 150, TotalPoints: 150},
	}
	for _, row := range rows {
		require.NoError(t, scores.InsertScore(ctx, row))
	}
	board := newBoard(t)
	require.NoError(t, board.Rebuild(ctx, rows))

	remote := app.NewLeaderboardService(scores, profiles, board, nil, nil)
	local := app.NewLeaderboardService(scores, profiles, nil, nil, nil)

	for _, limit := range []int{1, 2, 3, 4, 0} {
		want, err := local.Leaderboard(ctx, limit)
		require.NoError(t, err)
		got, err := remote.Leaderboard(ctx, limit)
		require.NoError(t, err)
		assert.Equal(t, want, got, "limit %d", limit)
	}

	top2, err := remote.Leaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "zed", top2[0].UserID)
	assert.Equal(t, "alice", top2[1].UserID)
}
