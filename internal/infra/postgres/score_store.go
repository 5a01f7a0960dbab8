package postgres

import (
	"context"
	"errors"
	"fmt"

	"reading-club-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ScoreStore persists best-attempt rows in user_scores.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

const scoreColumns = `id, user_id, material_id, quiz_id, points, max_points, percentage, total_points, completed_at`

func scanScore(row pgx.Row) (domain.Score, error) {
	var s domain.Score
	err := row.Scan(&s.ID, &s.UserID, &s.MaterialID, &s.QuizID, &s.Points, &s.MaxPoints, &s.Percentage, &s.TotalPoints, &s.CompletedAt)
	return s, err
}

func (s *ScoreStore) GetScore(ctx context.Context, key domain.ScoreKey) (domain.Score, bool, error) {
	score, err := scanScore(s.pool.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM user_scores WHERE user_id = $1 AND material_id = $2 AND quiz_id = $3`,
		key.UserID, key.MaterialID, key.QuizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Score{}, false, nil
	}
	if err != nil {
		return domain.Score{}, false, fmt.Errorf("%w: get score: %v", domain.ErrQuery, err)
	}
	return score, true, nil
}

func (s *ScoreStore) InsertScore(ctx context.Context, score domain.Score) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_scores (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		score.ID, score.UserID, score.MaterialID, score.QuizID,
		score.Points, score.MaxPoints, score.Percentage, score.TotalPoints, score.CompletedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: score for %+v already exists", domain.ErrMutation, score.Key())
	}
	if err != nil {
		return fmt.Errorf("%w: insert score: %v", domain.ErrMutation, err)
	}
	return nil
}

func (s *ScoreStore) UpdateScore(ctx context.Context, score domain.Score) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_scores
		SET points = $4, max_points = $5, percentage = $6, total_points = $7, completed_at = $8
		WHERE user_id = $1 AND material_id = $2 AND quiz_id = $3`,
		score.UserID, score.MaterialID, score.QuizID,
		score.Points, score.MaxPoints, score.Percentage, score.TotalPoints, score.CompletedAt)
	if err != nil {
		return fmt.Errorf("%w: update score: %v", domain.ErrMutation, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: no score for %+v", domain.ErrMutation, score.Key())
	}
	return nil
}

func (s *ScoreStore) ListScores(ctx context.Context) ([]domain.Score, error) {
	return s.list(ctx, `SELECT `+scoreColumns+` FROM user_scores ORDER BY completed_at DESC, id`)
}

func (s *ScoreStore) ListUserScores(ctx context.Context, userID string) ([]domain.Score, error) {
	return s.list(ctx, `SELECT `+scoreColumns+` FROM user_scores WHERE user_id = $1 ORDER BY completed_at DESC, id`, userID)
}

func (s *ScoreStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Score, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list scores: %v", domain.ErrQuery, err)
	}
	defer rows.Close()

	out := make([]domain.Score, 0)
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan score: %v", domain.ErrQuery, err)
		}
		out = append(out, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list scores: %v", domain.ErrQuery, err)
	}
	return out, nil
}
