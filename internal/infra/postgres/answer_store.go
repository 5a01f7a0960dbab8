package postgres

import (
	"context"
	"fmt"

	"reading-club-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// AnswerStore upserts per-question answers into user_answers.
type AnswerStore struct {
	pool *pgxpool.Pool
}

func NewAnswerStore(pool *pgxpool.Pool) *AnswerStore {
	return &AnswerStore{pool: pool}
}

// UpsertAnswer keeps the newest answer per (user, question); an older record is a no-op.
func (s *AnswerStore) UpsertAnswer(ctx context.Context, record domain.AnswerRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_answers (user_id, quiz_id, question_id, answer, is_correct, points_earned, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, question_id) DO UPDATE
		SET quiz_id = EXCLUDED.quiz_id,
		    answer = EXCLUDED.answer,
		    is_correct = EXCLUDED.is_correct,
		    points_earned = EXCLUDED.points_earned,
		    answered_at = EXCLUDED.answered_at
		WHERE user_answers.answered_at <= EXCLUDED.answered_at`,
		record.UserID, record.QuizID, record.QuestionID, record.Answer, record.Correct, record.PointsEarned, record.AnsweredAt)
	if err != nil {
		return fmt.Errorf("%w: upsert answer: %v", domain.ErrMutation, err)
	}
	return nil
}

func (s *AnswerStore) ListAnswers(ctx context.Context, userID, quizID string) ([]domain.AnswerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, quiz_id, question_id, answer, is_correct, points_earned, answered_at
		FROM user_answers
		WHERE user_id = $1 AND quiz_id = $2`, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("%w: list answers: %v", domain.ErrQuery, err)
	}
	defer rows.Close()

	var out []domain.AnswerRecord
	for rows.Next() {
		var r domain.AnswerRecord
		if err := rows.Scan(&r.UserID, &r.QuizID, &r.QuestionID, &r.Answer, &r.Correct, &r.PointsEarned, &r.AnsweredAt); err != nil {
			return nil, fmt.Errorf("%w: scan answer: %v", domain.ErrQuery, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list answers: %v", domain.ErrQuery, err)
	}
	return out, nil
}
