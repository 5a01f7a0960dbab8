package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reading-club-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Catalog loads materials, quizzes and question sets from Postgres.
type Catalog struct {
	pool     *pgxpool.Pool
	validate *validator.Validate
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool, validate: validator.New()}
}

// questionRow mirrors a row of the questions table. Lettered options are the older schema.
type questionRow struct {
	ID         string `validate:"required"`
	QuizID     string `validate:"required"`
	MaterialID string
	Text       string `validate:"required"`
	Type       string `validate:"required,oneof=multiple_choice true_false short_answer"`
	Options    string
	Lettered   [4]string
	Correct    string
	Points     int `validate:"gte=0"`
	Order      int
}

func (r questionRow) options() ([]string, error) {
	if r.Options != "" && r.Options != "null" {
		var opts []string
		if err := json.Unmarshal([]byte(r.Options), &opts); err != nil {
			return nil, fmt.Errorf("%w: question %s options: %v", domain.ErrInvalidQuestion, r.ID, err)
		}
		if len(opts) > 0 {
			return opts, nil
		}
	}
	var opts []string
	for _, opt := range r.Lettered {
		if opt != "" {
			opts = append(opts, opt)
		}
	}
	return opts, nil
}

func (c *Catalog) toQuestion(r questionRow) (domain.Question, error) {
	if err := c.validate.Struct(r); err != nil {
		return domain.Question{}, fmt.Errorf("%w: question %q: %v", domain.ErrInvalidQuestion, r.ID, err)
	}
	opts, err := r.options()
	if err != nil {
		return domain.Question{}, err
	}
	kind, err := domain.NewQuestionKind(domain.QuestionType(r.Type), opts, r.Correct)
	if err != nil {
		return domain.Question{}, fmt.Errorf("question %s: %w", r.ID, err)
	}
	return domain.Question{
		ID:         r.ID,
		QuizID:     r.QuizID,
		MaterialID: r.MaterialID,
		Text:       r.Text,
		Points:     r.Points,
		Order:      r.Order,
		Kind:       kind,
	}, nil
}

const quizColumns = `q.id, q.material_id, q.title, q.description, q.is_active, q.order_index, m.is_active`

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := row.Scan(&quiz.ID, &quiz.MaterialID, &quiz.Title, &quiz.Description, &quiz.Active, &quiz.Order, &quiz.MaterialActive)
	return quiz, err
}

// LoadQuiz reads the quiz, its material's visibility and its questions in fetch order.
func (c *Catalog) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := scanQuiz(c.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes q JOIN materials m ON m.id = q.material_id WHERE q.id = $1`, quizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load quiz: %v", domain.ErrQuery, err)
	}

	rows, err := c.pool.Query(ctx, `
		SELECT id, quiz_id, material_id, question_text, question_type,
		       COALESCE(options::text, ''),
		       COALESCE(option_a, ''), COALESCE(option_b, ''), COALESCE(option_c, ''), COALESCE(option_d, ''),
		       correct_answer, points, COALESCE(order_index, 0)
		FROM questions
		WHERE quiz_id = $1
		ORDER BY created_at, id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load questions: %v", domain.ErrQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r questionRow
		if err := rows.Scan(&r.ID, &r.QuizID, &r.MaterialID, &r.Text, &r.Type, &r.Options,
			&r.Lettered[0], &r.Lettered[1], &r.Lettered[2], &r.Lettered[3],
			&r.Correct, &r.Points, &r.Order); err != nil {
			return domain.Quiz{}, fmt.Errorf("%w: scan question: %v", domain.ErrQuery, err)
		}
		q, err := c.toQuestion(r)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load questions: %v", domain.ErrQuery, err)
	}
	return quiz, nil
}

func (c *Catalog) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, title, description, url, is_active, order_index, category, created_at
		FROM materials
		ORDER BY order_index, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list materials: %v", domain.ErrQuery, err)
	}
	defer rows.Close()

	var out []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.URL, &m.Active, &m.Order, &m.Category, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan material: %v", domain.ErrQuery, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list materials: %v", domain.ErrQuery, err)
	}
	return out, nil
}

func (c *Catalog) ListQuizzes(ctx context.Context, materialID string) ([]domain.Quiz, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes q JOIN materials m ON m.id = q.material_id
		WHERE q.material_id = $1 ORDER BY q.order_index, q.id`, materialID)
	if err != nil {
		return nil, fmt.Errorf("%w: list quizzes: %v", domain.ErrQuery, err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan quiz: %v", domain.ErrQuery, err)
		}
		out = append(out, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list quizzes: %v", domain.ErrQuery, err)
	}
	return out, nil
}
