package memory

import (
	"context"
	"sync"

	"reading-club-service/internal/domain"
)

// Catalog is a simple catalog backed by in-memory maps (useful for tests/demos).
type Catalog struct {
	mu        sync.RWMutex
	materials map[string]domain.Material
	quizzes   map[string]domain.Quiz
	questions map[string][]domain.Question
}

func NewCatalog() *Catalog {
	return &Catalog{
		materials: make(map[string]domain.Material),
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string][]domain.Question),
	}
}

// AddMaterial stores or replaces a material.
func (c *Catalog) AddMaterial(m domain.Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials[m.ID] = m
}

// AddQuiz stores or replaces a quiz together with its questions, in fetch order.
func (c *Catalog) AddQuiz(q domain.Quiz, questions ...domain.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q.Questions = nil
	c.quizzes[q.ID] = q
	owned := make([]domain.Question, len(questions))
	for i, question := range questions {
		question.QuizID = q.ID
		question.MaterialID = q.MaterialID
		owned[i] = question
	}
	c.questions[q.ID] = owned
}

func (c *Catalog) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	quiz, ok := c.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	material, ok := c.materials[quiz.MaterialID]
	quiz.MaterialActive = ok && material.Active
	quiz.Questions = append([]domain.Question(nil), c.questions[quizID]...)
	return quiz, nil
}

func (c *Catalog) ListMaterials(_ context.Context) ([]domain.Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Material, 0, len(c.materials))
	for _, m := range c.materials {
		out = append(out, m)
	}
	return out, nil
}

func (c *Catalog) ListQuizzes(_ context.Context, materialID string) ([]domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	material, ok := c.materials[materialID]
	out := make([]domain.Quiz, 0)
	for _, q := range c.quizzes {
		if q.MaterialID != materialID {
			continue
		}
		q.MaterialActive = ok && material.Active
		out = append(out, q)
	}
	return out, nil
}

// SampleCatalog provides a minimal reading list; swap with the Postgres catalog in production.
func SampleCatalog() *Catalog {
	c := NewCatalog()
	c.AddMaterial(domain.Material{
		ID:          "animal-farm",
		Title:       "Animal Farm",
		Description: "George Orwell's allegorical novella.",
		URL:         "https://www.gutenberg.org/ebooks/author/1010",
		Active:      true,
		Order:       1,
		Category:    "novel",
	})
	c.AddQuiz(domain.Quiz{
		ID:         "animal-farm-1",
		MaterialID: "animal-farm",
		Title:      "Chapters 1-3",
		Active:     true,
		Order:      1,
	},
		domain.Question{
			ID:     "af-q1",
			Text:   "Who delivers the speech about a dream in chapter one?",
			Points: 10,
			Order:  1,
			Kind:   domain.MultipleChoice{Options: []string{"Old Major", "Napoleon", "Snowball", "Boxer"}, Correct: "Old Major"},
		},
		domain.Question{
			ID:     "af-q2",
			Text:   "The animals rename Manor Farm to Animal Farm.",
			Points: 10,
			Order:  2,
			Kind:   domain.TrueFalse{Correct: true},
		},
		domain.Question{
			ID:     "af-q3",
			Text:   "Which horse's motto is \"I will work harder\"?",
			Points: 10,
			Order:  3,
			Kind:   domain.ShortAnswer{Correct: "Boxer"},
		},
	)
	return c
}
