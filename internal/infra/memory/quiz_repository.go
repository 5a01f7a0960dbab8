package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"reading-club-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches a quiz and its questions from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository keeps question sets in process for a TTL. Concurrent misses for the same
// quiz share one load.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	jitterMu sync.Mutex
	jitter   *rand.Rand

	mu         sync.RWMutex
	sets       map[string]questionSet
	byMaterial map[string]map[string]struct{}
}

// questionSet is a quiz with its questions already in display order.
type questionSet struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:     loader,
		ttl:        ttl,
		clock:      time.Now,
		jitter:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sets:       make(map[string]questionSet),
		byMaterial: make(map[string]map[string]struct{}),
	}
}

// GetQuiz returns the quiz with its questions ordered by display order. Each caller gets
// its own question slice.
func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(quizID); ok {
		return quiz, nil
	}

	loaded, err, _ := r.loads.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		sort.SliceStable(quiz.Questions, func(i, j int) bool {
			return quiz.Questions[i].Order < quiz.Questions[j].Order
		})
		r.store(quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return withOwnQuestions(loaded.(domain.Quiz)), nil
}

func (r *QuizRepository) lookup(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[quizID]
	if !ok || !set.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return withOwnQuestions(set.quiz), true
}

func (r *QuizRepository) store(quiz domain.Quiz) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[quiz.ID] = questionSet{quiz: quiz, expiresAt: r.clock().Add(r.ttlWithJitter())}
	ids, ok := r.byMaterial[quiz.MaterialID]
	if !ok {
		ids = make(map[string]struct{})
		r.byMaterial[quiz.MaterialID] = ids
	}
	ids[quiz.ID] = struct{}{}
}

// Invalidate drops a cached quiz so the next read goes to the loader.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.sets[quizID]; ok {
		delete(r.byMaterial[set.quiz.MaterialID], quizID)
	}
	delete(r.sets, quizID)
}

// InvalidateMaterial drops every cached quiz of a material, e.g. after its active flag changed.
func (r *QuizRepository) InvalidateMaterial(materialID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for quizID := range r.byMaterial[materialID] {
		delete(r.sets, quizID)
	}
	delete(r.byMaterial, materialID)
}

func withOwnQuestions(quiz domain.Quiz) domain.Quiz {
	quiz.Questions = append([]domain.Question(nil), quiz.Questions...)
	return quiz
}

// ttlWithJitter spreads expirations by up to a tenth of the TTL.
func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.jitterMu.Lock()
	defer r.jitterMu.Unlock()
	return r.ttl + time.Duration(r.jitter.Int63n(int64(r.ttl)/10+1))
}
