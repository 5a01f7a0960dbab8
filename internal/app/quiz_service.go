package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"reading-club-service/internal/domain"
	"reading-club-service/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttemptRepository abstracts where in-progress attempts live (in-memory, Redis, etc).
type AttemptRepository interface {
	Get(ctx context.Context, userID string) (Attempt, bool, error)
	Put(ctx context.Context, attempt Attempt) error
	Delete(ctx context.Context, userID string) error
}

// QuizRepository loads quiz content with its questions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ScoreRepository stores one best-attempt row per ScoreKey.
type ScoreRepository interface {
	GetScore(ctx context.Context, key domain.ScoreKey) (domain.Score, bool, error)
	InsertScore(ctx context.Context, score domain.Score) error
	UpdateScore(ctx context.Context, score domain.Score) error
	ListScores(ctx context.Context) ([]domain.Score, error)
	ListUserScores(ctx context.Context, userID string) ([]domain.Score, error)
}

// AnswerRepository keeps eagerly persisted answers keyed on (user, question).
type AnswerRepository interface {
	UpsertAnswer(ctx context.Context, record domain.AnswerRecord) error
	ListAnswers(ctx context.Context, userID, quizID string) ([]domain.AnswerRecord, error)
}

// ScoreListener is told how much a user's total moved after an improved attempt.
type ScoreListener interface {
	ScoreImproved(ctx context.Context, userID string, delta int) error
}

// ScoreKeying selects the best-attempt key.
type ScoreKeying string

const (
	KeyByQuiz     ScoreKeying = "quiz"
	KeyByMaterial ScoreKeying = "material"
)

// QuizOptions tunes the attempt lifecycle.
type QuizOptions struct {
	Model          ScoringModel
	Keying         ScoreKeying
	AllowPartial   bool
	PersistAnswers bool
	Rehydrate      bool
	AnswerTimeout  time.Duration
}

// QuizService runs quiz attempts end to end.
type QuizService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	scores   ScoreRepository
	answers  AnswerRepository
	listener ScoreListener
	metrics  *metrics.Metrics
	log      *zap.Logger
	opts     QuizOptions
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
	pending  map[domain.ScoreKey]domain.ScoreResult
	writes   map[answerKey]*answerWrite
	bg       sync.WaitGroup
}

type answerKey struct {
	userID     string
	questionID string
}

// answerWrite orders background upserts for one (user, question). A write older than
// the last one stored is skipped.
type answerWrite struct {
	mu      sync.Mutex
	issued  uint64
	written uint64
}

// QuizServiceOption configures optional collaborators.
type QuizServiceOption func(*QuizService)

// WithAnswerRepository enables per-question persistence and rehydration.
func WithAnswerRepository(answers AnswerRepository) QuizServiceOption {
	return func(s *QuizService) { s.answers = answers }
}

// WithScoreListener registers a projection that follows improved totals.
func WithScoreListener(listener ScoreListener) QuizServiceOption {
	return func(s *QuizService) { s.listener = listener }
}

// WithMetrics records attempt and submission counters.
func WithMetrics(m *metrics.Metrics) QuizServiceOption {
	return func(s *QuizService) { s.metrics = m }
}

// WithLogger replaces the no-op logger.
func WithLogger(log *zap.Logger) QuizServiceOption {
	return func(s *QuizService) { s.log = log }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) QuizServiceOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(attempts AttemptRepository, quizzes QuizRepository, scores ScoreRepository, opts QuizOptions, options ...QuizServiceOption) *QuizService {
	if opts.Model == "" {
		opts.Model = ScoringWeighted
	}
	if opts.Keying == "" {
		opts.Keying = KeyByQuiz
	}
	if opts.AnswerTimeout <= 0 {
		opts.AnswerTimeout = 5 * time.Second
	}
	s := &QuizService{
		attempts: attempts,
		quizzes:  quizzes,
		scores:   scores,
		log:      zap.NewNop(),
		opts:     opts,
		now:      time.Now,
		inflight: make(map[string]struct{}),
		pending:  make(map[domain.ScoreKey]domain.ScoreResult),
		writes:   make(map[answerKey]*answerWrite),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// StartAttempt loads the quiz and replaces any attempt the user had in progress.
func (s *QuizService) StartAttempt(ctx context.Context, userID, materialID, quizID string) (Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if materialID != "" && quiz.MaterialID != materialID {
		return Attempt{}, domain.ErrQuizNotFound
	}
	if !quiz.Visible() {
		return Attempt{}, domain.ErrQuizInactive
	}
	for _, q := range quiz.Questions {
		if err := q.Validate(); err != nil {
			return Attempt{}, err
		}
	}

	attempt, err := NewAttempt(uuid.NewString(), userID, quiz, s.now())
	if err != nil {
		return Attempt{}, err
	}

	if s.opts.Rehydrate && s.answers != nil {
		attempt = s.rehydrate(ctx, attempt)
	}

	if err := s.attempts.Put(ctx, attempt); err != nil {
		return Attempt{}, err
	}
	s.metrics.AttemptStarted(quiz.ID)
	s.log.Debug("attempt started",
		zap.String("user_id", userID),
		zap.String("quiz_id", quiz.ID),
		zap.Int("questions", len(attempt.Questions)))
	return attempt, nil
}

// rehydrate is best-effort: a failed lookup yields the fresh attempt.
func (s *QuizService) rehydrate(ctx context.Context, attempt Attempt) Attempt {
	records, err := s.answers.ListAnswers(ctx, attempt.UserID, attempt.QuizID)
	if err != nil {
		s.log.Warn("rehydrate answers failed",
			zap.String("user_id", attempt.UserID),
			zap.String("quiz_id", attempt.QuizID),
			zap.Error(err))
		return attempt
	}
	return attempt.Restore(records)
}

// CurrentAttempt returns the user's attempt in progress.
func (s *QuizService) CurrentAttempt(ctx context.Context, userID string) (Attempt, error) {
	attempt, ok, err := s.attempts.Get(ctx, userID)
	if err != nil {
		return Attempt{}, err
	}
	if !ok {
		return Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// RecordAnswer stores value for questionID. Correctness is only judged at submission.
func (s *QuizService) RecordAnswer(ctx context.Context, userID, questionID, value string) (Attempt, error) {
	attempt, err := s.CurrentAttempt(ctx, userID)
	if err != nil {
		return Attempt{}, err
	}
	next, err := attempt.WithAnswer(questionID, value)
	if err != nil {
		return attempt, err
	}
	if err := s.attempts.Put(ctx, next); err != nil {
		return attempt, err
	}
	if s.opts.PersistAnswers && s.answers != nil {
		q, _ := next.question(questionID)
		s.persistAnswerAsync(ctx, next, q, value)
	}
	return next, nil
}

// persistAnswerAsync writes the answer in the background; failures never reach the attempt.
func (s *QuizService) persistAnswerAsync(ctx context.Context, attempt Attempt, q domain.Question, value string) {
	record := domain.AnswerRecord{
		UserID:     attempt.UserID,
		QuizID:     attempt.QuizID,
		QuestionID: q.ID,
		Answer:     value,
		Correct:    q.IsCorrect(value),
		AnsweredAt: s.now(),
	}
	if record.Correct {
		record.PointsEarned = q.Points
	}

	key := answerKey{userID: record.UserID, questionID: record.QuestionID}
	s.mu.Lock()
	slot, ok := s.writes[key]
	if !ok {
		slot = &answerWrite{}
		s.writes[key] = slot
	}
	slot.issued++
	seq := slot.issued
	s.mu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer s.releaseWrite(key, slot, seq)

		slot.mu.Lock()
		defer slot.mu.Unlock()
		if seq < slot.written {
			return
		}
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.AnswerTimeout)
		defer cancel()
		if err := s.answers.UpsertAnswer(writeCtx, record); err != nil {
			s.log.Warn("persist answer failed",
				zap.String("user_id", record.UserID),
				zap.String("question_id", record.QuestionID),
				zap.Error(err))
			return
		}
		slot.written = seq
	}()
}

// releaseWrite forgets the slot once its newest write has finished.
func (s *QuizService) releaseWrite(key answerKey, slot *answerWrite, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.issued == seq && s.writes[key] == slot {
		delete(s.writes, key)
	}
}

// Wait blocks until background answer writes have finished.
func (s *QuizService) Wait() {
	s.bg.Wait()
}

// Advance moves the cursor one question in dir, clamped at both ends.
func (s *QuizService) Advance(ctx context.Context, userID string, dir Direction) (Attempt, error) {
	return s.moveCursor(ctx, userID, func(a Attempt) Attempt { return a.Move(dir) })
}

// JumpTo moves the cursor to index, clamped at both ends.
func (s *QuizService) JumpTo(ctx context.Context, userID string, index int) (Attempt, error) {
	return s.moveCursor(ctx, userID, func(a Attempt) Attempt { return a.JumpTo(index) })
}

func (s *QuizService) moveCursor(ctx context.Context, userID string, move func(Attempt) Attempt) (Attempt, error) {
	attempt, err := s.CurrentAttempt(ctx, userID)
	if err != nil {
		return Attempt{}, err
	}
	next := move(attempt)
	if next.Cursor == attempt.Cursor {
		return attempt, nil
	}
	if err := s.attempts.Put(ctx, next); err != nil {
		return attempt, err
	}
	return next, nil
}

// Abandon drops the attempt in progress, e.g. when the user navigates away.
func (s *QuizService) Abandon(ctx context.Context, userID string) error {
	return s.attempts.Delete(ctx, userID)
}

// Submit grades the attempt and stores it under the best-attempt-wins rule.
// On a persistence failure the computed result is still returned, alongside an error
// wrapping domain.ErrPersistence, and is kept for RetryPersist.
func (s *QuizService) Submit(ctx context.Context, userID string) (domain.ScoreResult, error) {
	if !s.beginSubmit(userID) {
		return domain.ScoreResult{}, domain.ErrSubmitInProgress
	}
	defer s.endSubmit(userID)

	attempt, err := s.CurrentAttempt(ctx, userID)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if !attempt.IsComplete() && !s.opts.AllowPartial {
		return domain.ScoreResult{}, fmt.Errorf("%w: %d unanswered", domain.ErrIncompleteAttempt, len(attempt.Unanswered()))
	}

	result, err := attempt.Grade(s.opts.Model, s.now())
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if err := s.attempts.Delete(ctx, userID); err != nil {
		s.log.Warn("clear attempt failed", zap.String("user_id", userID), zap.Error(err))
	}

	return s.persistOrPark(ctx, result)
}

// RetryPersist re-runs only the persistence step for every result the user has parked,
// oldest first. It stops at the first failure and returns that result with the error;
// otherwise it returns the most recent result.
func (s *QuizService) RetryPersist(ctx context.Context, userID string) (domain.ScoreResult, error) {
	if !s.beginSubmit(userID) {
		return domain.ScoreResult{}, domain.ErrSubmitInProgress
	}
	defer s.endSubmit(userID)

	parked := s.PendingResults(userID)
	if len(parked) == 0 {
		return domain.ScoreResult{}, domain.ErrNothingPending
	}
	var last domain.ScoreResult
	for _, result := range parked {
		saved, err := s.persistOrPark(ctx, result)
		if err != nil {
			return saved, err
		}
		last = saved
	}
	return last, nil
}

// PendingResults lists the user's results waiting for a retry, oldest first.
func (s *QuizService) PendingResults(userID string) []domain.ScoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ScoreResult
	for key, result := range s.pending {
		if key.UserID == userID {
			out = append(out, result)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].QuizID < out[j].QuizID
	})
	return out
}

// park keeps result for a retry unless a better result for the same key is already parked.
func (s *QuizService) park(result domain.ScoreResult) {
	key := s.scoreKey(result)
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.pending[key]; ok && held.EarnedPoints > result.EarnedPoints {
		return
	}
	s.pending[key] = result
}

// unpark drops the parked result for result's key once a save made it redundant.
func (s *QuizService) unpark(result domain.ScoreResult) {
	key := s.scoreKey(result)
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.pending[key]; ok && held.EarnedPoints <= result.EarnedPoints {
		delete(s.pending, key)
	}
}

func (s *QuizService) persistOrPark(ctx context.Context, result domain.ScoreResult) (domain.ScoreResult, error) {
	started := time.Now()
	improved, err := s.persist(ctx, result)
	s.metrics.ObservePersist(time.Since(started))
	if err != nil {
		s.park(result)
		s.metrics.Submitted(metrics.OutcomeFailed)
		s.log.Error("persist score failed",
			zap.String("user_id", result.UserID),
			zap.String("quiz_id", result.QuizID),
			zap.Error(err))
		return result, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	s.unpark(result)

	result.Improved = improved
	if improved {
		s.metrics.Submitted(metrics.OutcomeImproved)
	} else {
		s.metrics.Submitted(metrics.OutcomeUnchanged)
	}
	s.log.Info("attempt submitted",
		zap.String("user_id", result.UserID),
		zap.String("quiz_id", result.QuizID),
		zap.Int("earned", result.EarnedPoints),
		zap.Int("max", result.MaxPoints),
		zap.Bool("improved", improved))
	return result, nil
}

// persist applies best-attempt-wins. The read and the write are separate calls, so two
// concurrent submissions for the same key can race; the later write wins.
func (s *QuizService) persist(ctx context.Context, result domain.ScoreResult) (bool, error) {
	key := s.scoreKey(result)
	existing, found, err := s.scores.GetScore(ctx, key)
	if err != nil {
		return false, err
	}

	delta := 0
	switch {
	case !found:
		score := domain.Score{
			ID:          uuid.NewString(),
			UserID:      key.UserID,
			MaterialID:  key.MaterialID,
			QuizID:      key.QuizID,
			Points:      result.EarnedPoints,
			MaxPoints:   result.MaxPoints,
			Percentage:  result.Percentage,
			TotalPoints: result.EarnedPoints,
			CompletedAt: result.CompletedAt,
		}
		if err := s.scores.InsertScore(ctx, score); err != nil {
			return false, err
		}
		delta = result.EarnedPoints
	case result.EarnedPoints > existing.Points:
		updated := existing
		updated.Points = result.EarnedPoints
		updated.MaxPoints = result.MaxPoints
		updated.Percentage = result.Percentage
		updated.TotalPoints = existing.TotalPoints - existing.Points + result.EarnedPoints
		updated.CompletedAt = result.CompletedAt
		if err := s.scores.UpdateScore(ctx, updated); err != nil {
			return false, err
		}
		delta = result.EarnedPoints - existing.Points
	default:
		return false, nil
	}

	s.notify(ctx, key.UserID, delta)
	return true, nil
}

func (s *QuizService) notify(ctx context.Context, userID string, delta int) {
	if s.listener == nil || delta == 0 {
		return
	}
	if err := s.listener.ScoreImproved(ctx, userID, delta); err != nil {
		s.log.Warn("leaderboard projection failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *QuizService) scoreKey(result domain.ScoreResult) domain.ScoreKey {
	key := domain.ScoreKey{UserID: result.UserID, MaterialID: result.MaterialID, QuizID: result.QuizID}
	if s.opts.Keying == KeyByMaterial {
		key.QuizID = ""
	}
	return key
}

func (s *QuizService) beginSubmit(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[userID]; busy {
		return false
	}
	s.inflight[userID] = struct{}{}
	return true
}

func (s *QuizService) endSubmit(userID string) {
	s.mu.Lock()
	delete(s.inflight, userID)
	s.mu.Unlock()
}

// IsPersistenceError reports whether err came from a failed score write.
func IsPersistenceError(err error) bool {
	return errors.Is(err, domain.ErrPersistence)
}
