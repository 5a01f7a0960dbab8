package domain

import "errors"

var (
	// ErrAuth is returned for bad credentials or an expired session.
	ErrAuth = errors.New("authentication failed")
	// ErrQuery wraps read failures from a backing store.
	ErrQuery = errors.New("query failed")
	// ErrMutation wraps write failures from a backing store.
	ErrMutation = errors.New("mutation failed")
	// ErrPersistence is returned when a computed score could not be stored.
	ErrPersistence = errors.New("score persistence failed")

	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizInactive indicates the quiz or its material is hidden from students.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrEmptyQuiz is returned when a quiz has no questions to attempt.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrQuestionNotFound indicates a question ID outside the active attempt.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidAnswer indicates a value that is not a valid option token.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidQuestion indicates question content that breaks its type's rules.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrAttemptNotFound is returned when the user has no attempt in progress.
	ErrAttemptNotFound = errors.New("no attempt in progress")
	// ErrIncompleteAttempt is returned when submitting before every question is answered.
	ErrIncompleteAttempt = errors.New("all questions must be answered before submitting")
	// ErrSubmitInProgress rejects a second submit while the first is still in flight.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrNothingPending is returned by a retry when no failed persistence is waiting.
	ErrNothingPending = errors.New("no pending score to persist")

	// ErrRankingUnavailable means a ranking projection cannot be trusted to match the score rows.
	ErrRankingUnavailable = errors.New("ranking unavailable")

	// ErrProfileNotFound indicates an unknown user.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEmailTaken is returned when registering an email twice.
	ErrEmailTaken = errors.New("email already registered")
)

// AuthError carries a message suitable for showing to the user verbatim.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrAuth
}

// Is lets errors.Is(err, ErrAuth) match every AuthError.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}
