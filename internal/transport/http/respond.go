package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"reading-club-service/internal/domain"

	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrSubmitInProgress),
		errors.Is(err, domain.ErrNothingPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuizInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEmptyQuiz),
		errors.Is(err, domain.ErrInvalidAnswer),
		errors.Is(err, domain.ErrIncompleteAttempt),
		errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPersistence),
		errors.Is(err, domain.ErrQuery),
		errors.Is(err, domain.ErrMutation):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage keeps internal failures out of response bodies.
func errorMessage(err error, status int) string {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	switch status {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusServiceUnavailable:
		return "storage unavailable, try again"
	}
	return err.Error()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: errorMessage(err, status)})
}
