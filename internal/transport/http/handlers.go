package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"reading-club-service/internal/app"
	"reading-club-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// decode reads a JSON body into dst and runs its validate tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	profile, err := s.auth.Register(r.Context(), app.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.auth.Profile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.leaderboard.Stats(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMyScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.leaderboard.UserScores(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleAllScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.leaderboard.AllScores(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.catalog.Materials(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *Server) handleQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.catalog.Quizzes(r.Context(), chi.URLParam(r, "materialID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

// handleLeaderboard serves the top entries; limit=0 returns every ranked user.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.LeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := s.leaderboard.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type persistErrorBody struct {
	Error  string             `json:"error"`
	Result domain.ScoreResult `json:"result"`
}

// handleRetry re-runs persistence for the caller's last failed submission.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	result, err := s.quiz.RetryPersist(r.Context(), userIDFrom(r.Context()))
	if app.IsPersistenceError(err) {
		writeJSON(w, http.StatusServiceUnavailable, persistErrorBody{Error: "could not save your score, try again", Result: result})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
