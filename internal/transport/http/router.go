package http

import (
	"net/http"
	"time"

	"reading-club-service/internal/app"
	"reading-club-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Options carries the transport settings that come from config.
type Options struct {
	AllowedOrigins   []string
	LeaderboardLimit int
}

// Server exposes the quiz, leaderboard, catalog and auth use cases over HTTP.
type Server struct {
	quiz        *app.QuizService
	leaderboard *app.LeaderboardService
	catalog     *app.CatalogService
	auth        *app.AuthService
	metrics     *metrics.Metrics
	log         *zap.Logger
	validate    *validator.Validate
	opts        Options
	ws          *WSHandler
}

func NewServer(quiz *app.QuizService, leaderboard *app.LeaderboardService, catalog *app.CatalogService,
	auth *app.AuthService, m *metrics.Metrics, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LeaderboardLimit <= 0 {
		opts.LeaderboardLimit = 10
	}
	return &Server{
		quiz:        quiz,
		leaderboard: leaderboard,
		catalog:     catalog,
		auth:        auth,
		metrics:     m,
		log:         log,
		validate:    validator.New(),
		opts:        opts,
		ws:          NewWSHandler(quiz, log, opts.AllowedOrigins),
	}
}

// Routes builds the router. The websocket route sits outside the request timeout.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.With(s.requireAuth).Get("/ws", s.ws.ServeWS)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))

		api.Post("/auth/register", s.handleRegister)
		api.Post("/auth/login", s.handleLogin)
		api.Get("/materials", s.handleMaterials)
		api.Get("/materials/{materialID}/quizzes", s.handleQuizzes)

		api.Group(func(pr chi.Router) {
			pr.Use(s.requireAuth)
			pr.Get("/me", s.handleMe)
			pr.Get("/me/stats", s.handleStats)
			pr.Get("/me/scores", s.handleMyScores)
			pr.Get("/leaderboard", s.handleLeaderboard)
			pr.Post("/attempts/retry", s.handleRetry)

			pr.With(s.requireAdmin).Get("/admin/scores", s.handleAllScores)
		})
	})
	return r
}
