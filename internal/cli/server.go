package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reading-club-service/internal/app"
	"reading-club-service/internal/config"
	"reading-club-service/internal/infra/memory"
	"reading-club-service/internal/infra/postgres"
	infraredis "reading-club-service/internal/infra/redis"
	"reading-club-service/internal/logger"
	"reading-club-service/internal/metrics"
	transport "reading-club-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the reading club server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// catalogSource loads single quizzes for the question cache and lists the catalog.
type catalogSource interface {
	memory.QuizLoader
	app.CatalogRepository
}

// stores groups the repositories chosen from config.
type stores struct {
	catalog  catalogSource
	attempts app.AttemptRepository
	quizzes  app.QuizRepository
	scores   app.ScoreRepository
	answers  app.AnswerRepository
	profiles app.ProfileRepository
	board    *infraredis.Leaderboard
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Mode, cfg.Log.File)
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	st := buildStores(cfg, pool, redisClient, log)
	m := metrics.New()

	quizOpts := []app.QuizServiceOption{app.WithLogger(log), app.WithMetrics(m)}
	if st.answers != nil {
		quizOpts = append(quizOpts, app.WithAnswerRepository(st.answers))
	}
	var ranking app.RankingSource
	if st.board != nil {
		if err := rebuildLeaderboard(ctx, st); err != nil {
			log.Warn("leaderboard rebuild failed, serving client-side ranking", zap.Error(err))
		} else {
			quizOpts = append(quizOpts, app.WithScoreListener(st.board))
			ranking = st.board
		}
	}

	quizService := app.NewQuizService(st.attempts, st.quizzes, st.scores, app.QuizOptions{
		Model:          app.ScoringModel(cfg.Scoring.Model),
		Keying:         app.ScoreKeying(cfg.Scoring.Keying),
		AllowPartial:   cfg.Scoring.AllowPartial,
		PersistAnswers: cfg.Scoring.PersistAnswers,
		Rehydrate:      cfg.Scoring.Rehydrate,
	}, quizOpts...)
	leaderboard := app.NewLeaderboardService(st.scores, st.profiles, ranking, m, log)
	auth := app.NewAuthService(st.profiles, app.AuthOptions{
		Secret:      cfg.Auth.Secret,
		TokenTTL:    config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour),
		Timeout:     config.TTLDuration(cfg.Auth.Timeout, 30*time.Second),
		AdminEmails: cfg.Auth.Admins,
	}, log)

	srv := transport.NewServer(quizService, leaderboard, app.NewCatalogService(st.catalog), auth, m, log, transport.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		LeaderboardLimit: cfg.Leaderboard.Limit,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting reading club service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	quizService.Wait()
	return err
}

// buildStores prefers Postgres for durable rows and Redis for attempts and caches, and
// falls back to in-memory stores for anything not configured.
func buildStores(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) stores {
	var st stores

	if pool != nil {
		st.catalog = postgres.NewCatalog(pool)
		st.scores = postgres.NewScoreStore(pool)
		st.answers = postgres.NewAnswerStore(pool)
		st.profiles = postgres.NewProfileStore(pool)
	} else {
		log.Warn("postgres not configured, using the in-memory sample catalog")
		st.catalog = memory.SampleCatalog()
		st.scores = memory.NewScoreStore()
		st.answers = memory.NewAnswerStore()
		st.profiles = memory.NewProfileStore()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		st.quizzes = infraredis.NewQuizRepository(redisClient, st.catalog, quizTTL, log)
		st.attempts = infraredis.NewAttemptStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
		if cfg.Leaderboard.UseRedis {
			st.board = infraredis.NewLeaderboard(redisClient)
		}
	} else {
		st.quizzes = memory.NewQuizRepository(st.catalog, quizTTL)
		st.attempts = memory.NewAttemptStore()
	}
	return st
}

// rebuildLeaderboard seeds the sorted set from stored rows so it matches the score table.
func rebuildLeaderboard(ctx context.Context, st stores) error {
	rows, err := st.scores.ListScores(ctx)
	if err != nil {
		return err
	}
	return st.board.Rebuild(ctx, rows)
}
