package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"reading-club-service/internal/app"
	"reading-club-service/internal/domain"
	"reading-club-service/internal/infra/postgres"
	pgmigrations "reading-club-service/internal/infra/postgres/migrations"
	infraredis "reading-club-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
)

func TestQuizAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateAndSeed(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	catalog := postgres.NewCatalog(pool)
	scores := postgres.NewScoreStore(pool)
	answers := postgres.NewAnswerStore(pool)
	profiles := postgres.NewProfileStore(pool)
	board := infraredis.NewLeaderboard(redisClient)

	quizService := app.NewQuizService(
		infraredis.NewAttemptStore(redisClient, 5*time.Minute),
		infraredis.NewQuizRepository(redisClient, catalog, 5*time.Minute, nil),
		scores,
		app.QuizOptions{PersistAnswers: true, Rehydrate: true},
		app.WithAnswerRepository(answers),
		app.WithScoreListener(board),
	)
	auth := app.NewAuthService(profiles, app.AuthOptions{Secret: "integration", BcryptCost: bcrypt.MinCost}, nil)
	leaderboard := app.NewLeaderboardService(scores, profiles, board, nil, nil)

	alice, err := auth.Register(ctx, app.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, err := auth.Register(ctx, app.RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "password2"})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	if _, err := auth.Register(ctx, app.RegisterInput{Name: "Again", Email: "alice@example.com", Password: "password3"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected duplicate email rejected, got %v", err)
	}

	first := takeQuiz(t, quizService, alice.ID, map[string]string{"q1": "Old Major", "q2": "true", "q3": "Boxer"})
	if first.EarnedPoints != 35 || first.Percentage != 100 || !first.Improved {
		t.Fatalf("unexpected first result %+v", first)
	}
	takeQuiz(t, quizService, bob.ID, map[string]string{"q1": "Old Major", "q2": "false", "q3": "Clover"})

	worse := takeQuiz(t, quizService, alice.ID, map[string]string{"q1": "Snowball", "q2": "true", "q3": "Boxer"})
	if worse.Improved {
		t.Fatalf("worse attempt must not replace the stored best")
	}
	stored, found, err := scores.GetScore(ctx, domain.ScoreKey{UserID: alice.ID, MaterialID: "animal-farm", QuizID: "af-1"})
	if err != nil || !found || stored.Points != 35 || stored.TotalPoints != 35 {
		t.Fatalf("unexpected stored row %+v (found=%v err=%v)", stored, found, err)
	}

	entries, err := leaderboard.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].DisplayName != "Alice" || entries[0].TotalPoints != 35 || entries[1].TotalPoints != 10 {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}

	stats, err := leaderboard.Stats(ctx, bob.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !stats.Ranked || stats.Rank != 2 || stats.TotalPoints != 10 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	quizService.Wait()
	records, err := answers.ListAnswers(ctx, alice.ID, "af-1")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected one persisted answer per question, got %d", len(records))
	}
}

func takeQuiz(t *testing.T, service *app.QuizService, userID string, answers map[string]string) domain.ScoreResult {
	t.Helper()
	ctx := context.Background()
	if _, err := service.StartAttempt(ctx, userID, "animal-farm", "af-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for questionID, value := range answers {
		if _, err := service.RecordAnswer(ctx, userID, questionID, value); err != nil {
			t.Fatalf("answer %s: %v", questionID, err)
		}
	}
	result, err := service.Submit(ctx, userID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return result
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "club", "POSTGRES_PASSWORD": "clubpass", "POSTGRES_DB": "clubdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://club:clubpass@%s:%s/clubdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// migrateAndSeed applies the schema and inserts one material with a three-question quiz.
// Question one uses the lettered option columns, the rest the options array.
func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	statements := []string{
		`INSERT INTO materials (id, title, is_active, order_index) VALUES ('animal-farm', 'Animal Farm', TRUE, 1)`,
		`INSERT INTO quizzes (id, material_id, title, is_active, order_index) VALUES ('af-1', 'animal-farm', 'Chapters 1-3', TRUE, 1)`,
		`INSERT INTO questions (id, quiz_id, material_id, question_text, question_type, option_a, option_b, option_c, option_d, correct_answer, points, order_index)
		 VALUES ('q1', 'af-1', 'animal-farm', 'Who gives the first speech?', 'multiple_choice', 'Old Major', 'Napoleon', 'Snowball', 'Boxer', 'Old Major', 10, 1)`,
		`INSERT INTO questions (id, quiz_id, material_id, question_text, question_type, correct_answer, points, order_index)
		 VALUES ('q2', 'af-1', 'animal-farm', 'The farm is renamed.', 'true_false', 'true', 5, 2)`,
		`INSERT INTO questions (id, quiz_id, material_id, question_text, question_type, correct_answer, points)
		 VALUES ('q3', 'af-1', 'animal-farm', 'Name the hardest-working horse.', 'short_answer', 'Boxer', 20)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
