package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"reading-club-service/internal/app"
	"reading-club-service/internal/domain"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	quiz, err := SampleCatalog().LoadQuiz(ctx, "animal-farm-1")
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	attempt, err := app.NewAttempt("a1", "u1", quiz, time.Now())
	if err != nil {
		t.Fatalf("new attempt: %v", err)
	}
	if err := store.Put(ctx, attempt); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, ok, _ := store.Get(ctx, "u1"); !ok || got.ID != "a1" {
		t.Fatalf("expected attempt present, got %+v", got)
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "u1"); ok {
		t.Fatalf("expected attempt removed")
	}
}

func TestScoreStoreKeysAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := domain.Score{ID: "s1", UserID: "u1", MaterialID: "m1", QuizID: "q1", Points: 5, CompletedAt: base}
	newer := domain.Score{ID: "s2", UserID: "u1", MaterialID: "m1", QuizID: "q2", Points: 7, CompletedAt: base.Add(time.Hour)}
	other := domain.Score{ID: "s3", UserID: "u2", MaterialID: "m1", QuizID: "q1", Points: 9, CompletedAt: base}
	for _, s := range []domain.Score{older, newer, other} {
		if err := store.InsertScore(ctx, s); err != nil {
			t.Fatalf("insert %s: %v", s.ID, err)
		}
	}

	if err := store.InsertScore(ctx, older); !errors.Is(err, domain.ErrMutation) {
		t.Fatalf("expected duplicate key rejected, got %v", err)
	}
	if err := store.UpdateScore(ctx, domain.Score{UserID: "u9", MaterialID: "m1", QuizID: "q1"}); !errors.Is(err, domain.ErrMutation) {
		t.Fatalf("expected update of missing row rejected, got %v", err)
	}

	rows, _ := store.ListUserScores(ctx, "u1")
	if len(rows) != 2 || rows[0].ID != "s2" || rows[1].ID != "s1" {
		t.Fatalf("expected newest first, got %+v", rows)
	}
	all, _ := store.ListScores(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
}

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()

	profile := domain.UserProfile{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	if err := store.CreateProfile(ctx, profile, "hash"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateProfile(ctx, domain.UserProfile{ID: "u2", Email: "ada@example.com"}, "hash"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}

	creds, err := store.GetCredentials(ctx, "ada@example.com")
	if err != nil || creds.UserID != "u1" || creds.PasswordHash != "hash" {
		t.Fatalf("unexpected credentials %+v (%v)", creds, err)
	}
	if _, err := store.GetProfile(ctx, "ghost"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnswerStoreUpserts(t *testing.T) {
	ctx := context.Background()
	store := NewAnswerStore()

	_ = store.UpsertAnswer(ctx, domain.AnswerRecord{UserID: "u1", QuizID: "q", QuestionID: "a", Answer: "x"})
	_ = store.UpsertAnswer(ctx, domain.AnswerRecord{UserID: "u1", QuizID: "q", QuestionID: "a", Answer: "y"})
	_ = store.UpsertAnswer(ctx, domain.AnswerRecord{UserID: "u1", QuizID: "other", QuestionID: "b", Answer: "z"})

	records, _ := store.ListAnswers(ctx, "u1", "q")
	if len(records) != 1 || records[0].Answer != "y" {
		t.Fatalf("expected a single latest answer, got %+v", records)
	}
}

func TestAnswerStoreIgnoresOlderRecord(t *testing.T) {
	ctx := context.Background()
	store := NewAnswerStore()
	newer := time.Date(2024, 11, 22, 10, 0, 5, 0, time.UTC)

	_ = store.UpsertAnswer(ctx, domain.AnswerRecord{UserID: "u1", QuizID: "q", QuestionID: "a", Answer: "new", AnsweredAt: newer})
	_ = store.UpsertAnswer(ctx, domain.AnswerRecord{UserID: "u1", QuizID: "q", QuestionID: "a", Answer: "old", AnsweredAt: newer.Add(-time.Second)})

	records, _ := store.ListAnswers(ctx, "u1", "q")
	if len(records) != 1 || records[0].Answer != "new" {
		t.Fatalf("expected the newer answer to stay, got %+v", records)
	}
}
