package app_test

import (
	"context"
	"testing"

	"reading-club-service/internal/app"
	"reading-club-service/internal/domain"
	"reading-club-service/internal/infra/memory"
)

func TestCatalogServiceListsVisibleItemsInOrder(t *testing.T) {
	catalog := memory.NewCatalog()
	catalog.AddMaterial(domain.Material{ID: "b-book", Title: "B", Active: true, Order: 2})
	catalog.AddMaterial(domain.Material{ID: "a-book", Title: "A", Active: true, Order: 2})
	catalog.AddMaterial(domain.Material{ID: "first", Title: "First", Active: true, Order: 1})
	catalog.AddMaterial(domain.Material{ID: "hidden", Title: "Hidden", Active: false, Order: 0})

	catalog.AddQuiz(domain.Quiz{ID: "q-late", MaterialID: "first", Active: true, Order: 3},
		domain.Question{ID: "x1", Kind: domain.ShortAnswer{Correct: "x"}, Points: 1})
	catalog.AddQuiz(domain.Quiz{ID: "q-early", MaterialID: "first", Active: true, Order: 1})
	catalog.AddQuiz(domain.Quiz{ID: "q-off", MaterialID: "first", Active: false, Order: 2})
	catalog.AddQuiz(domain.Quiz{ID: "q-hidden-material", MaterialID: "hidden", Active: true})

	service := app.NewCatalogService(catalog)
	ctx := context.Background()

	materials, err := service.Materials(ctx)
	if err != nil {
		t.Fatalf("materials: %v", err)
	}
	var ids []string
	for _, m := range materials {
		ids = append(ids, m.ID)
	}
	if len(ids) != 3 || ids[0] != "first" || ids[1] != "a-book" || ids[2] != "b-book" {
		t.Fatalf("unexpected material order %v", ids)
	}

	quizzes, err := service.Quizzes(ctx, "first")
	if err != nil {
		t.Fatalf("quizzes: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != "q-early" || quizzes[1].ID != "q-late" {
		t.Fatalf("unexpected quizzes %+v", quizzes)
	}
	if quizzes[1].Questions != nil {
		t.Fatalf("quiz listing must not carry questions")
	}

	hidden, err := service.Quizzes(ctx, "hidden")
	if err != nil {
		t.Fatalf("quizzes: %v", err)
	}
	if len(hidden) != 0 {
		t.Fatalf("quizzes of an inactive material must be hidden, got %+v", hidden)
	}
}
