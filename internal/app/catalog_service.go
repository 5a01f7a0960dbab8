package app

import (
	"context"
	"sort"

	"reading-club-service/internal/domain"
)

// CatalogRepository lists reading materials and their quizzes.
type CatalogRepository interface {
	ListMaterials(ctx context.Context) ([]domain.Material, error)
	ListQuizzes(ctx context.Context, materialID string) ([]domain.Quiz, error)
}

// CatalogService is the student-facing, read-only view of the catalog.
type CatalogService struct {
	catalog CatalogRepository
}

func NewCatalogService(catalog CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Materials lists active materials by display order.
func (s *CatalogService) Materials(ctx context.Context) ([]domain.Material, error) {
	all, err := s.catalog.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Material, 0, len(all))
	for _, m := range all {
		if m.Active {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Quizzes lists the visible quizzes of a material by display order, without questions.
func (s *CatalogService) Quizzes(ctx context.Context, materialID string) ([]domain.Quiz, error) {
	all, err := s.catalog.ListQuizzes(ctx, materialID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, 0, len(all))
	for _, q := range all {
		if q.Visible() {
			q.Questions = nil
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
