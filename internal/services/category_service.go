package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/google/uuid"
)

var ErrInvalidCategory = errors.New("invalid category")

type CategoryService struct {
	store store.CategoryStore
}

func NewCategoryService(st store.CategoryStore) *CategoryService {
	return &CategoryService{store: st}
}

func (s *CategoryService) Create(ctx context.Context, req *dto.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	category := &models.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		ReportIDs:   []string{},
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetMany returns the categories in the order asked for. Any unknown id
// fails the whole lookup.
func (s *CategoryService) GetMany(ctx context.Context, ids []string) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		category, err := s.store.GetCategory(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", engine.ErrCategoryNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get category: %w", err)
		}
		categories = append(categories, *category)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no category ids given", ErrInvalidCategory)
	}
	return categories, nil
}
