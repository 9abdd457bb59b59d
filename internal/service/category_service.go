package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// CategoryPatch holds the fields changed by an update; nil means unchanged.
type CategoryPatch struct {
	Name  *string
	Color *string
}

// CategoryService provides owner-scoped category management.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) Create(ctx context.Context, user *model.User, name, color string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	verr := &ValidationError{}
	checkName(verr, "name", name, 100)
	checkColor(verr, color)
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, user.ID, name, 0); err != nil {
		return nil, err
	}

	category := model.Category{UserID: user.ID, Name: name, Color: color}
	if category.Color == "" {
		category.Color = model.DefaultColor
	}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, duplicate(err, "name")
	}
	return &category, nil
}

func (s *CategoryService) Get(ctx context.Context, user *model.User, id uint) (*model.Category, error) {
	category, err := s.repo.FindActive(ctx, user.ID, id)
	if err != nil {
		return nil, notFound(err, "category")
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context, user *model.User, name string) ([]model.Category, error) {
	return s.repo.ListByUser(ctx, user.ID, strings.TrimSpace(name))
}

func (s *CategoryService) Update(ctx context.Context, user *model.User, id uint, patch CategoryPatch) (*model.Category, error) {
	category, err := s.repo.FindActive(ctx, user.ID, id)
	if err != nil {
		return nil, notFound(err, "category")
	}

	verr := &ValidationError{}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
		checkName(verr, "name", trimmed, 100)
	}
	if patch.Color != nil {
		checkColor(verr, *patch.Color)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if err := s.checkName(ctx, user.ID, *patch.Name, category.ID); err != nil {
			return nil, err
		}
		category.Name = *patch.Name
	}
	if patch.Color != nil && *patch.Color != "" {
		category.Color = *patch.Color
	}
	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(err, "category")
		}
		return nil, duplicate(err, "name")
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, user *model.User, id uint) error {
	if err := s.repo.Delete(ctx, user.ID, id); err != nil {
		return notFound(err, "category")
	}
	return nil
}

func (s *CategoryService) DeleteAll(ctx context.Context, user *model.User) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("categories: %w", ErrNotFound)
	}
	return n, nil
}

func (s *CategoryService) checkName(ctx context.Context, userID uint, name string, excludeID uint) error {
	taken, err := s.repo.NameTaken(ctx, userID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return conflict("name", "has already been taken")
	}
	return nil
}
