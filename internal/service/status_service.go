package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// StatusInput holds the fields accepted when creating a status. A nil Order
// is assigned automatically.
type StatusInput struct {
	Name        string
	Description string
	Color       string
	Order       *int
	IsFinalized bool
}

// StatusPatch holds the fields changed by an update; nil means unchanged.
type StatusPatch struct {
	Name        *string
	Description *string
	Color       *string
	Order       *int
	IsFinalized *bool
}

// StatusService manages a user's workflow statuses.
type StatusService struct {
	repo *repository.StatusRepository
}

func NewStatusService(repo *repository.StatusRepository) *StatusService {
	return &StatusService{repo: repo}
}

func (s *StatusService) Create(ctx context.Context, user *model.User, input StatusInput) (*model.Status, error) {
	input.Name = strings.TrimSpace(input.Name)
	verr := &ValidationError{}
	checkName(verr, "name", input.Name, 100)
	checkColor(verr, input.Color)
	checkMaxLen(verr, "description", input.Description, 1000)
	if input.Order != nil && *input.Order < 1 {
		verr.Add("order", "must be at least 1")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, user.ID, 0, &input.Name, input.Order); err != nil {
		return nil, err
	}

	status := model.Status{
		UserID:      user.ID,
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		IsFinalized: input.IsFinalized,
	}
	if status.Color == "" {
		status.Color = model.DefaultColor
	}
	if input.Order != nil {
		status.Order = *input.Order
	} else {
		highest, err := s.repo.MaxOrder(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		status.Order = highest + 1
	}

	if err := s.repo.Create(ctx, &status); err != nil {
		return nil, s.duplicateField(ctx, &status, err)
	}
	return &status, nil
}

func (s *StatusService) Get(ctx context.Context, user *model.User, id uint) (*model.Status, error) {
	status, err := s.repo.FindActive(ctx, user.ID, id)
	if err != nil {
		return nil, notFound(err, "status")
	}
	return status, nil
}

func (s *StatusService) List(ctx context.Context, user *model.User, filter repository.StatusFilter) ([]model.Status, error) {
	return s.repo.ListByUser(ctx, user.ID, filter)
}

func (s *StatusService) Update(ctx context.Context, user *model.User, id uint, patch StatusPatch) (*model.Status, error) {
	status, err := s.repo.FindActive(ctx, user.ID, id)
	if err != nil {
		return nil, notFound(err, "status")
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
	if patch.Description != nil {
		checkMaxLen(verr, "description", *patch.Description, 1000)
	}
	if patch.Order != nil && *patch.Order < 1 {
		verr.Add("order", "must be at least 1")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, user.ID, status.ID, patch.Name, patch.Order); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		status.Name = *patch.Name
	}
	if patch.Description != nil {
		status.Description = *patch.Description
	}
	if patch.Color != nil && *patch.Color != "" {
		status.Color = *patch.Color
	}
	if patch.Order != nil {
		status.Order = *patch.Order
	}
	if patch.IsFinalized != nil {
		status.IsFinalized = *patch.IsFinalized
	}

	if err := s.repo.Update(ctx, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(err, "status")
		}
		return nil, s.duplicateField(ctx, status, err)
	}
	return status, nil
}

// Delete tombstones the status. Tasks and log entries that reference it
// keep resolving its last known name.
func (s *StatusService) Delete(ctx context.Context, user *model.User, id uint) error {
	if err := s.repo.Delete(ctx, user.ID, id); err != nil {
		return notFound(err, "status")
	}
	return nil
}

func (s *StatusService) DeleteAll(ctx context.Context, user *model.User) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("statuses: %w", ErrNotFound)
	}
	return n, nil
}

func (s *StatusService) checkUnique(ctx context.Context, userID, excludeID uint, name *string, order *int) error {
	if name != nil {
		taken, err := s.repo.NameTaken(ctx, userID, *name, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return conflict("name", "has already been taken")
		}
	}
	if order != nil {
		taken, err := s.repo.OrderTaken(ctx, userID, *order, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return conflict("order", "has already been taken")
		}
	}
	return nil
}

// duplicateField reports a unique index violation on whichever of name and
// order another active status of the user already holds.
func (s *StatusService) duplicateField(ctx context.Context, status *model.Status, err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	taken, lookupErr := s.repo.NameTaken(ctx, status.UserID, status.Name, status.ID)
	if lookupErr != nil {
		return errors.Join(err, lookupErr)
	}
	if taken {
		return conflict("name", "has already been taken")
	}
	return conflict("order", "has already been taken")
}

func checkName(verr *ValidationError, field, value string, limit int) {
	if value == "" {
		verr.Add(field, "is required")
		return
	}
	checkMaxLen(verr, field, value, limit)
}

func checkMaxLen(verr *ValidationError, field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		verr.Add(field, fmt.Sprintf("may not be greater than %d characters", limit))
	}
}

func checkColor(verr *ValidationError, color string) {
	if color != "" && !colorPattern.MatchString(color) {
		verr.Add("color", "must be a hex color like #A1B2C3")
	}
}
