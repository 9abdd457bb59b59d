package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskflow/internal/model"
)

// SubtaskRepository handles CRUD for subtasks. Every query is scoped by the
// parent task id; ownership of the parent is checked by the caller.
type SubtaskRepository struct {
	db *gorm.DB
}

func NewSubtaskRepository(db *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

func (r *SubtaskRepository) WithTx(tx *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{db: tx}
}

func (r *SubtaskRepository) Create(ctx context.Context, subtask *model.Subtask) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(subtask).Error; err != nil {
		return fmt.Errorf("create subtask: %w", err)
	}
	return nil
}

func (r *SubtaskRepository) Save(ctx context.Context, subtask *model.Subtask) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(subtask).Error; err != nil {
		return fmt.Errorf("save subtask: %w", err)
	}
	return nil
}

func (r *SubtaskRepository) FindByID(ctx context.Context, taskID, subtaskID uint) (*model.Subtask, error) {
	var subtask model.Subtask
	err := r.db.WithContext(ctx).
		Preload("Status", unscoped).
		Where("task_id = ? AND id = ?", taskID, subtaskID).
		First(&subtask).Error
	if err != nil {
		return nil, err
	}
	return &subtask, nil
}

func (r *SubtaskRepository) FindForUpdate(ctx context.Context, taskID, subtaskID uint) (*model.Subtask, error) {
	var subtask model.Subtask
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("task_id = ? AND id = ?", taskID, subtaskID).
		First(&subtask).Error
	if err != nil {
		return nil, err
	}
	return &subtask, nil
}

// FindAny returns the subtask even when it has been tombstoned.
func (r *SubtaskRepository) FindAny(ctx context.Context, taskID, subtaskID uint) (*model.Subtask, error) {
	var subtask model.Subtask
	if err := r.db.WithContext(ctx).Unscoped().Where("task_id = ? AND id = ?", taskID, subtaskID).First(&subtask).Error; err != nil {
		return nil, err
	}
	return &subtask, nil
}

func (r *SubtaskRepository) ListByTask(ctx context.Context, taskID uint, search string) ([]model.Subtask, error) {
	q := r.db.WithContext(ctx).Preload("Status", unscoped).Where("task_id = ?", taskID)
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("(title LIKE ? OR description LIKE ?)", like, like)
	}
	var subtasks []model.Subtask
	if err := q.Order("id ASC").Find(&subtasks).Error; err != nil {
		return nil, err
	}
	return subtasks, nil
}

func (r *SubtaskRepository) Delete(ctx context.Context, taskID, subtaskID uint) error {
	res := r.db.WithContext(ctx).Where("task_id = ? AND id = ?", taskID, subtaskID).Delete(&model.Subtask{})
	if res.Error != nil {
		return fmt.Errorf("delete subtask: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SubtaskRepository) DeleteAll(ctx context.Context, taskID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&model.Subtask{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete subtasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
