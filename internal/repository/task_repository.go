package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskflow/internal/model"
)

// TaskFilter narrows task listings.
type TaskFilter struct {
	Search     string
	StatusID   *uint
	CategoryID *uint
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// FindByID returns an active task owned by userID with its status,
// category and active subtasks. The current status is loaded even when
// tombstoned.
func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := withTaskRelations(r.db.WithContext(ctx)).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Subtasks.Status", unscoped).
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindActive returns the bare active task row owned by userID.
func (r *TaskRepository) FindActive(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindForUpdate loads the bare task row, locking it where the database
// supports row locks, so the captured status cannot go stale before the
// update commits.
func (r *TaskRepository) FindForUpdate(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindAny returns a task owned by userID even when it has been tombstoned.
func (r *TaskRepository) FindAny(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Unscoped().Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByUser returns active tasks with status and category.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uint, filter TaskFilter) ([]model.Task, error) {
	q := withTaskRelations(r.db.WithContext(ctx)).Where("user_id = ?", userID)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("(name LIKE ? OR description LIKE ?)", like, like)
	}
	if filter.StatusID != nil {
		q = q.Where("status_id = ?", *filter.StatusID)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	var tasks []model.Task
	if err := q.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListDueBefore returns active tasks of the user with a due date before
// the given instant, earliest first.
func (r *TaskRepository) ListDueBefore(ctx context.Context, userID uint, before time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := withTaskRelations(r.db.WithContext(ctx)).
		Where("user_id = ? AND due_date IS NOT NULL AND due_date < ?", userID, before).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Delete tombstones a task. Its activity history is untouched.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepository) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func withTaskRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Status", unscoped).Preload("Category")
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
