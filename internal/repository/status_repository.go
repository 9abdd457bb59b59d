package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// StatusFilter narrows status listings.
type StatusFilter struct {
	Name        string
	Description string
	IsFinalized *bool
}

// StatusRepository manages workflow statuses. Find* methods come in two
// flavours: FindActive hides tombstones, FindAny does not.
type StatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) WithTx(tx *gorm.DB) *StatusRepository {
	return &StatusRepository{db: tx}
}

func (r *StatusRepository) Create(ctx context.Context, status *model.Status) error {
	if err := r.db.WithContext(ctx).Create(status).Error; err != nil {
		return fmt.Errorf("create status: %w", err)
	}
	return nil
}

// CreateBatch inserts several statuses at once (default seeding).
func (r *StatusRepository) CreateBatch(ctx context.Context, statuses []model.Status) error {
	if len(statuses) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&statuses).Error; err != nil {
		return fmt.Errorf("create statuses: %w", err)
	}
	return nil
}

// Update writes the editable columns of an active status. It returns
// gorm.ErrRecordNotFound when the status was deleted in the meantime.
func (r *StatusRepository) Update(ctx context.Context, status *model.Status) error {
	res := r.db.WithContext(ctx).Model(status).
		Where("user_id = ?", status.UserID).
		Select("Name", "Description", "Color", "Order", "IsFinalized", "UpdatedAt").
		Updates(status)
	if res.Error != nil {
		return fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindActive returns a non-deleted status owned by userID.
func (r *StatusRepository) FindActive(ctx context.Context, userID, id uint) (*model.Status, error) {
	var status model.Status
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// FindAny returns the status by id even when it has been tombstoned.
func (r *StatusRepository) FindAny(ctx context.Context, id uint) (*model.Status, error) {
	var status model.Status
	if err := r.db.WithContext(ctx).Unscoped().First(&status, id).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// ListByUser returns active statuses ordered by workflow order.
func (r *StatusRepository) ListByUser(ctx context.Context, userID uint, filter StatusFilter) ([]model.Status, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Name != "" {
		q = q.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Description != "" {
		q = q.Where("description LIKE ?", "%"+filter.Description+"%")
	}
	if filter.IsFinalized != nil {
		q = q.Where("is_finalized = ?", *filter.IsFinalized)
	}
	var statuses []model.Status
	if err := q.Order(`"order" ASC, id ASC`).Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// NameTaken reports whether another active status of the user has name.
func (r *StatusRepository) NameTaken(ctx context.Context, userID uint, name string, excludeID uint) (bool, error) {
	return r.exists(ctx, userID, "name = ?", name, excludeID)
}

// OrderTaken reports whether another active status of the user has order.
func (r *StatusRepository) OrderTaken(ctx context.Context, userID uint, order int, excludeID uint) (bool, error) {
	return r.exists(ctx, userID, `"order" = ?`, order, excludeID)
}

func (r *StatusRepository) exists(ctx context.Context, userID uint, cond string, value any, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Status{}).Where("user_id = ?", userID).Where(cond, value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check status uniqueness: %w", err)
	}
	return count > 0, nil
}

// MaxOrder returns the highest order ever assigned for the user, tombstones
// included, so auto-assigned orders never collide.
func (r *StatusRepository) MaxOrder(ctx context.Context, userID uint) (int, error) {
	var highest sql.NullInt64
	row := r.db.WithContext(ctx).Unscoped().Model(&model.Status{}).
		Where("user_id = ?", userID).
		Select(`MAX("order")`).
		Row()
	if err := row.Scan(&highest); err != nil {
		return 0, fmt.Errorf("max status order: %w", err)
	}
	return int(highest.Int64), nil
}

// Delete tombstones one status. It returns gorm.ErrRecordNotFound when
// nothing matched.
func (r *StatusRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Status{})
	if res.Error != nil {
		return fmt.Errorf("delete status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAll tombstones every active status of the user.
func (r *StatusRepository) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Status{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete statuses: %w", res.Error)
	}
	return res.RowsAffected, nil
}
