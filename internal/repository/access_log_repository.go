package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// AccessLogRepository stores raw HTTP access records.
type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

func (r *AccessLogRepository) Create(ctx context.Context, entry *model.AccessLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create access log: %w", err)
	}
	return nil
}

// ListByUser returns the newest records first.
func (r *AccessLogRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.AccessLog, error) {
	var entries []model.AccessLog
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("action_date DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
