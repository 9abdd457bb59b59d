package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// TokenRepository stores hashed bearer tokens.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) WithTx(tx *gorm.DB) *TokenRepository {
	return &TokenRepository{db: tx}
}

func (r *TokenRepository) Create(ctx context.Context, token *model.AccessToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// FindValid returns the unexpired token with the given hash together with
// its active owner.
func (r *TokenRepository) FindValid(ctx context.Context, hash string, now time.Time) (*model.AccessToken, error) {
	var token model.AccessToken
	db := r.db.WithContext(ctx)
	err := db.Where("token_hash = ? AND expires_at > ?", hash, now).First(&token).Error
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := db.First(&user, token.UserID).Error; err != nil {
		return nil, err
	}
	token.User = &user
	return &token, nil
}

// DeleteByUser revokes every token of the user.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.AccessToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeExpired removes tokens that expired before now.
func (r *TokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.AccessToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
