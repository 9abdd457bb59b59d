package model

import (
	"time"

	"gorm.io/gorm"
)

// User owns statuses, categories and tasks.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Email          string         `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	TelegramChatID *int64         `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// AccessToken stores the hash of an opaque bearer token.
type AccessToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	User      *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
