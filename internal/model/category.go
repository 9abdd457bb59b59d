package model

import (
	"time"

	"gorm.io/gorm"
)

// Category groups tasks by area (work, home, studies, etc.).
type Category struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_categories_user_name,where:deleted_at IS NULL" json:"user_id"`
	Name      string         `gorm:"size:100;not null;uniqueIndex:idx_categories_user_name,where:deleted_at IS NULL" json:"name"`
	Color     string         `gorm:"size:7;not null" json:"color"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	User      *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
