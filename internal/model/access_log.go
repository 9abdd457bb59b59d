package model

import (
	"time"

	"gorm.io/datatypes"
)

// AccessLog is a raw HTTP access record written by the audit middleware.
// It shares nothing with ActivityLog.
type AccessLog struct {
	ID         uint              `gorm:"primaryKey"`
	UserID     *uint             `gorm:"index"`
	RequestID  string            `gorm:"size:36"`
	Method     string            `gorm:"size:10;not null"`
	Endpoint   string            `gorm:"size:255"`
	Path       string            `gorm:"size:255"`
	IPAddress  string            `gorm:"size:45"`
	UserAgent  string            `gorm:"size:255"`
	Details    string            `gorm:"type:text"`
	StatusCode int
	Metadata   datatypes.JSONMap `gorm:"type:json"`
	ActionDate time.Time         `gorm:"not null"`
	CreatedAt  time.Time
}
