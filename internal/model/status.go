package model

import (
	"time"

	"gorm.io/gorm"
)

// DefaultColor is used when a status or category is created without one.
const DefaultColor = "#FFFFFF"

// Status is one step of a user's workflow. Order and IsFinalized are
// metadata for clients; any status can follow any other.
type Status struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;uniqueIndex:idx_statuses_user_name,where:deleted_at IS NULL;uniqueIndex:idx_statuses_user_order,where:deleted_at IS NULL" json:"user_id"`
	Name        string         `gorm:"size:100;not null;uniqueIndex:idx_statuses_user_name,where:deleted_at IS NULL" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Color       string         `gorm:"size:7;not null" json:"color"`
	Order       int            `gorm:"column:order;not null;uniqueIndex:idx_statuses_user_order,where:deleted_at IS NULL" json:"order"`
	IsFinalized bool           `gorm:"default:false" json:"is_finalized"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	User        *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Deleted reports whether the status has been tombstoned.
func (s Status) Deleted() bool {
	return s.DeletedAt.Valid
}

// DefaultStatuses is the workflow every new user starts with.
func DefaultStatuses(userID uint) []Status {
	return []Status{
		{UserID: userID, Name: "On Hold", Description: "Waiting to start", Color: "#808080", Order: 1},
		{UserID: userID, Name: "In Progress", Description: "Being worked on", Color: "#0000FF", Order: 2},
		{UserID: userID, Name: "Cancelled", Description: "Cancelled by the user", Color: "#FF0000", Order: 3, IsFinalized: true},
		{UserID: userID, Name: "Done", Description: "Completed successfully", Color: "#00FF00", Order: 4, IsFinalized: true},
	}
}

// DefaultCategories is the set of categories every new user starts with.
func DefaultCategories(userID uint) []Category {
	return []Category{
		{UserID: userID, Name: "Work", Color: "#FF5733"},
		{UserID: userID, Name: "Home", Color: "#33FF57"},
		{UserID: userID, Name: "Studies", Color: "#3357FF"},
	}
}
