package model

import (
	"time"

	"gorm.io/gorm"
)

// Task is the primary aggregate whose status transitions are tracked.
type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	StatusID    uint           `gorm:"index;not null" json:"status_id"`
	CategoryID  *uint          `gorm:"index" json:"category_id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	DueDate     *time.Time     `json:"due_date"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Status   *Status   `gorm:"foreignKey:StatusID" json:"status,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Subtasks []Subtask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"subtasks,omitempty"`
}

// Created returns the transition recorded when the task is first written.
func (t *Task) Created(actorID uint) Transition {
	return Transition{
		Action:      ActionCreate,
		Kind:        EntityTask,
		EntityID:    t.ID,
		NewStatusID: t.StatusID,
		ActorID:     actorID,
	}
}

// ApplyStatusChange moves the task to newStatusID and returns the pending
// log entry describing the move. The caller decides how the entry is
// committed relative to the task row.
func (t *Task) ApplyStatusChange(newStatusID, actorID uint, observation string) Transition {
	previous := t.StatusID
	t.StatusID = newStatusID
	if t.Status != nil && t.Status.ID != newStatusID {
		t.Status = nil
	}
	return Transition{
		Action:           ActionUpdate,
		Kind:             EntityTask,
		EntityID:         t.ID,
		PreviousStatusID: &previous,
		NewStatusID:      newStatusID,
		ActorID:          actorID,
		Observation:      observation,
	}
}

// Subtask belongs to exactly one task; its status may be unset.
type Subtask struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TaskID      uint           `gorm:"index;not null" json:"task_id"`
	StatusID    *uint          `gorm:"index" json:"status_id"`
	Title       string         `gorm:"size:150;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Task   *Task   `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Status *Status `gorm:"foreignKey:StatusID" json:"status,omitempty"`
}

// Created returns the creation transition, or false when the subtask was
// created without a status (the ledger only records concrete statuses).
func (s *Subtask) Created(actorID uint) (Transition, bool) {
	if s.StatusID == nil {
		return Transition{}, false
	}
	return Transition{
		Action:      ActionCreate,
		Kind:        EntitySubtask,
		EntityID:    s.ID,
		NewStatusID: *s.StatusID,
		ActorID:     actorID,
	}, true
}

// ApplyStatusChange moves the subtask to newStatusID. PreviousStatusID is
// nil when the subtask had no status before.
func (s *Subtask) ApplyStatusChange(newStatusID, actorID uint, observation string) Transition {
	var previous *uint
	if s.StatusID != nil {
		prev := *s.StatusID
		previous = &prev
	}
	next := newStatusID
	s.StatusID = &next
	if s.Status != nil && s.Status.ID != newStatusID {
		s.Status = nil
	}
	return Transition{
		Action:           ActionUpdate,
		Kind:             EntitySubtask,
		EntityID:         s.ID,
		PreviousStatusID: previous,
		NewStatusID:      newStatusID,
		ActorID:          actorID,
		Observation:      observation,
	}
}
