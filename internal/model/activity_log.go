package model

import "time"

// Action names the kind of mutation that produced a log entry.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// EntityKind selects which aggregate a log entry belongs to.
type EntityKind string

const (
	EntityTask    EntityKind = "task"
	EntitySubtask EntityKind = "subtask"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == EntityTask || k == EntitySubtask
}

// ActivityLog is an immutable record of one status transition. Exactly one
// of TaskID and SubtaskID is set. UserID has no foreign key so entries
// outlive their actor.
type ActivityLog struct {
	ID               uint      `gorm:"primaryKey"`
	Action           Action    `gorm:"size:16;not null"`
	TaskID           *uint     `gorm:"index:idx_activity_logs_task"`
	SubtaskID        *uint     `gorm:"index:idx_activity_logs_subtask"`
	StatusPreviousID *uint     `gorm:"column:status_previous_id"`
	StatusNewID      uint      `gorm:"column:status_new_id;not null"`
	Observation      string    `gorm:"type:text"`
	UserID           uint      `gorm:"index;not null"`
	ChangedAt        time.Time `gorm:"not null;index"`
	CreatedAt        time.Time

	Task    *Task    `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Subtask *Subtask `gorm:"foreignKey:SubtaskID;constraint:OnDelete:CASCADE"`
}

// Transition is a pending log entry produced by an aggregate before it is
// committed.
type Transition struct {
	Action           Action
	Kind             EntityKind
	EntityID         uint
	PreviousStatusID *uint
	NewStatusID      uint
	ActorID          uint
	Observation      string
}

// DefaultObservation is the message stored when the caller supplies none.
func (t Transition) DefaultObservation() string {
	subject := "Task"
	if t.Kind == EntitySubtask {
		subject = "Subtask"
	}
	if t.Action == ActionCreate {
		return subject + " created."
	}
	return subject + " updated."
}

// Entry builds the row to append at changedAt.
func (t Transition) Entry(changedAt time.Time) ActivityLog {
	entry := ActivityLog{
		Action:           t.Action,
		StatusPreviousID: t.PreviousStatusID,
		StatusNewID:      t.NewStatusID,
		Observation:      t.Observation,
		UserID:           t.ActorID,
		ChangedAt:        changedAt,
	}
	if entry.Observation == "" {
		entry.Observation = t.DefaultObservation()
	}
	id := t.EntityID
	switch t.Kind {
	case EntitySubtask:
		entry.SubtaskID = &id
	default:
		entry.TaskID = &id
	}
	return entry
}
