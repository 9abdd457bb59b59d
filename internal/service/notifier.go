package service

import "time"

// FinalizedEvent is emitted after a task or subtask moves to a status
// flagged as finalized.
type FinalizedEvent struct {
	UserID    uint
	TaskID    uint
	SubtaskID uint
	Title     string
	Status    string
	At        time.Time
}

// Notifier receives events for delivery outside the API. Implementations
// must not block the caller.
type Notifier interface {
	StatusFinalized(event FinalizedEvent)
}

type nopNotifier struct{}

func (nopNotifier) StatusFinalized(FinalizedEvent) {}
