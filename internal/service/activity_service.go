package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// Display values used when a log entry points at something that can no
// longer be shown.
const (
	MissingStatusName = "N/A"
	UnknownUserName   = "Unknown User"
)

// StatusState tells apart the reasons a status reference may render as
// MissingStatusName.
type StatusState string

const (
	StatusNone    StatusState = "none"
	StatusActive  StatusState = "active"
	StatusDeleted StatusState = "deleted"
	StatusMissing StatusState = "missing"
)

// StatusView is a status reference as rendered in history.
type StatusView struct {
	ID    *uint       `json:"id"`
	Name  string      `json:"name"`
	State StatusState `json:"state"`
}

// ActorView is the user who caused a transition.
type ActorView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// HistoryEntry is one resolved ledger entry.
type HistoryEntry struct {
	ID             uint         `json:"id"`
	Action         model.Action `json:"action"`
	PreviousStatus StatusView   `json:"previous_status"`
	NewStatus      StatusView   `json:"new_status"`
	User           ActorView    `json:"user"`
	Observation    string       `json:"observation"`
	ChangedAt      time.Time    `json:"changed_at"`
}

// ActivityService appends status transitions to the ledger and rebuilds
// the history of a task or subtask.
type ActivityService struct {
	repo  *repository.ActivityRepository
	clock Clock
}

func NewActivityService(repo *repository.ActivityRepository, clock Clock) *ActivityService {
	return &ActivityService{repo: repo, clock: clockOrSystem(clock)}
}

// Record appends t. When tx is non-nil the append joins that transaction.
// Status ownership is not checked here.
func (s *ActivityService) Record(ctx context.Context, tx *gorm.DB, t model.Transition) (*model.ActivityLog, error) {
	if !t.Kind.Valid() {
		return nil, fmt.Errorf("record transition: unknown entity kind %q", t.Kind)
	}
	if t.EntityID == 0 || t.NewStatusID == 0 {
		return nil, fmt.Errorf("record transition: entity and new status are required")
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	entry := t.Entry(s.clock.Now())
	if err := repo.Append(ctx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// History streams the entries of one task or subtask in the order they
// happened. Ranging twice queries twice.
func (s *ActivityService) History(ctx context.Context, kind model.EntityKind, entityID uint) iter.Seq2[HistoryEntry, error] {
	return func(yield func(HistoryEntry, error) bool) {
		for row, err := range s.repo.History(ctx, kind, entityID) {
			if err != nil {
				yield(HistoryEntry{}, err)
				return
			}
			if !yield(resolveHistory(row), nil) {
				return
			}
		}
	}
}

// CollectHistory drains History into a slice.
func (s *ActivityService) CollectHistory(ctx context.Context, kind model.EntityKind, entityID uint) ([]HistoryEntry, error) {
	entries := []HistoryEntry{}
	for entry, err := range s.History(ctx, kind, entityID) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func resolveHistory(row repository.HistoryRow) HistoryEntry {
	entry := HistoryEntry{
		ID:             row.ID,
		Action:         row.Action,
		PreviousStatus: resolveStatus(row.Previous),
		NewStatus:      resolveStatus(row.New),
		User:           ActorView{ID: row.ActorID, Name: UnknownUserName},
		Observation:    row.Observation,
		ChangedAt:      row.ChangedAt,
	}
	if row.ActorFound {
		entry.User.Name = row.ActorName
	}
	return entry
}

func resolveStatus(ref repository.StatusRef) StatusView {
	view := StatusView{ID: ref.ID, Name: MissingStatusName}
	switch {
	case ref.ID == nil:
		view.State = StatusNone
	case !ref.Found:
		view.State = StatusMissing
	case ref.Deleted:
		view.Name = ref.Name
		view.State = StatusDeleted
	default:
		view.Name = ref.Name
		view.State = StatusActive
	}
	return view
}
