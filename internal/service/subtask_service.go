package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// SubtaskInput represents data required to create a subtask. StatusID may
// be nil.
type SubtaskInput struct {
	Title       string
	Description string
	StatusID    *uint
}

// SubtaskPatch holds the fields changed by an update; nil means unchanged.
// A status, once set, can be replaced but not cleared.
type SubtaskPatch struct {
	Title       *string
	Description *string
	StatusID    *uint
	Observation string
}

// SubtaskDetail is a subtask together with its history.
type SubtaskDetail struct {
	*model.Subtask
	History []HistoryEntry `json:"history"`
}

// SubtaskService manages subtasks under tasks owned by the caller.
type SubtaskService struct {
	ledger   ledger
	tasks    *repository.TaskRepository
	subtasks *repository.SubtaskRepository
	statuses *repository.StatusRepository
	activity *ActivityService
	notifier Notifier
	clock    Clock
}

func NewSubtaskService(
	tx *repository.Transactor,
	tasks *repository.TaskRepository,
	subtasks *repository.SubtaskRepository,
	statuses *repository.StatusRepository,
	activity *ActivityService,
	logMode string,
	clock Clock,
) *SubtaskService {
	return &SubtaskService{
		ledger:   newLedger(tx, activity, logMode),
		tasks:    tasks,
		subtasks: subtasks,
		statuses: statuses,
		activity: activity,
		notifier: nopNotifier{},
		clock:    clockOrSystem(clock),
	}
}

// SetNotifier installs the receiver of finalized-status events.
func (s *SubtaskService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// Create writes the subtask. A log entry is appended only when a status was
// given.
func (s *SubtaskService) Create(ctx context.Context, user *model.User, taskID uint, input SubtaskInput) (*SubtaskDetail, error) {
	input.Title = strings.TrimSpace(input.Title)
	verr := &ValidationError{}
	checkName(verr, "title", input.Title, 150)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var subtask model.Subtask
	var initial *model.Status
	err := s.ledger.commit(ctx, func(tx *gorm.DB) (*model.Transition, error) {
		if _, err := s.tasks.WithTx(tx).FindActive(ctx, user.ID, taskID); err != nil {
			return nil, notFound(err, "task")
		}
		if input.StatusID != nil {
			status, err := ownedStatus(ctx, s.statuses.WithTx(tx), user.ID, *input.StatusID)
			if err != nil {
				return nil, err
			}
			initial = status
		}

		subtask = model.Subtask{
			TaskID:      taskID,
			StatusID:    input.StatusID,
			Title:       input.Title,
			Description: input.Description,
		}
		if err := s.subtasks.WithTx(tx).Create(ctx, &subtask); err != nil {
			return nil, err
		}
		t, ok := subtask.Created(user.ID)
		if !ok {
			return nil, nil
		}
		return &t, nil
	})
	if err != nil {
		return nil, err
	}

	if initial != nil && initial.IsFinalized {
		s.notify(user.ID, &subtask, initial.Name)
	}
	return s.Get(ctx, user, taskID, subtask.ID)
}

// Update applies patch. One entry is logged when the status changes, or
// when an observation is supplied and the subtask has a status.
func (s *SubtaskService) Update(ctx context.Context, user *model.User, taskID, id uint, patch SubtaskPatch) (*SubtaskDetail, error) {
	verr := &ValidationError{}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
		checkName(verr, "title", trimmed, 150)
	}
	checkMaxLen(verr, "observation", patch.Observation, 500)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var subtask *model.Subtask
	var finalized *model.Status
	err := s.ledger.commit(ctx, func(tx *gorm.DB) (*model.Transition, error) {
		if _, err := s.tasks.WithTx(tx).FindActive(ctx, user.ID, taskID); err != nil {
			return nil, notFound(err, "task")
		}
		var err error
		subtask, err = s.subtasks.WithTx(tx).FindForUpdate(ctx, taskID, id)
		if err != nil {
			return nil, notFound(err, "subtask")
		}

		var next *model.Status
		if patch.StatusID != nil {
			if next, err = ownedStatus(ctx, s.statuses.WithTx(tx), user.ID, *patch.StatusID); err != nil {
				return nil, err
			}
		}
		if patch.Title != nil {
			subtask.Title = *patch.Title
		}
		if patch.Description != nil {
			subtask.Description = *patch.Description
		}

		var pending *model.Transition
		switch {
		case next != nil && (subtask.StatusID == nil || *subtask.StatusID != next.ID):
			t := subtask.ApplyStatusChange(next.ID, user.ID, patch.Observation)
			pending = &t
			if next.IsFinalized {
				finalized = next
			}
		case patch.Observation != "" && subtask.StatusID != nil:
			t := subtask.ApplyStatusChange(*subtask.StatusID, user.ID, patch.Observation)
			pending = &t
		}

		if err := s.subtasks.WithTx(tx).Save(ctx, subtask); err != nil {
			return nil, err
		}
		return pending, nil
	})
	if err != nil {
		return nil, err
	}

	if finalized != nil {
		s.notify(user.ID, subtask, finalized.Name)
	}
	return s.Get(ctx, user, taskID, id)
}

func (s *SubtaskService) Get(ctx context.Context, user *model.User, taskID, id uint) (*SubtaskDetail, error) {
	if _, err := s.tasks.FindActive(ctx, user.ID, taskID); err != nil {
		return nil, notFound(err, "task")
	}
	subtask, err := s.subtasks.FindByID(ctx, taskID, id)
	if err != nil {
		return nil, notFound(err, "subtask")
	}
	history, err := s.activity.CollectHistory(ctx, model.EntitySubtask, subtask.ID)
	if err != nil {
		return nil, err
	}
	return &SubtaskDetail{Subtask: subtask, History: history}, nil
}

func (s *SubtaskService) List(ctx context.Context, user *model.User, taskID uint, search string) ([]model.Subtask, error) {
	if _, err := s.tasks.FindActive(ctx, user.ID, taskID); err != nil {
		return nil, notFound(err, "task")
	}
	return s.subtasks.ListByTask(ctx, taskID, strings.TrimSpace(search))
}

// History streams the log of a subtask. Deleted subtasks and subtasks of
// deleted tasks stay readable by the task owner.
func (s *SubtaskService) History(ctx context.Context, user *model.User, taskID, id uint) (iter.Seq2[HistoryEntry, error], error) {
	if _, err := s.tasks.FindAny(ctx, user.ID, taskID); err != nil {
		return nil, notFound(err, "task")
	}
	if _, err := s.subtasks.FindAny(ctx, taskID, id); err != nil {
		return nil, notFound(err, "subtask")
	}
	return s.activity.History(ctx, model.EntitySubtask, id), nil
}

func (s *SubtaskService) Delete(ctx context.Context, user *model.User, taskID, id uint) error {
	if _, err := s.tasks.FindActive(ctx, user.ID, taskID); err != nil {
		return notFound(err, "task")
	}
	if err := s.subtasks.Delete(ctx, taskID, id); err != nil {
		return notFound(err, "subtask")
	}
	return nil
}

func (s *SubtaskService) DeleteAll(ctx context.Context, user *model.User, taskID uint) (int64, error) {
	if _, err := s.tasks.FindActive(ctx, user.ID, taskID); err != nil {
		return 0, notFound(err, "task")
	}
	n, err := s.subtasks.DeleteAll(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("subtasks: %w", ErrNotFound)
	}
	return n, nil
}

func (s *SubtaskService) notify(userID uint, subtask *model.Subtask, status string) {
	s.notifier.StatusFinalized(FinalizedEvent{
		UserID:    userID,
		TaskID:    subtask.TaskID,
		SubtaskID: subtask.ID,
		Title:     subtask.Title,
		Status:    status,
		At:        s.clock.Now(),
	})
}
