package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Name        string
	Description string
	StatusID    uint
	CategoryID  *uint
	DueDate     *time.Time
}

// TaskPatch holds the fields changed by an update; nil means unchanged.
// Observation is attached to the log entry produced by the update.
type TaskPatch struct {
	Name          *string
	Description   *string
	StatusID      *uint
	CategoryID    *uint
	ClearCategory bool
	DueDate       *time.Time
	ClearDueDate  bool
	Observation   string
}

// TaskDetail is a task together with its history.
type TaskDetail struct {
	*model.Task
	History []HistoryEntry `json:"history"`
}

// TaskService wraps task-related business logic.
type TaskService struct {
	ledger     ledger
	tasks      *repository.TaskRepository
	statuses   *repository.StatusRepository
	categories *repository.CategoryRepository
	activity   *ActivityService
	notifier   Notifier
	clock      Clock
}

func NewTaskService(
	tx *repository.Transactor,
	tasks *repository.TaskRepository,
	statuses *repository.StatusRepository,
	categories *repository.CategoryRepository,
	activity *ActivityService,
	logMode string,
	clock Clock,
) *TaskService {
	return &TaskService{
		ledger:     newLedger(tx, activity, logMode),
		tasks:      tasks,
		statuses:   statuses,
		categories: categories,
		activity:   activity,
		notifier:   nopNotifier{},
		clock:      clockOrSystem(clock),
	}
}

// SetNotifier installs the receiver of finalized-status events.
func (s *TaskService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// Create writes the task and logs its initial status.
func (s *TaskService) Create(ctx context.Context, user *model.User, input TaskInput) (*TaskDetail, error) {
	input.Name = strings.TrimSpace(input.Name)
	verr := &ValidationError{}
	checkName(verr, "name", input.Name, 255)
	if input.StatusID == 0 {
		verr.Add("status_id", "is required")
	}
	if input.DueDate != nil {
		checkDueDate(verr, *input.DueDate, s.clock.Now())
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var task model.Task
	var initial *model.Status
	err := s.ledger.commit(ctx, func(tx *gorm.DB) (*model.Transition, error) {
		status, err := ownedStatus(ctx, s.statuses.WithTx(tx), user.ID, input.StatusID)
		if err != nil {
			return nil, err
		}
		if input.CategoryID != nil {
			if err := s.ownedCategory(ctx, tx, user.ID, *input.CategoryID); err != nil {
				return nil, err
			}
		}
		initial = status

		task = model.Task{
			UserID:      user.ID,
			StatusID:    status.ID,
			CategoryID:  input.CategoryID,
			Name:        input.Name,
			Description: input.Description,
			DueDate:     input.DueDate,
		}
		if err := s.tasks.WithTx(tx).Create(ctx, &task); err != nil {
			return nil, err
		}
		t := task.Created(user.ID)
		return &t, nil
	})
	if err != nil {
		return nil, err
	}

	if initial.IsFinalized {
		s.notifyFinalized(user.ID, task.ID, 0, task.Name, initial.Name)
	}
	return s.Get(ctx, user, task.ID)
}

// Update applies patch and logs one entry when the status changes or an
// observation is supplied.
func (s *TaskService) Update(ctx context.Context, user *model.User, id uint, patch TaskPatch) (*TaskDetail, error) {
	verr := &ValidationError{}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
		checkName(verr, "name", trimmed, 255)
	}
	if patch.DueDate != nil {
		checkDueDate(verr, *patch.DueDate, s.clock.Now())
	}
	checkMaxLen(verr, "observation", patch.Observation, 500)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var task *model.Task
	var finalized *model.Status
	err := s.ledger.commit(ctx, func(tx *gorm.DB) (*model.Transition, error) {
		var err error
		task, err = s.tasks.WithTx(tx).FindForUpdate(ctx, user.ID, id)
		if err != nil {
			return nil, notFound(err, "task")
		}

		var next *model.Status
		if patch.StatusID != nil {
			if next, err = ownedStatus(ctx, s.statuses.WithTx(tx), user.ID, *patch.StatusID); err != nil {
				return nil, err
			}
		}
		switch {
		case patch.ClearCategory:
			task.CategoryID = nil
		case patch.CategoryID != nil:
			if err := s.ownedCategory(ctx, tx, user.ID, *patch.CategoryID); err != nil {
				return nil, err
			}
			categoryID := *patch.CategoryID
			task.CategoryID = &categoryID
		}
		if patch.Name != nil {
			task.Name = *patch.Name
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		switch {
		case patch.ClearDueDate:
			task.DueDate = nil
		case patch.DueDate != nil:
			due := *patch.DueDate
			task.DueDate = &due
		}

		var pending *model.Transition
		switch {
		case next != nil && next.ID != task.StatusID:
			t := task.ApplyStatusChange(next.ID, user.ID, patch.Observation)
			pending = &t
			if next.IsFinalized {
				finalized = next
			}
		case patch.Observation != "":
			t := task.ApplyStatusChange(task.StatusID, user.ID, patch.Observation)
			pending = &t
		}

		if err := s.tasks.WithTx(tx).Save(ctx, task); err != nil {
			return nil, err
		}
		return pending, nil
	})
	if err != nil {
		return nil, err
	}

	if finalized != nil {
		s.notifyFinalized(user.ID, task.ID, 0, task.Name, finalized.Name)
	}
	return s.Get(ctx, user, id)
}

// Get returns an active task with its status, category, subtasks and
// history.
func (s *TaskService) Get(ctx context.Context, user *model.User, id uint) (*TaskDetail, error) {
	task, err := s.tasks.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, notFound(err, "task")
	}
	history, err := s.activity.CollectHistory(ctx, model.EntityTask, task.ID)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{Task: task, History: history}, nil
}

func (s *TaskService) List(ctx context.Context, user *model.User, filter repository.TaskFilter) ([]model.Task, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.tasks.ListByUser(ctx, user.ID, filter)
}

// History streams the log of a task owned by user, including tasks that
// were deleted.
func (s *TaskService) History(ctx context.Context, user *model.User, id uint) (iter.Seq2[HistoryEntry, error], error) {
	if _, err := s.tasks.FindAny(ctx, user.ID, id); err != nil {
		return nil, notFound(err, "task")
	}
	return s.activity.History(ctx, model.EntityTask, id), nil
}

// Delete tombstones the task. Its history stays readable.
func (s *TaskService) Delete(ctx context.Context, user *model.User, id uint) error {
	if err := s.tasks.Delete(ctx, user.ID, id); err != nil {
		return notFound(err, "task")
	}
	return nil
}

func (s *TaskService) DeleteAll(ctx context.Context, user *model.User) (int64, error) {
	n, err := s.tasks.DeleteAll(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("tasks: %w", ErrNotFound)
	}
	return n, nil
}

func (s *TaskService) ownedCategory(ctx context.Context, tx *gorm.DB, userID, categoryID uint) error {
	if _, err := s.categories.WithTx(tx).FindActive(ctx, userID, categoryID); err != nil {
		return invalidReference(err, "category_id")
	}
	return nil
}

func (s *TaskService) notifyFinalized(userID, taskID, subtaskID uint, title, status string) {
	s.notifier.StatusFinalized(FinalizedEvent{
		UserID:    userID,
		TaskID:    taskID,
		SubtaskID: subtaskID,
		Title:     title,
		Status:    status,
		At:        s.clock.Now(),
	})
}

// ownedStatus returns an active status of userID or a validation error on
// status_id.
func ownedStatus(ctx context.Context, repo *repository.StatusRepository, userID, statusID uint) (*model.Status, error) {
	status, err := repo.FindActive(ctx, userID, statusID)
	if err != nil {
		return nil, invalidReference(err, "status_id")
	}
	return status, nil
}

func invalidReference(err error, field string) error {
	if nf := notFound(err, field); !isNotFound(nf) {
		return nf
	}
	verr := &ValidationError{}
	verr.Add(field, "is invalid")
	return verr
}

func checkDueDate(verr *ValidationError, due, now time.Time) {
	if due.Format(time.DateOnly) < now.Format(time.DateOnly) {
		verr.Add("due_date", "must be a date after or equal to today")
	}
}
