package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskflow/internal/config"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// stepClock advances one second on every read so log entries get distinct
// timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []FinalizedEvent
}

func (n *recordingNotifier) StatusFinalized(event FinalizedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type fixture struct {
	db         *gorm.DB
	clock      *stepClock
	notifier   *recordingNotifier
	auth       *AuthService
	users      *UserService
	statuses   *StatusService
	categories *CategoryService
	tasks      *TaskService
	subtasks   *SubtaskService
	activity   *ActivityService
}

func newFixture(t *testing.T, logMode string) *fixture {
	t.Helper()
	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "taskflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := &stepClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)
	activity := NewActivityService(repository.NewActivityRepository(db), clock)

	f := &fixture{
		db:         db,
		clock:      clock,
		notifier:   &recordingNotifier{},
		auth:       NewAuthService(tx, userRepo, tokenRepo, statusRepo, categoryRepo, time.Hour, clock),
		users:      NewUserService(tx, userRepo, tokenRepo, clock),
		statuses:   NewStatusService(statusRepo),
		categories: NewCategoryService(categoryRepo),
		tasks:      NewTaskService(tx, taskRepo, statusRepo, categoryRepo, activity, logMode, clock),
		subtasks:   NewSubtaskService(tx, taskRepo, subtaskRepo, statusRepo, activity, logMode, clock),
		activity:   activity,
	}
	f.tasks.SetNotifier(f.notifier)
	f.subtasks.SetNotifier(f.notifier)
	return f
}

func newTransactionalFixture(t *testing.T) *fixture {
	return newFixture(t, config.ActivityLogTransactional)
}

// bareUser creates a user without the default statuses and categories.
func (f *fixture) bareUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Name: "User " + email, Email: email, PasswordHash: "x"}
	require.NoError(t, repository.NewUserRepository(f.db).Create(context.Background(), user))
	return user
}

func (f *fixture) status(t *testing.T, user *model.User, name string, finalized bool) *model.Status {
	t.Helper()
	status, err := f.statuses.Create(context.Background(), user, StatusInput{Name: name, IsFinalized: finalized})
	require.NoError(t, err)
	return status
}

func (f *fixture) taskHistory(t *testing.T, user *model.User, taskID uint) []HistoryEntry {
	t.Helper()
	seq, err := f.tasks.History(context.Background(), user, taskID)
	require.NoError(t, err)
	var entries []HistoryEntry
	for entry, err := range seq {
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}

func ptr[T any](v T) *T {
	return &v
}
