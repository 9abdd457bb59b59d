package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

func TestTaskRepositoryScopesAndPreloads(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	user := createUser(t, db, "tasks@example.com")
	other := createUser(t, db, "intruder@example.com")
	status := createStatus(t, db, user.ID, "Open", 1)
	category := &model.Category{UserID: user.ID, Name: "Work", Color: "#FF5733"}
	require.NoError(t, NewCategoryRepository(db).Create(ctx, category))

	task := &model.Task{UserID: user.ID, StatusID: status.ID, CategoryID: &category.ID, Name: "Report", Description: "quarterly"}
	require.NoError(t, repo.Create(ctx, task))
	require.NoError(t, NewSubtaskRepository(db).Create(ctx, &model.Subtask{TaskID: task.ID, Title: "Draft", StatusID: &status.ID}))

	_, err := repo.FindByID(ctx, other.ID, task.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, NewStatusRepository(db).Delete(ctx, user.ID, status.ID))

	found, err := repo.FindByID(ctx, user.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Status)
	require.Equal(t, "Open", found.Status.Name)
	require.NotNil(t, found.Category)
	require.Len(t, found.Subtasks, 1)
	require.NotNil(t, found.Subtasks[0].Status)

	tasks, err := repo.ListByUser(ctx, user.ID, TaskFilter{Search: "quarter"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	tasks, err = repo.ListByUser(ctx, user.ID, TaskFilter{CategoryID: new(uint)})
	require.NoError(t, err)
	require.Empty(t, tasks)

	require.NoError(t, repo.Delete(ctx, user.ID, task.ID))
	_, err = repo.FindActive(ctx, user.ID, task.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	gone, err := repo.FindAny(ctx, user.ID, task.ID)
	require.NoError(t, err)
	require.True(t, gone.DeletedAt.Valid)

	_, err = repo.FindAny(ctx, other.ID, task.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTaskRepositoryListDueBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	user := createUser(t, db, "due@example.com")
	status := createStatus(t, db, user.ID, "Open", 1)

	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	soon := now.Add(24 * time.Hour)
	late := now.Add(10 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	for name, due := range map[string]*time.Time{"soon": &soon, "late": &late, "past": &past, "none": nil} {
		require.NoError(t, repo.Create(ctx, &model.Task{UserID: user.ID, StatusID: status.ID, Name: name, DueDate: due}))
	}

	tasks, err := repo.ListDueBefore(ctx, user.ID, now.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, "past", tasks[0].Name)
	require.Equal(t, "soon", tasks[1].Name)
}

func TestHardDeleteOfTaskCascadesToLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "cascade@example.com")
	status := createStatus(t, db, user.ID, "Open", 1)
	task := &model.Task{UserID: user.ID, StatusID: status.ID, Name: "Temp"}
	require.NoError(t, NewTaskRepository(db).Create(ctx, task))
	entry := task.Created(user.ID).Entry(time.Now())
	require.NoError(t, NewActivityRepository(db).Append(ctx, &entry))

	require.NoError(t, NewTaskRepository(db).Delete(ctx, user.ID, task.ID))
	var count int64
	require.NoError(t, db.Model(&model.ActivityLog{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.NoError(t, db.Unscoped().Delete(&model.Task{}, task.ID).Error)
	require.NoError(t, db.Model(&model.ActivityLog{}).Count(&count).Error)
	require.Zero(t, count)
}
