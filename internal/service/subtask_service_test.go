package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
)

func TestSubtaskStatusIsOptional(t *testing.T) {
	f := newTransactionalFixture(t)
	ctx := context.Background()
	user := f.bareUser(t, "sub@example.com")
	open := f.status(t, user, "Open", false)
	done := f.status(t, user, "Done", true)
	task, err := f.tasks.Create(ctx, user, TaskInput{Name: "Parent", StatusID: open.ID})
	require.NoError(t, err)

	subtask, err := f.subtasks.Create(ctx, user, task.ID, SubtaskInput{Title: "Unset"})
	require.NoError(t, err)
	require.Nil(t, subtask.StatusID)
	require.Empty(t, subtask.History)

	// an observation without a status has nothing to log
	_, err = f.subtasks.Update(ctx, user, task.ID, subtask.ID, SubtaskPatch{Observation: "note"})
	require.NoError(t, err)

	updated, err := f.subtasks.Update(ctx, user, task.ID, subtask.ID, SubtaskPatch{StatusID: &done.ID, Observation: "wrapped up"})
	require.NoError(t, err)
	require.Len(t, updated.History, 1)
	entry := updated.History[0]
	require.Equal(t, model.ActionUpdate, entry.Action)
	require.Equal(t, StatusNone, entry.PreviousStatus.State)
	require.Equal(t, MissingStatusName, entry.PreviousStatus.Name)
	require.Equal(t, "Done", entry.NewStatus.Name)
	require.Equal(t, "wrapped up", entry.Observation)

	require.Len(t, f.notifier.events, 1)
	require.Equal(t, subtask.ID, f.notifier.events[0].SubtaskID)

	// subtask entries never show up in the parent's history
	require.Len(t, f.taskHistory(t, user, task.ID), 1)
}

func TestSubtaskCreateWithStatusLogsCreation(t *testing.T) {
	f := newTransactionalFixture(t)
	ctx := context.Background()
	user := f.bareUser(t, "subcreate@example.com")
	open := f.status(t, user, "Open", false)
	task, err := f.tasks.Create(ctx, user, TaskInput{Name: "Parent", StatusID: open.ID})
	require.NoError(t, err)

	subtask, err := f.subtasks.Create(ctx, user, task.ID, SubtaskInput{Title: "Started", StatusID: &open.ID})
	require.NoError(t, err)
	require.Len(t, subtask.History, 1)
	require.Equal(t, "Subtask created.", subtask.History[0].Observation)

	_, err = f.subtasks.Update(ctx, user, task.ID, subtask.ID, SubtaskPatch{Title: ptr("Renamed")})
	require.NoError(t, err)

	updated, err := f.subtasks.Update(ctx, user, task.ID, subtask.ID, SubtaskPatch{Observation: "still going"})
	require.NoError(t, err)
	require.Len(t, updated.History, 2)
	require.Equal(t, "Open", updated.History[1].PreviousStatus.Name)
	require.Equal(t, "Renamed", updated.Title)
}

func TestSubtaskScopedToOwnedTask(t *testing.T) {
	f := newTransactionalFixture(t)
	ctx := context.Background()
	owner := f.bareUser(t, "parent@example.com")
	stranger := f.bareUser(t, "nosy@example.com")
	open := f.status(t, owner, "Open", false)
	task, err := f.tasks.Create(ctx, owner, TaskInput{Name: "Parent", StatusID: open.ID})
	require.NoError(t, err)
	other, err := f.tasks.Create(ctx, owner, TaskInput{Name: "Other", StatusID: open.ID})
	require.NoError(t, err)
	subtask, err := f.subtasks.Create(ctx, owner, task.ID, SubtaskInput{Title: "Child", StatusID: &open.ID})
	require.NoError(t, err)

	_, err = f.subtasks.Create(ctx, stranger, task.ID, SubtaskInput{Title: "Sneaky"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.subtasks.Get(ctx, owner, other.ID, subtask.ID)
	require.ErrorIs(t, err, ErrNotFound)

	list, err := f.subtasks.List(ctx, owner, task.ID, "chi")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.subtasks.Delete(ctx, owner, task.ID, subtask.ID))
	_, err = f.subtasks.Get(ctx, owner, task.ID, subtask.ID)
	require.ErrorIs(t, err, ErrNotFound)

	seq, err := f.subtasks.History(ctx, owner, task.ID, subtask.ID)
	require.NoError(t, err)
	count := 0
	for _, err := range seq {
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 1, count)

	_, err = f.subtasks.History(ctx, stranger, task.ID, subtask.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.subtasks.DeleteAll(ctx, owner, task.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
