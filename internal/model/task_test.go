package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskApplyStatusChange(t *testing.T) {
	task := &Task{ID: 3, StatusID: 1, Status: &Status{ID: 1, Name: "Backlog"}}

	tr := task.ApplyStatusChange(2, 9, "")
	require.Equal(t, uint(2), task.StatusID)
	require.Nil(t, task.Status)
	require.Equal(t, ActionUpdate, tr.Action)
	require.Equal(t, EntityTask, tr.Kind)
	require.Equal(t, uint(3), tr.EntityID)
	require.Equal(t, uint(1), *tr.PreviousStatusID)
	require.Equal(t, uint(2), tr.NewStatusID)
	require.Equal(t, uint(9), tr.ActorID)
}

func TestSubtaskTransitions(t *testing.T) {
	sub := &Subtask{ID: 4}

	_, ok := sub.Created(1)
	require.False(t, ok)

	tr := sub.ApplyStatusChange(5, 1, "picked up")
	require.Nil(t, tr.PreviousStatusID)
	require.Equal(t, uint(5), *sub.StatusID)

	created, ok := sub.Created(1)
	require.True(t, ok)
	require.Equal(t, ActionCreate, created.Action)
	require.Equal(t, EntitySubtask, created.Kind)
	require.Equal(t, uint(5), created.NewStatusID)
}

func TestTransitionEntry(t *testing.T) {
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	prev := uint(1)

	entry := Transition{Action: ActionUpdate, Kind: EntitySubtask, EntityID: 8, PreviousStatusID: &prev, NewStatusID: 2, ActorID: 3}.Entry(at)
	require.Nil(t, entry.TaskID)
	require.Equal(t, uint(8), *entry.SubtaskID)
	require.Equal(t, "Subtask updated.", entry.Observation)
	require.Equal(t, at, entry.ChangedAt)
	require.Equal(t, uint(3), entry.UserID)

	entry = Transition{Action: ActionCreate, Kind: EntityTask, EntityID: 8, NewStatusID: 2, Observation: "kickoff"}.Entry(at)
	require.Equal(t, uint(8), *entry.TaskID)
	require.Nil(t, entry.SubtaskID)
	require.Nil(t, entry.StatusPreviousID)
	require.Equal(t, "kickoff", entry.Observation)
}
