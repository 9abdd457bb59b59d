package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

func TestStatusRepositoryUniquenessIgnoresTombstones(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewStatusRepository(db)
	user := createUser(t, db, "status@example.com")

	backlog := createStatus(t, db, user.ID, "Backlog", 1)

	taken, err := repo.NameTaken(ctx, user.ID, "Backlog", 0)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.NameTaken(ctx, user.ID, "Backlog", backlog.ID)
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = repo.OrderTaken(ctx, user.ID, 1, 0)
	require.NoError(t, err)
	require.True(t, taken)

	require.NoError(t, repo.Delete(ctx, user.ID, backlog.ID))

	taken, err = repo.NameTaken(ctx, user.ID, "Backlog", 0)
	require.NoError(t, err)
	require.False(t, taken)

	// the partial unique index lets the name be reused
	again := createStatus(t, db, user.ID, "Backlog", 1)
	require.NotEqual(t, backlog.ID, again.ID)
}

func TestStatusRepositoryDuplicateIsTranslated(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "dup@example.com")
	createStatus(t, db, user.ID, "Done", 1)

	err := NewStatusRepository(db).Create(context.Background(), &model.Status{UserID: user.ID, Name: "Done", Color: "#000000", Order: 2})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestStatusRepositoryFindActiveVsAny(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewStatusRepository(db)
	user := createUser(t, db, "find@example.com")
	other := createUser(t, db, "other@example.com")
	status := createStatus(t, db, user.ID, "Doing", 1)

	_, err := repo.FindActive(ctx, other.ID, status.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, user.ID, status.ID))

	_, err = repo.FindActive(ctx, user.ID, status.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindAny(ctx, status.ID)
	require.NoError(t, err)
	require.Equal(t, "Doing", found.Name)
	require.True(t, found.Deleted())
}

func TestStatusRepositoryMaxOrderAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewStatusRepository(db)
	user := createUser(t, db, "order@example.com")

	highest, err := repo.MaxOrder(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, highest)

	createStatus(t, db, user.ID, "Later", 3)
	first := createStatus(t, db, user.ID, "First", 1)
	finalized := true
	require.NoError(t, repo.Create(ctx, &model.Status{UserID: user.ID, Name: "Closed", Color: "#111111", Order: 7, IsFinalized: true}))
	require.NoError(t, repo.Delete(ctx, user.ID, first.ID))

	highest, err = repo.MaxOrder(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 7, highest)

	statuses, err := repo.ListByUser(ctx, user.ID, StatusFilter{})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, "Later", statuses[0].Name)
	require.Equal(t, "Closed", statuses[1].Name)

	statuses, err = repo.ListByUser(ctx, user.ID, StatusFilter{IsFinalized: &finalized})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.Equal(t, "Closed", statuses[0].Name)

	n, err := repo.DeleteAll(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.ErrorIs(t, repo.Delete(ctx, user.ID, first.ID), gorm.ErrRecordNotFound)
}

func TestStatusRepositoryUpdateLeavesTombstonesAlone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewStatusRepository(db)
	user := createUser(t, db, "update@example.com")
	status := createStatus(t, db, user.ID, "Review", 1)

	status.Name = "Peer review"
	status.IsFinalized = true
	require.NoError(t, repo.Update(ctx, status))
	stored, err := repo.FindActive(ctx, user.ID, status.ID)
	require.NoError(t, err)
	require.Equal(t, "Peer review", stored.Name)
	require.True(t, stored.IsFinalized)

	stale := *stored
	require.NoError(t, repo.Delete(ctx, user.ID, status.ID))

	stale.Name = "Revived"
	require.ErrorIs(t, repo.Update(ctx, &stale), gorm.ErrRecordNotFound)

	tomb, err := repo.FindAny(ctx, status.ID)
	require.NoError(t, err)
	require.True(t, tomb.Deleted())
	require.Equal(t, "Peer review", tomb.Name)
}

func TestCategoryRepositoryUpdateLeavesTombstonesAlone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepository(db)
	user := createUser(t, db, "category-update@example.com")
	category := &model.Category{UserID: user.ID, Name: "Garden", Color: model.DefaultColor}
	require.NoError(t, repo.Create(ctx, category))

	require.NoError(t, repo.Delete(ctx, user.ID, category.ID))
	category.Name = "Revived"
	require.ErrorIs(t, repo.Update(ctx, category), gorm.ErrRecordNotFound)

	_, err := repo.FindActive(ctx, user.ID, category.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
