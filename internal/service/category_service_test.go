package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryLifecycle(t *testing.T) {
	f := newTransactionalFixture(t)
	ctx := context.Background()
	user := f.bareUser(t, "cats@example.com")

	work, err := f.categories.Create(ctx, user, "Work", "")
	require.NoError(t, err)
	require.Equal(t, "#FFFFFF", work.Color)

	_, err = f.categories.Create(ctx, user, "Work", "#123456")
	require.ErrorIs(t, err, ErrConflict)

	home, err := f.categories.Create(ctx, user, "Home", "#123456")
	require.NoError(t, err)

	renamed, err := f.categories.Update(ctx, user, home.ID, CategoryPatch{Name: ptr("Household")})
	require.NoError(t, err)
	require.Equal(t, "Household", renamed.Name)
	require.Equal(t, "#123456", renamed.Color)

	list, err := f.categories.List(ctx, user, "house")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.categories.Delete(ctx, user, work.ID))
	_, err = f.categories.Get(ctx, user, work.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// a tombstoned name can be reused
	_, err = f.categories.Create(ctx, user, "Work", "")
	require.NoError(t, err)

	n, err := f.categories.DeleteAll(ctx, user)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestTaskCategoryCanBeCleared(t *testing.T) {
	f := newTransactionalFixture(t)
	ctx := context.Background()
	user := f.bareUser(t, "clear@example.com")
	open := f.status(t, user, "Open", false)
	category, err := f.categories.Create(ctx, user, "Errands", "")
	require.NoError(t, err)

	task, err := f.tasks.Create(ctx, user, TaskInput{Name: "Shop", StatusID: open.ID, CategoryID: &category.ID})
	require.NoError(t, err)
	require.NotNil(t, task.Category)

	updated, err := f.tasks.Update(ctx, user, task.ID, TaskPatch{ClearCategory: true})
	require.NoError(t, err)
	require.Nil(t, updated.CategoryID)
	require.Nil(t, updated.Category)
}
