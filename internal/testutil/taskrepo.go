// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/raphaelgruber/campusdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BaseTime is the fixed instant repository tests build timestamps from.
var BaseTime = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

// NewTask builds a task the way TaskService.Create does.
func NewTask(t *testing.T, owner, text string, created time.Time) models.Task {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	created = created.UTC().Truncate(service.TimestampPrecision)
	return models.Task{
		ID:        id.String(),
		OwnerID:   owner,
		Text:      text,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// uniqueOwner keeps subtests independent on a shared store.
func uniqueOwner(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// RunTaskRepositoryContract exercises the behavior every TaskRepository
// backend must share.
func RunTaskRepositoryContract(t *testing.T, repo service.TaskRepository) {
	ctx := context.Background()

	t.Run("insert then list", func(t *testing.T) {
		owner := uniqueOwner("alice")
		task := NewTask(t, owner, "Buy milk", BaseTime)
		require.NoError(t, repo.InsertTask(ctx, task))

		tasks, err := repo.ListTasks(ctx, owner)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		got := tasks[0]
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, owner, got.OwnerID)
		assert.Equal(t, "Buy milk", got.Text)
		assert.False(t, got.Completed)
		assert.True(t, task.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", task.CreatedAt, got.CreatedAt)
		assert.True(t, task.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", task.UpdatedAt, got.UpdatedAt)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		owner := uniqueOwner("alice")
		require.NoError(t, repo.InsertTask(ctx, NewTask(t, owner, "private", BaseTime)))

		tasks, err := repo.ListTasks(ctx, uniqueOwner("bob"))
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("list newest first", func(t *testing.T) {
		owner := uniqueOwner("alice")
		t1 := NewTask(t, owner, "first", BaseTime)
		t2 := NewTask(t, owner, "second", BaseTime.Add(time.Second))
		t3 := NewTask(t, owner, "third", BaseTime.Add(2*time.Second))
		for _, task := range []models.Task{t2, t1, t3} {
			require.NoError(t, repo.InsertTask(ctx, task))
		}

		tasks, err := repo.ListTasks(ctx, owner)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, []string{t3.ID, t2.ID, t1.ID}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	})

	t.Run("partial update", func(t *testing.T) {
		owner := uniqueOwner("alice")
		task := NewTask(t, owner, "Read chapter 3", BaseTime)
		require.NoError(t, repo.InsertTask(ctx, task))

		at := BaseTime.Add(time.Minute)
		updated, err := repo.UpdateTask(ctx, owner, task.ID, models.TaskPatch{Completed: models.Ptr(true)}, at)
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		assert.Equal(t, "Read chapter 3", updated.Text)
		assert.True(t, at.Equal(updated.UpdatedAt))
		assert.True(t, task.CreatedAt.Equal(updated.CreatedAt))

		updated, err = repo.UpdateTask(ctx, owner, task.ID, models.TaskPatch{Text: models.Ptr("Read chapter 4")}, at.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, updated.Completed, "completed untouched by a text-only patch")
		assert.Equal(t, "Read chapter 4", updated.Text)

		tasks, err := repo.ListTasks(ctx, owner)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Read chapter 4", tasks[0].Text)
		assert.True(t, tasks[0].Completed)
	})

	t.Run("updatedAt strictly increases", func(t *testing.T) {
		owner := uniqueOwner("alice")
		task := NewTask(t, owner, "tick", BaseTime)
		require.NoError(t, repo.InsertTask(ctx, task))

		prev := task.UpdatedAt
		for i := 0; i < 3; i++ {
			// Same or earlier clock reading than the stored value.
			updated, err := repo.UpdateTask(ctx, owner, task.ID, models.TaskPatch{Completed: models.Ptr(i%2 == 0)}, BaseTime)
			require.NoError(t, err)
			assert.True(t, updated.UpdatedAt.After(prev), "update %d: %v not after %v", i, updated.UpdatedAt, prev)
			assert.True(t, prev.Add(service.TimestampPrecision).Equal(updated.UpdatedAt))
			prev = updated.UpdatedAt
		}
	})

	t.Run("foreign owner cannot update", func(t *testing.T) {
		owner := uniqueOwner("alice")
		task := NewTask(t, owner, "mine", BaseTime)
		require.NoError(t, repo.InsertTask(ctx, task))

		_, err := repo.UpdateTask(ctx, uniqueOwner("mallory"), task.ID, models.TaskPatch{Text: models.Ptr("hacked")}, BaseTime.Add(time.Hour))
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, missingErr := repo.UpdateTask(ctx, owner, uuid.NewString(), models.TaskPatch{Completed: models.Ptr(true)}, BaseTime)
		assert.ErrorIs(t, missingErr, apperr.ErrNotFound)
		assert.Equal(t, apperr.CodeOf(missingErr), apperr.CodeOf(err), "foreign and missing are indistinguishable")

		tasks, err := repo.ListTasks(ctx, owner)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "mine", tasks[0].Text)
		assert.True(t, task.UpdatedAt.Equal(tasks[0].UpdatedAt))
	})

	t.Run("delete returns snapshot once", func(t *testing.T) {
		owner := uniqueOwner("alice")
		task := NewTask(t, owner, "done soon", BaseTime)
		require.NoError(t, repo.InsertTask(ctx, task))

		_, err := repo.DeleteTask(ctx, uniqueOwner("mallory"), task.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		deleted, err := repo.DeleteTask(ctx, owner, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, deleted.ID)
		assert.Equal(t, "done soon", deleted.Text)

		_, err = repo.DeleteTask(ctx, owner, task.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		tasks, err := repo.ListTasks(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}
