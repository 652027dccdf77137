package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/metrics"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock hands out fixed instants; advance moves it forward.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTaskService() (*TaskService, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)}
	svc := NewTaskService(NewMemoryTaskRepository(), discardLogger(), metrics.NewCollector())
	svc.now = clock.now
	return svc, clock
}

func TestCreateThenList(t *testing.T) {
	svc, _ := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("Buy milk")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.OwnerID)
	assert.False(t, created.Completed, "completed defaults to false")
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Buy milk", list[0].Text)
	assert.False(t, list[0].Completed)

	other, err := svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other, "another owner sees nothing")
}

func TestCreateTrimsAndHonoursCompleted(t *testing.T) {
	svc, _ := newTestTaskService()

	task, err := svc.Create(context.Background(), "alice", models.TaskInput{
		Text:      models.Ptr("  Submit lab report \n"),
		Completed: models.Ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Submit lab report", task.Text)
	assert.True(t, task.Completed)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input models.TaskInput
	}{
		{"missing text", models.TaskInput{}},
		{"empty text", models.TaskInput{Text: models.Ptr("")}},
		{"whitespace text", models.TaskInput{Text: models.Ptr("   \t")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestTaskService()
			_, err := svc.Create(context.Background(), "alice", tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)

			list, err := svc.List(context.Background(), "alice")
			require.NoError(t, err)
			assert.Empty(t, list, "nothing stored")
		})
	}
}

func TestMissingOwnerRejected(t *testing.T) {
	svc, _ := newTestTaskService()
	ctx := context.Background()

	_, err := svc.List(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	_, err = svc.Create(ctx, "", models.TaskInput{Text: models.Ptr("x")})
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	_, err = svc.Update(ctx, "", "id", models.TaskPatch{})
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	_, err = svc.Delete(ctx, "", "id")
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
}

func TestListNewestFirst(t *testing.T) {
	svc, clock := newTestTaskService()
	ctx := context.Background()

	for _, text := range []string{"t1", "t2", "t3"} {
		_, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr(text)})
		require.NoError(t, err)
		clock.advance(time.Second)
	}

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{list[0].Text, list[1].Text, list[2].Text})
}

func TestListTiesAreStable(t *testing.T) {
	svc, _ := newTestTaskService()
	ctx := context.Background()

	// Same clock instant for all three.
	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr(text)})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.List(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "c", first[0].Text, "ties fall back to insertion order, newest first")
}

func TestUpdateCompletedKeepsText(t *testing.T) {
	svc, clock := newTestTaskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("Read chapter 4")})
	require.NoError(t, err)
	clock.advance(time.Minute)

	updated, err := svc.Update(ctx, "alice", task.ID, models.TaskPatch{Completed: models.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Read chapter 4", updated.Text)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)
}

func TestUpdateExplicitFalseIsApplied(t *testing.T) {
	svc, _ := newTestTaskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("x"), Completed: models.Ptr(true)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "alice", task.ID, models.TaskPatch{Completed: models.Ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Completed)
}

func TestUpdatedAtStrictlyIncreases(t *testing.T) {
	svc, _ := newTestTaskService() // clock never advances
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("x")})
	require.NoError(t, err)

	prev := task.UpdatedAt
	for i := 0; i < 5; i++ {
		updated, err := svc.Update(ctx, "alice", task.ID, models.TaskPatch{Completed: models.Ptr(i%2 == 0)})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(prev), "update %d must move updatedAt forward", i)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
		prev = updated.UpdatedAt
	}
}

func TestUpdateEmptyPatchOnlyTouches(t *testing.T) {
	svc, clock := newTestTaskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("x"), Completed: models.Ptr(true)})
	require.NoError(t, err)
	clock.advance(time.Minute)

	updated, err := svc.Update(ctx, "alice", task.ID, models.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, task.Text, updated.Text)
	assert.True(t, updated.Completed)
	assert.Equal(t, task.CreatedAt.Add(time.Minute), updated.UpdatedAt)
}

func TestUpdateRejectsEmptyTextWithoutWriting(t *testing.T) {
	svc, clock := newTestTaskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("keep me")})
	require.NoError(t, err)
	clock.advance(time.Hour)

	_, err = svc.Update(ctx, "alice", task.ID, models.TaskPatch{Text: models.Ptr("  "), Completed: models.Ptr(true)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, *task, list[0], "no field, including updatedAt, changed")
}

func TestUpdateByOtherOwnerIsNotFound(t *testing.T) {
	svc, _ := newTestTaskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("private")})
	require.NoError(t, err)

	_, foreignErr := svc.Update(ctx, "mallory", task.ID, models.TaskPatch{Text: models.Ptr("pwned")})
	require.Error(t, foreignErr)
	assert.ErrorIs(t, foreignErr, apperr.ErrNotFound)

	_, missingErr := svc.Update(ctx, "mallory", "no-such-id", models.TaskPatch{Text: models.Ptr("pwned")})
	require.Error(t, missingErr)
	assert.Equal(t, missingErr.Error(), foreignErr.Error(), "foreign and missing are indistinguishable")

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, *task, list[0])
}

func TestDeleteTwice(t *testing.T) {
	svc, _ := newTestTaskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("x")})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "other owners cannot delete")

	deleted, err := svc.Delete(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, *task, *deleted)

	_, err = svc.Delete(ctx, "alice", task.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	// The store keeps working after a failed delete.
	_, err = svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("y")})
	require.NoError(t, err)
}

type failingRepo struct{ err error }

func (r failingRepo) ListTasks(context.Context, string) ([]models.Task, error) { return nil, r.err }
func (r failingRepo) InsertTask(context.Context, models.Task) error { return r.err }
func (r failingRepo) UpdateTask(context.Context, string, string, models.TaskPatch, time.Time) (*models.Task, error) {
	return nil, r.err
}
func (r failingRepo) DeleteTask(context.Context, string, string) (*models.Task, error) {
	return nil, r.err
}

func TestStoreFailuresBecomeUnavailable(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")
	mc := metrics.NewCollector()
	svc := NewTaskService(failingRepo{err: cause}, discardLogger(), mc)
	ctx := context.Background()

	_, err := svc.List(ctx, "alice")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)

	_, err = svc.Create(ctx, "alice", models.TaskInput{Text: models.Ptr("x")})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	_, err = svc.Update(ctx, "alice", "id", models.TaskPatch{})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	_, err = svc.Delete(ctx, "alice", "id")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	snap := mc.Snapshot()
	require.NotNil(t, snap.TaskWrite)
	assert.Equal(t, int64(3), snap.TaskWrite.Errors)
}

func TestNextUpdatedAt(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, base.Add(time.Second), NextUpdatedAt(base, base.Add(time.Second)))
	assert.Equal(t, base.Add(time.Millisecond), NextUpdatedAt(base, base))
	assert.Equal(t, base.Add(time.Millisecond), NextUpdatedAt(base, base.Add(-time.Minute)), "clock going backwards")
}
