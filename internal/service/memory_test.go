package service_test

import (
	"context"
	"testing"

	"github.com/raphaelgruber/campusdesk/internal/service"
	"github.com/raphaelgruber/campusdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTaskRepository(t *testing.T) {
	testutil.RunTaskRepositoryContract(t, service.NewMemoryTaskRepository())
}

func TestMemoryWipeData(t *testing.T) {
	ctx := context.Background()
	repo := service.NewMemoryTaskRepository()
	require.NoError(t, repo.InsertTask(ctx, testutil.NewTask(t, "alice", "gone", testutil.BaseTime)))

	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.WipeData(ctx))

	tasks, err := repo.ListTasks(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
