package service

import (
	"context"
	"sync"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/models"
)

// MemoryTaskRepository is an in-process TaskRepository.
// Used for local development (STORE_BACKEND=memory) and tests.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

// Compile-time check that MemoryTaskRepository implements TaskRepository.
var _ TaskRepository = (*MemoryTaskRepository)(nil)

// NewMemoryTaskRepository creates an empty repository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]models.Task)}
}

// ListTasks returns the owner's tasks, newest first.
func (r *MemoryTaskRepository) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

// InsertTask stores a task.
func (r *MemoryTaskRepository) InsertTask(ctx context.Context, task models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.ID] = task
	return nil
}

// UpdateTask applies the patch under the write lock.
func (r *MemoryTaskRepository) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch, at time.Time) (*models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, apperr.NotFound()
	}
	if patch.Text != nil {
		t.Text = *patch.Text
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = NextUpdatedAt(t.UpdatedAt, at)
	r.tasks[id] = t
	return &t, nil
}

// DeleteTask removes the task and returns its snapshot.
func (r *MemoryTaskRepository) DeleteTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, apperr.NotFound()
	}
	delete(r.tasks, id)
	return &t, nil
}

// Ping always succeeds.
func (r *MemoryTaskRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WipeData removes every task.
func (r *MemoryTaskRepository) WipeData(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = make(map[string]models.Task)
	return nil
}

// Close is a no-op.
func (r *MemoryTaskRepository) Close(ctx context.Context) error {
	return nil
}
