// Package service provides the campusdesk business logic: the owner-scoped
// task store and the conversation proxy.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/metrics"
	"github.com/raphaelgruber/campusdesk/internal/models"
)

// TaskRepository is the storage contract every task backend implements.
//
// Every lookup is filtered by both id and owner. A task owned by someone else
// is reported exactly like a missing one, as apperr.NotFound.
type TaskRepository interface {
	// ListTasks returns all tasks of the owner, newest first.
	ListTasks(ctx context.Context, ownerID string) ([]models.Task, error)

	// InsertTask stores a fully built task.
	InsertTask(ctx context.Context, task models.Task) error

	// UpdateTask atomically applies the non-nil patch fields and sets
	// updatedAt to max(at, previous updatedAt + 1ms). Returns the new state.
	UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch, at time.Time) (*models.Task, error)

	// DeleteTask removes the task and returns its last state.
	DeleteTask(ctx context.Context, ownerID, id string) (*models.Task, error)
}

// TimestampPrecision is the coarsest timestamp resolution among the backends.
// All task timestamps are truncated to it so every backend round-trips them.
const TimestampPrecision = time.Millisecond

// TaskService implements the task store operations on top of a repository.
type TaskService struct {
	repo    TaskRepository
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewTaskService creates a new task service.
func NewTaskService(repo TaskRepository, logger *slog.Logger, mc *metrics.Collector) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		repo:    repo,
		logger:  logger,
		metrics: mc,
		now:     time.Now,
	}
}

func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(TimestampPrecision)
}

// List returns the owner's tasks, most recently created first.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]models.Task, error) {
	if ownerID == "" {
		return nil, apperr.AuthRejected("missing user identity", nil)
	}

	start := time.Now()
	tasks, err := s.repo.ListTasks(ctx, ownerID)
	s.metrics.RecordTiming(metrics.OpTaskList, time.Since(start), err)
	if err != nil {
		return nil, s.storeError("list todos", err, "owner", ownerID)
	}

	SortNewestFirst(tasks)
	if tasks == nil {
		tasks = []models.Task{}
	}
	s.logger.Debug("listed todos", "owner", ownerID, "count", len(tasks))
	return tasks, nil
}

// Create builds and stores a new task for the owner.
func (s *TaskService) Create(ctx context.Context, ownerID string, input models.TaskInput) (*models.Task, error) {
	if ownerID == "" {
		return nil, apperr.AuthRejected("missing user identity", nil)
	}
	if input.Text == nil {
		return nil, apperr.Validation("Todo text is required")
	}
	text, ok := models.NormalizeText(*input.Text)
	if !ok {
		return nil, apperr.Validation("Todo text is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "generate todo id", err)
	}

	now := s.timestamp()
	task := models.Task{
		ID:        id.String(),
		OwnerID:   ownerID,
		Text:      text,
		Completed: input.Completed != nil && *input.Completed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	start := time.Now()
	err = s.repo.InsertTask(ctx, task)
	s.metrics.RecordTiming(metrics.OpTaskWrite, time.Since(start), err)
	if err != nil {
		return nil, s.storeError("create todo", err, "owner", ownerID)
	}

	s.logger.Info("todo created", "id", task.ID, "owner", ownerID)
	return &task, nil
}

// Update applies a partial update to one of the owner's tasks.
// Validation happens before the store is touched, so a rejected update
// changes nothing. An empty patch only moves updatedAt.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error) {
	if ownerID == "" {
		return nil, apperr.AuthRejected("missing user identity", nil)
	}
	if id == "" {
		return nil, apperr.NotFound()
	}
	if patch.Text != nil {
		text, ok := models.NormalizeText(*patch.Text)
		if !ok {
			return nil, apperr.Validation("Todo text cannot be empty")
		}
		patch.Text = &text
	}

	start := time.Now()
	task, err := s.repo.UpdateTask(ctx, ownerID, id, patch, s.timestamp())
	s.metrics.RecordTiming(metrics.OpTaskWrite, time.Since(start), err)
	if err != nil {
		return nil, s.storeError("update todo", err, "owner", ownerID, "id", id)
	}

	s.logger.Info("todo updated", "id", id, "owner", ownerID, "touch_only", patch.IsEmpty())
	return task, nil
}

// Delete removes one of the owner's tasks and returns its final snapshot.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if ownerID == "" {
		return nil, apperr.AuthRejected("missing user identity", nil)
	}
	if id == "" {
		return nil, apperr.NotFound()
	}

	start := time.Now()
	task, err := s.repo.DeleteTask(ctx, ownerID, id)
	s.metrics.RecordTiming(metrics.OpTaskWrite, time.Since(start), err)
	if err != nil {
		return nil, s.storeError("delete todo", err, "owner", ownerID, "id", id)
	}

	s.logger.Info("todo deleted", "id", id, "owner", ownerID)
	return task, nil
}

// storeError passes typed errors through and reports anything else as the
// store being unavailable.
func (s *TaskService) storeError(op string, err error, attrs ...any) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Code == apperr.CodeNotFound {
			s.logger.Debug(op+": not found", attrs...)
		} else {
			s.logger.Warn(op+" failed", append(attrs, "error", err)...)
		}
		return err
	}
	s.logger.Error(op+" failed", append(attrs, "error", err)...)
	return apperr.StoreUnavailable(err)
}

// SortNewestFirst orders tasks by creation time descending, ties by id
// descending. Ids are UUIDv7, so ties fall back to insertion order.
func SortNewestFirst(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
}

// NextUpdatedAt returns max(at, prev+1ms): the updatedAt value every backend
// writes on update.
func NextUpdatedAt(prev, at time.Time) time.Time {
	if bumped := prev.Add(TimestampPrecision); at.Before(bumped) {
		return bumped
	}
	return at
}
