package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/raphaelgruber/campusdesk/internal/service"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Compile-time check that Client implements service.TaskRepository.
var _ service.TaskRepository = (*Client)(nil)

// taskRow is a task record as stored in the task table.
type taskRow struct {
	ID        surrealmodels.RecordID `json:"id"`
	Owner     string                 `json:"owner"`
	Text      string                 `json:"text"`
	Completed bool                   `json:"completed"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func (r taskRow) toTask() (models.Task, error) {
	id, err := RecordIDString(r.ID)
	if err != nil {
		return models.Task{}, err
	}
	return models.Task{
		ID:        id,
		OwnerID:   r.Owner,
		Text:      r.Text,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// formatTime renders t for type::datetime().
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// firstRow returns the first row of the first statement, or nil.
func firstRow(results *[]surrealdb.QueryResult[[]taskRow]) *taskRow {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil
	}
	return &(*results)[0].Result[0]
}

// ListTasks returns the owner's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	results, err := surrealdb.Query[[]taskRow](ctx, c.db, `
		SELECT * FROM task WHERE owner = $owner ORDER BY created_at DESC, id DESC
	`, map[string]any{"owner": ownerID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Task{}, nil
	}
	rows := (*results)[0].Result
	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTask()
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, t)
	}
	service.SortNewestFirst(tasks)
	return tasks, nil
}

// InsertTask creates the task record.
func (c *Client) InsertTask(ctx context.Context, task models.Task) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("task", $id) CONTENT {
			owner: $owner,
			text: $text,
			completed: $completed,
			created_at: type::datetime($created_at),
			updated_at: type::datetime($updated_at)
		} RETURN NONE
	`, map[string]any{
		"id":         task.ID,
		"owner":      task.OwnerID,
		"text":       task.Text,
		"completed":  task.Completed,
		"created_at": formatTime(task.CreatedAt),
		"updated_at": formatTime(task.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("create task: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateTask applies the patch in a single UPDATE statement. The WHERE
// clause scopes it to the owner, so a foreign task matches nothing.
func (c *Client) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch, at time.Time) (*models.Task, error) {
	sets := []string{
		"updated_at = IF type::datetime($at) > updated_at THEN type::datetime($at) ELSE updated_at + 1ms END",
	}
	vars := map[string]any{
		"id":    id,
		"owner": ownerID,
		"at":    formatTime(at),
	}
	if patch.Text != nil {
		sets = append(sets, "text = $text")
		vars["text"] = *patch.Text
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = $completed")
		vars["completed"] = *patch.Completed
	}

	sql := fmt.Sprintf(`
		UPDATE type::record("task", $id) SET %s WHERE owner = $owner RETURN AFTER
	`, strings.Join(sets, ", "))

	return c.writeOne(ctx, "update task", sql, vars)
}

// DeleteTask removes the task and returns its state before deletion.
func (c *Client) DeleteTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	return c.writeOne(ctx, "delete task", `
		DELETE type::record("task", $id) WHERE owner = $owner RETURN BEFORE
	`, map[string]any{"id": id, "owner": ownerID})
}

// maxConflictRetries bounds how often a single-record write is retried after
// SurrealDB reports a transaction conflict.
const maxConflictRetries = 3

// writeOne runs a statement that touches at most one task and returns it.
// No row means the task is missing or owned by someone else.
func (c *Client) writeOne(ctx context.Context, op, sql string, vars map[string]any) (*models.Task, error) {
	var (
		results *[]surrealdb.QueryResult[[]taskRow]
		err     error
	)
	for attempt := 0; ; attempt++ {
		results, err = surrealdb.Query[[]taskRow](ctx, c.db, sql, vars)
		err = wrapQueryError(err)
		if !errors.Is(err, ErrTransactionConflict) || attempt == maxConflictRetries {
			break
		}
		c.logger.Warn("retrying after transaction conflict", "op", op, "attempt", attempt+1)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	row := firstRow(results)
	if row == nil {
		return nil, apperr.NotFound()
	}
	t, err := row.toTask()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}
