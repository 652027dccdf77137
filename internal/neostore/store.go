// Package neostore provides the Neo4j task repository. Tasks are stored as
// (:User)-[:OWNS]->(:Task) so ownership is a graph edge.
package neostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/raphaelgruber/campusdesk/internal/service"
)

// ErrTaskAlreadyExists indicates a task with the same id was already created.
var ErrTaskAlreadyExists = errors.New("task already exists")

// Config holds Neo4j connection configuration.
type Config struct {
	URI      string
	Username string
	Password string
	Database string // empty uses the server default
}

// Store is a TaskRepository backed by Neo4j.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// Compile-time check that Store implements service.TaskRepository.
var _ service.TaskRepository = (*Store)(nil)

// schemaCypher holds one statement per entry; Neo4j runs schema commands singly.
var schemaCypher = []string{
	"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE INDEX task_created IF NOT EXISTS FOR (t:Task) ON (t.created_at)",
}

// New creates a driver and verifies connectivity.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}

	logger.Info("connecting to Neo4j", "uri", cfg.URI)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify connectivity: %w", err)
	}

	logger.Info("Neo4j connection established")
	return &Store{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Close closes the driver.
func (s *Store) Close(ctx context.Context) error {
	s.logger.Info("closing Neo4j connection")
	return s.driver.Close(ctx)
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// WipeData deletes all users and tasks while preserving constraints.
// Use for testing only.
func (s *Store) WipeData(ctx context.Context) error {
	s.logger.Warn("wiping all tasks from database")
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, "MATCH (n) WHERE n:Task OR n:User DETACH DELETE n", nil)
	if err != nil {
		return fmt.Errorf("wipe data: %w", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("wipe data: %w", err)
	}
	return nil
}

// InitSchema creates constraints and indexes.
func (s *Store) InitSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaCypher {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// ListTasks returns the owner's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (:User {id: $owner})-[:OWNS]->(t:Task) "+
				"RETURN t {.*} AS task ORDER BY t.created_at DESC, t.id DESC",
			map[string]any{"owner": ownerID},
		)
		if err != nil {
			return nil, err
		}

		tasks := []models.Task{}
		for res.Next(ctx) {
			t, err := taskFromRecord(res.Record(), ownerID)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := result.([]models.Task)
	service.SortNewestFirst(tasks)
	return tasks, nil
}

// InsertTask creates the task node and its ownership edge.
func (s *Store) InsertTask(ctx context.Context, task models.Task) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MERGE (u:User {id: $owner}) "+
				"CREATE (u)-[:OWNS]->(:Task {id: $id, text: $text, completed: $completed, "+
				"created_at: $created_at, updated_at: $updated_at})",
			map[string]any{
				"owner":      task.OwnerID,
				"id":         task.ID,
				"text":       task.Text,
				"completed":  task.Completed,
				"created_at": task.CreatedAt.UTC(),
				"updated_at": task.UpdatedAt.UTC(),
			},
		)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrTaskAlreadyExists, task.ID)
		}
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// updateCypher builds the SET statement for a patch. updated_at is computed
// in the same statement so concurrent updates cannot lower it.
func updateCypher(patch models.TaskPatch) string {
	sets := []string{
		"t.updated_at = CASE WHEN $at > t.updated_at THEN $at ELSE t.updated_at + duration({milliseconds: 1}) END",
	}
	if patch.Text != nil {
		sets = append(sets, "t.text = $text")
	}
	if patch.Completed != nil {
		sets = append(sets, "t.completed = $completed")
	}
	return "MATCH (:User {id: $owner})-[:OWNS]->(t:Task {id: $id}) " +
		"SET " + strings.Join(sets, ", ") + " " +
		"RETURN t {.*} AS task"
}

// UpdateTask applies the patch to a task owned by ownerID.
func (s *Store) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch, at time.Time) (*models.Task, error) {
	params := map[string]any{"owner": ownerID, "id": id, "at": at.UTC()}
	if patch.Text != nil {
		params["text"] = *patch.Text
	}
	if patch.Completed != nil {
		params["completed"] = *patch.Completed
	}

	return s.writeOne(ctx, "update task", ownerID, updateCypher(patch), params)
}

// DeleteTask removes the task and returns its properties before deletion.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	return s.writeOne(ctx, "delete task", ownerID,
		"MATCH (:User {id: $owner})-[:OWNS]->(t:Task {id: $id}) "+
			"WITH t, t {.*} AS task DETACH DELETE t RETURN task",
		map[string]any{"owner": ownerID, "id": id},
	)
}

// writeOne runs a write returning at most one task. No row means NotFound.
func (s *Store) writeOne(ctx context.Context, op, ownerID, cypher string, params map[string]any) (*models.Task, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}
		t, err := taskFromRecord(res.Record(), ownerID)
		if err != nil {
			return nil, err
		}
		return &t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	t, _ := result.(*models.Task)
	if t == nil {
		return nil, apperr.NotFound()
	}
	return t, nil
}

func taskFromRecord(record *neo4j.Record, ownerID string) (models.Task, error) {
	raw, ok := record.Get("task")
	if !ok {
		return models.Task{}, errors.New("record has no task column")
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return models.Task{}, fmt.Errorf("unexpected task value type %T", raw)
	}
	return taskFromProps(props, ownerID)
}

// taskFromProps converts node properties into a Task.
func taskFromProps(props map[string]any, ownerID string) (models.Task, error) {
	id, ok := props["id"].(string)
	if !ok {
		return models.Task{}, fmt.Errorf("task id has type %T", props["id"])
	}
	text, _ := props["text"].(string)
	completed, _ := props["completed"].(bool)
	created, ok := props["created_at"].(time.Time)
	if !ok {
		return models.Task{}, fmt.Errorf("task %s created_at has type %T", id, props["created_at"])
	}
	updated, ok := props["updated_at"].(time.Time)
	if !ok {
		return models.Task{}, fmt.Errorf("task %s updated_at has type %T", id, props["updated_at"])
	}
	return models.Task{
		ID:        id,
		OwnerID:   ownerID,
		Text:      text,
		Completed: completed,
		CreatedAt: created.UTC(),
		UpdatedAt: updated.UTC(),
	}, nil
}

func isConstraintViolation(err error) bool {
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed"
}
