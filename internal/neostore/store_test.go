package neostore

import (
	"fmt"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCypher(t *testing.T) {
	q := updateCypher(models.TaskPatch{Completed: models.Ptr(true)})
	assert.Contains(t, q, "MATCH (:User {id: $owner})-[:OWNS]->(t:Task {id: $id})")
	assert.Contains(t, q, "t.updated_at = CASE WHEN $at > t.updated_at")
	assert.Contains(t, q, "t.completed = $completed")
	assert.NotContains(t, q, "t.text")

	q = updateCypher(models.TaskPatch{Text: models.Ptr("x")})
	assert.Contains(t, q, "t.text = $text")
	assert.NotContains(t, q, "t.completed")
}

func TestTaskFromProps(t *testing.T) {
	created := time.Date(2026, 9, 1, 8, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	props := map[string]any{
		"id":         "t1",
		"text":       "Buy milk",
		"completed":  true,
		"created_at": created,
		"updated_at": created.Add(time.Millisecond),
	}

	task, err := taskFromProps(props, "alice")
	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "alice", task.OwnerID)
	assert.True(t, task.Completed)
	assert.Equal(t, time.UTC, task.CreatedAt.Location())

	delete(props, "created_at")
	_, err = taskFromProps(props, "alice")
	assert.Error(t, err)
}

func TestIsConstraintViolation(t *testing.T) {
	err := fmt.Errorf("create: %w", &neo4j.Neo4jError{Code: "Neo.ClientError.Schema.ConstraintValidationFailed"})
	assert.True(t, isConstraintViolation(err))
	assert.False(t, isConstraintViolation(&neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError"}))
	assert.False(t, isConstraintViolation(fmt.Errorf("plain")))
}
