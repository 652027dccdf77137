// Package mongostore provides the MongoDB task repository.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/raphaelgruber/campusdesk/internal/service"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionName is the collection holding task documents.
const CollectionName = "todos"

// ErrTaskAlreadyExists indicates a task with the same id was already inserted.
var ErrTaskAlreadyExists = errors.New("task already exists")

// taskDoc is a task as stored in MongoDB.
type taskDoc struct {
	ID        string    `bson:"_id"`
	User      string    `bson:"user"`
	Text      string    `bson:"text"`
	Completed bool      `bson:"completed"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func docFromTask(t models.Task) taskDoc {
	return taskDoc{
		ID:        t.ID,
		User:      t.OwnerID,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (d taskDoc) toTask() models.Task {
	return models.Task{
		ID:        d.ID,
		OwnerID:   d.User,
		Text:      d.Text,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// Store is a TaskRepository backed by one MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// Compile-time check that Store implements service.TaskRepository.
var _ service.TaskRepository = (*Store)(nil)

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to MongoDB", "database", database)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("MongoDB connection established")
	return &Store{
		client: client,
		coll:   client.Database(database).Collection(CollectionName),
		logger: logger,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	s.logger.Info("closing MongoDB connection")
	return s.client.Disconnect(ctx)
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// WipeData deletes all tasks while preserving indexes.
// Use for testing only.
func (s *Store) WipeData(ctx context.Context) error {
	s.logger.Warn("wiping all tasks from database")
	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}

// InitSchema creates the indexes used by owner-scoped queries.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_createdAt"),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// ListTasks returns the owner's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.D{{Key: "user", Value: ownerID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toTask())
	}
	service.SortNewestFirst(tasks)
	return tasks, nil
}

// InsertTask stores a new task document.
func (s *Store) InsertTask(ctx context.Context, task models.Task) error {
	if _, err := s.coll.InsertOne(ctx, docFromTask(task)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrTaskAlreadyExists, task.ID)
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// updatePipeline builds the aggregation-pipeline update for a patch.
// updatedAt becomes max(at, updatedAt + 1ms) inside the same document write.
func updatePipeline(patch models.TaskPatch, at time.Time) mongo.Pipeline {
	set := bson.D{{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: bson.A{
		at,
		bson.D{{Key: "$add", Value: bson.A{"$updatedAt", int64(service.TimestampPrecision / time.Millisecond)}}},
	}}}}}
	if patch.Text != nil {
		// $literal keeps a text starting with "$" from being read as a field path.
		set = append(set, bson.E{Key: "text", Value: bson.D{{Key: "$literal", Value: *patch.Text}}})
	}
	if patch.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *patch.Completed})
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

// UpdateTask applies the patch with a single FindOneAndUpdate scoped to the owner.
func (s *Store) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch, at time.Time) (*models.Task, error) {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "user", Value: ownerID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, updatePipeline(patch, at), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	t := doc.toTask()
	return &t, nil
}

// DeleteTask removes the task and returns the deleted document.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "user", Value: ownerID}}

	var doc taskDoc
	err := s.coll.FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	t := doc.toTask()
	return &t, nil
}
