package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/campusdesk/internal/config"
	"github.com/raphaelgruber/campusdesk/internal/db"
	"github.com/raphaelgruber/campusdesk/internal/mongostore"
	"github.com/raphaelgruber/campusdesk/internal/neostore"
	"github.com/raphaelgruber/campusdesk/internal/service"
)

// taskStore is a task repository with a connection lifecycle.
type taskStore interface {
	service.TaskRepository
	Ping(ctx context.Context) error
	WipeData(ctx context.Context) error
	Close(ctx context.Context) error
}

// openStore connects to the backend selected by cfg.StoreBackend and
// initializes its schema.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (taskStore, error) {
	switch cfg.StoreBackend {
	case config.StoreSurrealDB, "":
		client, err := db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to SurrealDB: %w", err)
		}
		if err := client.InitSchema(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return client, nil

	case config.StoreMongoDB:
		store, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		if err := store.InitSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return store, nil

	case config.StoreNeo4j:
		store, err := neostore.New(ctx, neostore.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPass,
			Database: cfg.Neo4jDatabase,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to Neo4j: %w", err)
		}
		if err := store.InitSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return store, nil

	case config.StoreMemory:
		logger.Warn("using in-memory task store; data is lost on restart")
		return service.NewMemoryTaskRepository(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
