// Package worker bootstraps the River job queue and the schema drift job.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"gorm.io/gorm"
)

// Queue is the interface exposed by both the River client and inlineQueue.
type Queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// EnqueueSchemaDrift schedules a drift report for a data type whose
	// field list was just replaced.
	EnqueueSchemaDrift(ctx context.Context, args SchemaDriftArgs) error
}

// Client wraps river.Client and exposes a Start/Stop lifecycle.
type Client struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger
}

// Start begins processing queued jobs.
func (c *Client) Start(ctx context.Context) error { return c.client.Start(ctx) }

// Stop gracefully shuts down the worker client.
func (c *Client) Stop(ctx context.Context) error { return c.client.Stop(ctx) }

// EnqueueSchemaDrift inserts a schema_drift job.
func (c *Client) EnqueueSchemaDrift(ctx context.Context, args SchemaDriftArgs) error {
	if _, err := c.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("enqueue schema drift: %w", err)
	}
	return nil
}

// inlineQueue is used when River is unavailable (DB_DRIVER=sqlite); jobs
// run synchronously on the caller's goroutine.
type inlineQueue struct {
	db  *gorm.DB
	log *slog.Logger
}

func (q *inlineQueue) Start(_ context.Context) error {
	q.log.Info("worker queue running inline; River requires the postgres driver")
	return nil
}

func (q *inlineQueue) Stop(_ context.Context) error { return nil }

func (q *inlineQueue) EnqueueSchemaDrift(ctx context.Context, args SchemaDriftArgs) error {
	report, err := CheckSchemaDrift(ctx, q.db, args)
	if err != nil {
		return err
	}
	report.Log(q.log)
	return nil
}

// New creates a queue implementation appropriate for the given driver.
//   - "postgres": returns a River client backed by pool.
//   - anything else: returns a queue that runs jobs inline.
//
// pool may be nil when driver != "postgres".
func New(pool *pgxpool.Pool, db *gorm.DB, driver string, concurrency int, log *slog.Logger) (Queue, error) {
	if driver != "postgres" {
		return &inlineQueue{db: db, log: log}, nil
	}
	workers := river.NewWorkers()
	river.AddWorker(workers, &schemaDriftWorker{db: db, log: log})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: concurrency},
		},
		Workers: workers,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &Client{client: client, log: log}, nil
}

// MigrateRiver runs River's built-in schema migrations against the given pool.
// Only call this when DB_DRIVER=postgres.
func MigrateRiver(ctx context.Context, db *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}
	return nil
}
