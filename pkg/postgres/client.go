// Package postgres opens the similarity database used by the loader and
// the API server. The handle is embedded so callers query it directly;
// InTx adds the transactional path the batch loader writes through.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
)

const connectTimeout = 5 * time.Second

// Client is a live connection pool to the similarity database.
type Client struct {
	*sql.DB
}

// New opens the pool described by cfg and verifies it with a bounded ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	logger.WithComponent("postgres").Info("connected",
		"host", cfg.Host,
		"database", cfg.Database,
	)
	return &Client{DB: db}, nil
}

// InTx runs fn inside a transaction, committing on success. The deferred
// rollback is a no-op once the transaction has committed.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
