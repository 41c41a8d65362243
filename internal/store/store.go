// Package store persists final document-similarity scores in PostgreSQL
// and serves ranked lookups for the API server.
//
// It requires a `document_similarity` table:
//
//	CREATE TABLE document_similarity (
//	    doc_a       TEXT NOT NULL,
//	    doc_b       TEXT NOT NULL,
//	    score       DOUBLE PRECISION NOT NULL,
//	    computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (doc_a, doc_b)
//	);
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/postgres"
)

// Neighbor is one ranked similarity result for a queried document.
type Neighbor struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Store reads and writes the document_similarity table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("similarity-store"),
	}
}

// EnsureSchema creates the document_similarity table if it does not
// exist. Safe to call on every loader start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS document_similarity (
		     doc_a       TEXT NOT NULL,
		     doc_b       TEXT NOT NULL,
		     score       DOUBLE PRECISION NOT NULL,
		     computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		     PRIMARY KEY (doc_a, doc_b)
		 )`,
	)
	if err != nil {
		return fmt.Errorf("creating document_similarity table: %w", err)
	}
	return nil
}

// UpsertBatch loads a batch of similarity records in one transaction,
// overwriting any previous score for the same pair. Pair keys are split
// into their two halves for storage; a malformed key fails the batch.
func (s *Store) UpsertBatch(ctx context.Context, sims []record.Similarity) error {
	if len(sims) == 0 {
		return nil
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO document_similarity (doc_a, doc_b, score, computed_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (doc_a, doc_b)
			 DO UPDATE SET score = EXCLUDED.score, computed_at = EXCLUDED.computed_at`,
		)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, sim := range sims {
			docA, docB, err := record.SplitPairKey(sim.Pair)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, docA, docB, sim.Score, now); err != nil {
				return fmt.Errorf("upserting pair %s: %w", sim.Pair, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("similarity batch loaded", "rows", len(sims))
	return nil
}

// Similar returns the documents most similar to docID, ranked by score.
// The queried document may appear on either side of a stored pair.
func (s *Store) Similar(ctx context.Context, docID string, limit int) ([]Neighbor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT CASE WHEN doc_a = $1 THEN doc_b ELSE doc_a END AS other, score
		 FROM document_similarity
		 WHERE doc_a = $1 OR doc_b = $1
		 ORDER BY score DESC, other ASC
		 LIMIT $2`,
		docID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying similar documents: %w", err)
	}
	defer rows.Close()

	neighbors := make([]Neighbor, 0, limit)
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.DocID, &n.Score); err != nil {
			return nil, fmt.Errorf("scanning similarity row: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating similarity rows: %w", err)
	}
	return neighbors, nil
}

// Ping verifies database connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
