// Package loader persists stage-4 similarity output into PostgreSQL and
// optionally announces updated pairs on Kafka for downstream consumers.
package loader

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cjdd3b/car-datascience-toolkit/internal/record"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/kafka"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/resilience"
)

const defaultBatchSize = 500

// UpdateEvent is published for every persisted pair when a producer is
// configured.
type UpdateEvent struct {
	DocA      string    `json:"doc_a"`
	DocB      string    `json:"doc_b"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SimilarityStore is the write surface the loader needs from the store.
type SimilarityStore interface {
	UpsertBatch(ctx context.Context, sims []record.Similarity) error
}

// Loader batches similarity records into the store.
type Loader struct {
	store     SimilarityStore
	producer  *kafka.Producer
	batchSize int
	retry     resilience.RetryConfig
	policy    stream.Policy
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds a Loader. producer may be nil to skip event publishing;
// batchSize <= 0 selects the default.
func New(s SimilarityStore, producer *kafka.Producer, batchSize int, strict bool, m *metrics.Metrics) *Loader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	log := logger.WithComponent("loader")
	return &Loader{
		store:     s,
		producer:  producer,
		batchSize: batchSize,
		policy: stream.Policy{
			Stage:   "simloader",
			Strict:  strict,
			Logger:  log,
			Metrics: m,
		},
		metrics: m,
		logger:  log,
	}
}

// Run reads pair-score lines until EOF, flushing a batch to PostgreSQL
// every batchSize records and once more at the end.
func (l *Loader) Run(ctx context.Context, in io.Reader) error {
	sc := stream.NewScanner(in)
	batch := make([]record.Similarity, 0, l.batchSize)
	var total int

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.policy.CountIn()
		sim, err := record.ParseSimilarity(sc.Text())
		if err != nil {
			if perr := l.policy.HandleRecordError(err, sc.Line()); perr != nil {
				return perr
			}
			continue
		}
		batch = append(batch, sim)
		if len(batch) >= l.batchSize {
			if err := l.flush(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := l.flush(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
	}
	l.logger.Info("similarity load complete", "rows", total)
	return nil
}

func (l *Loader) flush(ctx context.Context, batch []record.Similarity) error {
	err := resilience.Retry(ctx, "postgres upsert", l.retry, func() error {
		return l.store.UpsertBatch(ctx, batch)
	})
	if err != nil {
		return err
	}
	if l.metrics != nil {
		l.metrics.SimilarityRowsTotal.Add(float64(len(batch)))
	}
	l.logger.Debug("batch persisted", "rows", len(batch))
	if l.producer == nil {
		return nil
	}
	return l.publish(ctx, batch)
}

func (l *Loader) publish(ctx context.Context, batch []record.Similarity) error {
	now := time.Now().UTC()
	events := make([]kafka.Event, 0, len(batch))
	for _, sim := range batch {
		a, b, err := record.SplitPairKey(sim.Pair)
		if err != nil {
			continue
		}
		events = append(events, kafka.Event{
			Key:   sim.Pair,
			Value: UpdateEvent{DocA: a, DocB: b, Score: sim.Score, UpdatedAt: now},
		})
	}
	if len(events) == 0 {
		return nil
	}
	if err := l.producer.PublishBatch(ctx, events); err != nil {
		// Rows are already durable in PostgreSQL; a failed announcement
		// is logged rather than failing the load.
		l.logger.Warn("failed to publish similarity events", "error", err, "count", len(events))
	}
	return nil
}
