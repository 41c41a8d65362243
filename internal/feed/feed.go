// Package feed bridges document-ingest events from Kafka into the
// similarity pipeline's stage-1 input format. It is the pipeline's entry
// collaborator: it normalizes text (optionally), maintains the corpus-size
// counter in Redis, and emits one `docid|text` line per document.
package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cjdd3b/car-datascience-toolkit/internal/prep"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/kafka"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
	pkgredis "github.com/cjdd3b/car-datascience-toolkit/pkg/redis"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/resilience"
)

// DocumentEvent is the Kafka message payload carrying one document to be
// fed into the pipeline.
type DocumentEvent struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Bridge consumes document events and writes stage-1 input lines.
type Bridge struct {
	mu         sync.Mutex
	w          *stream.Writer
	rdb        *pkgredis.Client
	preprocess bool
	opts       prep.Options
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewBridge creates a Bridge writing to w. rdb may be nil, in which case
// the corpus counter is not maintained.
func NewBridge(w *stream.Writer, rdb *pkgredis.Client, preprocess bool, m *metrics.Metrics) *Bridge {
	return &Bridge{
		w:          w,
		rdb:        rdb,
		preprocess: preprocess,
		opts:       prep.DefaultOptions(),
		metrics:    m,
		logger:     logger.WithComponent("docfeed"),
	}
}

// Handler returns the Kafka MessageHandler that feeds each document event
// into the pipeline input stream.
func (b *Bridge) Handler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[DocumentEvent](value)
		if err != nil {
			b.logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.DocumentID == "" {
			b.logger.Warn("dropping document event with empty id")
			return nil
		}

		text := event.Title + " " + event.Body
		if b.preprocess {
			text = prep.Clean(text, b.opts)
		} else {
			text = flatten(text)
		}

		b.mu.Lock()
		err = b.w.WriteLine(sanitizeID(event.DocumentID) + "|" + text)
		if err == nil {
			err = b.w.Flush()
		}
		b.mu.Unlock()
		if err != nil {
			return err
		}

		if b.rdb != nil {
			err := resilience.Retry(ctx, "corpus-counter", resilience.RetryConfig{}, func() error {
				_, err := b.rdb.IncrCorpusCount(ctx)
				return err
			})
			if err != nil {
				b.logger.Error("corpus counter update failed",
					"doc_id", event.DocumentID,
					"error", err,
				)
			}
		}

		if b.metrics != nil {
			b.metrics.DocsFedTotal.Inc()
		}
		b.logger.Debug("document fed", "doc_id", event.DocumentID)
		return nil
	}
}

// sanitizeID replaces the characters that would corrupt a record: the
// id/text separator, and any whitespace. A tab in particular would split
// the id across stage-1 output fields and the record would be dropped
// downstream after the corpus counter already moved.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '|' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, id)
}

// flatten replaces line breaks so each document stays on one input line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
