// Package consumer reads text events from Kafka and applies them to the
// scanner's in-memory corpus, keeping it in sync with the ingestion service.
package consumer

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/ingestion"
	"github.com/permscan/permscan/pkg/kafka"
	"github.com/permscan/permscan/pkg/metrics"
)

// CorpusConsumer wraps a Kafka consumer that feeds the corpus.
type CorpusConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a CorpusConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *CorpusConsumer {
	return &CorpusConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "corpus-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (cc *CorpusConsumer) Start(ctx context.Context) error {
	cc.logger.Info("corpus consumer starting")
	return cc.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that applies each text event
// to the store. If db is non-nil, the text's status is updated from PENDING
// to SCANNABLE in PostgreSQL once the text is in the corpus. m may be nil.
func HandleMessage(store *corpus.Store, db *sql.DB, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "corpus-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.TextEvent](value)
		if err != nil {
			logger.Error("failed to decode text event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		switch event.Op {
		case ingestion.OpRemove:
			store.Remove(event.TextID)
			updateTextStatus(ctx, db, event.TextID, "REMOVED", logger)
			logger.Info("text removed from corpus", "text_id", event.TextID)
			return nil
		case ingestion.OpAdd, "":
			// Older producers omit Op for additions.
		default:
			logger.Warn("unknown text event op, skipping", "op", event.Op, "text_id", event.TextID)
			return nil
		}

		addedAt := event.SubmittedAt
		if addedAt.IsZero() {
			addedAt = time.Now().UTC()
		}
		store.Add(corpus.Text{
			ID:      event.TextID,
			Title:   event.Title,
			Body:    event.Body,
			AddedAt: addedAt,
		})
		if m != nil {
			m.TextsIngestedTotal.Inc()
		}
		updateTextStatus(ctx, db, event.TextID, "SCANNABLE", logger)

		logger.Info("text added to corpus",
			"text_id", event.TextID,
			"partition", store.PartitionFor(event.TextID),
			"size_bytes", len(event.Body),
		)
		return nil
	}
}

// updateTextStatus updates the text's status and scannable_at timestamp in
// PostgreSQL. A nil db skips the update.
func updateTextStatus(ctx context.Context, db *sql.DB, textID, status string, logger *slog.Logger) {
	if db == nil {
		return
	}
	_, err := db.ExecContext(ctx,
		`UPDATE texts SET status = $1, scannable_at = NOW() WHERE id = $2`,
		status, textID,
	)
	if err != nil {
		logger.Error("failed to update text status",
			"text_id", textID,
			"status", status,
			"error", err,
		)
	}
}
