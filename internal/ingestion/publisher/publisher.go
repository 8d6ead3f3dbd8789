// Package publisher persists texts to PostgreSQL and publishes text events
// to Kafka for the scanner's corpus. It assigns each text a partition by
// hashing its ID the same way the corpus does, and supports idempotent
// writes.
package publisher

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"
	"time"

	"github.com/permscan/permscan/internal/ingestion"
	apperrors "github.com/permscan/permscan/pkg/errors"
	"github.com/permscan/permscan/pkg/kafka"
	"github.com/permscan/permscan/pkg/postgres"
	"github.com/permscan/permscan/pkg/resilience"
)

// Publisher coordinates text persistence and Kafka event production.
type Publisher struct {
	db            *postgres.Client
	producer      *kafka.Producer
	numPartitions int
	retryCfg      resilience.RetryConfig
	logger        *slog.Logger
}

// New creates a Publisher. numPartitions must match the scanner's corpus
// partition count so both sides agree on text placement.
func New(db *postgres.Client, producer *kafka.Producer, numPartitions int) *Publisher {
	if numPartitions <= 0 {
		numPartitions = 8
	}
	return &Publisher{
		db:            db,
		producer:      producer,
		numPartitions: numPartitions,
		retryCfg: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
		},
		logger: slog.Default().With("component", "publisher"),
	}
}

// Submit persists the text in PostgreSQL, assigns its corpus partition, and
// publishes a TextEvent to Kafka with retries. Duplicate idempotency keys
// return the original response without re-insertion.
func (p *Publisher) Submit(ctx context.Context, req *ingestion.SubmitRequest) (*ingestion.SubmitResponse, error) {
	bodyHash := fmt.Sprintf("%x", sha256.Sum256([]byte(req.Body)))
	if req.IdempotencyKey != "" {
		existing, err := p.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			p.logger.Info("duplicate submission detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.TextID,
			)
			return existing, nil
		}
	}

	var textID string
	err := p.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO texts (title, body_hash, body_size, idempotency_key, status)
		VALUES ($1, $2, $3, $4, 'PENDING')
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`, req.Title, bodyHash, len(req.Body), nullableString(req.IdempotencyKey)).Scan(&textID)
		if err == sql.ErrNoRows {
			return apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("inserting text: %w", err)
	}

	partition := p.PartitionFor(textID)
	if _, err := p.db.DB.ExecContext(ctx,
		`UPDATE texts SET partition = $1 WHERE id = $2`, partition, textID); err != nil {
		p.logger.Error("failed to record partition", "text_id", textID, "error", err)
	}

	event := kafka.Event{
		Key: strconv.Itoa(partition),
		Value: ingestion.TextEvent{
			Op:          ingestion.OpAdd,
			TextID:      textID,
			Title:       req.Title,
			Body:        req.Body,
			Partition:   partition,
			SubmittedAt: time.Now().UTC(),
		},
	}
	if err := p.publishWithRetry(ctx, event); err != nil {
		p.logger.Error("failed to publish to kafka, text stuck in PENDING",
			"text_id", textID,
			"partition", partition,
			"error", err,
		)
	}

	return &ingestion.SubmitResponse{
		TextID:    textID,
		Status:    "PENDING",
		Partition: partition,
	}, nil
}

// Remove deletes the text row and publishes a removal event so the scanner
// drops it from the corpus.
func (p *Publisher) Remove(ctx context.Context, textID string) error {
	res, err := p.db.DB.ExecContext(ctx, `DELETE FROM texts WHERE id = $1`, textID)
	if err != nil {
		return fmt.Errorf("deleting text: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrTextNotFound, textID)
	}

	partition := p.PartitionFor(textID)
	event := kafka.Event{
		Key: strconv.Itoa(partition),
		Value: ingestion.TextEvent{
			Op:          ingestion.OpRemove,
			TextID:      textID,
			Partition:   partition,
			SubmittedAt: time.Now().UTC(),
		},
	}
	if err := p.publishWithRetry(ctx, event); err != nil {
		return fmt.Errorf("publishing removal event: %w", err)
	}
	p.logger.Info("text removed", "text_id", textID)
	return nil
}

// PartitionFor maps a text ID to its corpus partition. The FNV-1a hash here
// must stay in sync with the corpus store's placement.
func (p *Publisher) PartitionFor(textID string) int {
	h := fnv.New32a()
	h.Write([]byte(textID))
	return int(h.Sum32() % uint32(p.numPartitions))
}

func (p *Publisher) publishWithRetry(ctx context.Context, event kafka.Event) error {
	return resilience.Retry(ctx, "kafka-publish", p.retryCfg, func() error {
		return p.producer.Publish(ctx, event)
	})
}

// findByIdempotencyKey returns the prior response for a known idempotency
// key, or nil when unseen.
func (p *Publisher) findByIdempotencyKey(ctx context.Context, key string) (*ingestion.SubmitResponse, error) {
	var resp ingestion.SubmitResponse
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT id, status, partition FROM texts WHERE idempotency_key=$1`, key).
		Scan(&resp.TextID, &resp.Status, &resp.Partition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &resp, nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
