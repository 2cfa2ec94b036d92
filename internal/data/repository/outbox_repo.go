package repository

import (
	"context"
	"fmt"
	"time"

	"ticket-booking/internal/data/entity"
	"ticket-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	Create(ctx context.Context, msg *entity.OutboxMessage) error

	// FetchPending locks up to limit publishable rows. Must run inside a
	// transaction so concurrent relays skip each other's rows.
	FetchPending(ctx context.Context, limit int) ([]*entity.OutboxMessage, error)
	MarkPublished(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type outboxRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOutboxRepository(db database.PgxIface, log *zap.Logger) OutboxRepository {
	return &outboxRepository{
		db:  db,
		log: log.With(zap.String("repository", "outbox")),
	}
}

func (r *outboxRepository) Create(ctx context.Context, msg *entity.OutboxMessage) error {
	query := `
		INSERT INTO payment_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, retry_count, max_retries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		msg.ID,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.Payload,
		msg.Status,
		msg.RetryCount,
		msg.MaxRetries,
		msg.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create outbox message",
			zap.Error(err),
			zap.String("event_type", msg.EventType),
			zap.String("aggregate_id", msg.AggregateID),
		)
		return fmt.Errorf("create outbox message %s: %w", msg.EventType, err)
	}

	return nil
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]*entity.OutboxMessage, error) {
	// failed rows are retried until max_retries is reached
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
		       retry_count, max_retries, last_error, created_at, published_at
		FROM payment_outbox
		WHERE status = 'pending' OR (status = 'failed' AND retry_count < max_retries)
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.log.Error("Failed to fetch pending outbox messages", zap.Error(err))
		return nil, fmt.Errorf("fetch pending outbox messages: %w", err)
	}
	defer rows.Close() // hands the connection back to the pool

	var messages []*entity.OutboxMessage
	for rows.Next() {
		var msg entity.OutboxMessage
		err := rows.Scan(
			&msg.ID,
			&msg.AggregateType,
			&msg.AggregateID,
			&msg.EventType,
			&msg.Payload,
			&msg.Status,
			&msg.RetryCount,
			&msg.MaxRetries,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.PublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		messages = append(messages, &msg)
	}

	// Check for errors during iteration, not just the query
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	return messages, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payment_outbox SET status = 'published', published_at = $2, last_error = NULL WHERE id = $1`,
		id, now,
	)
	if err != nil {
		return fmt.Errorf("mark outbox message %s published: %w", id, err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payment_outbox SET status = 'failed', last_error = $2, retry_count = retry_count + 1 WHERE id = $1`,
		id, errMsg,
	)
	if err != nil {
		return fmt.Errorf("mark outbox message %s failed: %w", id, err)
	}
	return nil
}
