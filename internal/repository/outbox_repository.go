package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"instoo/internal/domain/outbox"

	"github.com/google/uuid"
)

const outboxColumns = `id, event_type, aggregate_type, aggregate_id, payload, status, retry_count, error, created_at, updated_at, processed_at`

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

// Create runs on the caller's transaction so the event commits with the change it describes.
func (r *outboxRepository) Create(ctx context.Context, e *outbox.OutboxEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox_events (`+outboxColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.EventType, e.AggregateType, e.AggregateID, e.Payload,
		string(e.Status), e.RetryCount, e.Error, e.CreatedAt, e.UpdatedAt, e.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event %s: %w", e.EventType, err)
	}
	return nil
}

// GetPending returns the oldest deliverable events first.
func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+outboxColumns+`
        FROM outbox_events
        WHERE status = $1 AND retry_count < $2
        ORDER BY created_at ASC
        LIMIT $3
    `, string(outbox.StatusPending), outbox.MaxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox events: %w", err)
	}
	defer rows.Close()

	var out []outbox.OutboxEvent
	for rows.Next() {
		e, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return out, nil
}

func scanOutboxEvent(rows *sql.Rows) (outbox.OutboxEvent, error) {
	var (
		e      outbox.OutboxEvent
		status string
	)
	if err := rows.Scan(
		&e.ID, &e.EventType, &e.AggregateType, &e.AggregateID, &e.Payload,
		&status, &e.RetryCount, &e.Error, &e.CreatedAt, &e.UpdatedAt, &e.ProcessedAt,
	); err != nil {
		return outbox.OutboxEvent{}, fmt.Errorf("scan outbox event: %w", err)
	}
	e.Status = outbox.Status(status)
	return e, nil
}

// MarkProcessing claims a pending event. It reports false when another worker got there first.
func (r *outboxRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE outbox_events
        SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4
    `, string(outbox.StatusProcessing), time.Now(), id, string(outbox.StatusPending))
	if err != nil {
		return false, fmt.Errorf("claim outbox event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim outbox event %s: %w", id, err)
	}
	return n == 1, nil
}

func (r *outboxRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.setStatus(ctx, id, `status = $1, processed_at = $2, updated_at = $2`, string(outbox.StatusCompleted), now)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, id, `status = $1, error = $2, updated_at = $3`, string(outbox.StatusFailed), reason, time.Now())
}

// IncrementRetry releases a claimed event back to PENDING for the next poll.
func (r *outboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, id, `retry_count = retry_count + 1, status = $1, error = $2, updated_at = $3`, string(outbox.StatusPending), reason, time.Now())
}

// ReleaseStale puts events claimed before cutoff back to PENDING. A worker
// that died mid-publish leaves its claims behind.
func (r *outboxRepository) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE outbox_events
        SET status = $1, updated_at = now()
        WHERE status = $2 AND updated_at < $3
    `, string(outbox.StatusPending), string(outbox.StatusProcessing), cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stale outbox claims: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release stale outbox claims: %w", err)
	}
	return n, nil
}

// setStatus applies set to one row. The id is always the last placeholder.
func (r *outboxRepository) setStatus(ctx context.Context, id uuid.UUID, set string, args ...any) error {
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE outbox_events SET %s WHERE id = $%d`, set, len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update outbox event %s: %w", id, err)
	}
	return nil
}
