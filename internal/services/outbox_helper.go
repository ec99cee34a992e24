package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"instoo/internal/domain/outbox"
	"instoo/internal/repository"

	"github.com/google/uuid"
)

// createOutboxEvent queues an event on repo, which must be bound to the
// transaction of the change it describes.
func createOutboxEvent(ctx context.Context, repo repository.OutboxRepository, aggregateType, eventType string, aggregateID uuid.UUID, payload interface{}, now time.Time) error {
	if repo == nil {
		return nil
	}
	data := []byte("{}")
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		data = raw
	}
	return repo.Create(ctx, &outbox.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID.String(),
		Payload:       data,
		Status:        outbox.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}
