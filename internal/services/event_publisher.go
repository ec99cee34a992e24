package services

import (
	"context"
	"time"

	"instoo/internal/domain/schedule"
	"instoo/internal/domain/streamer"
	"instoo/internal/events"
	"instoo/internal/repository"

	"github.com/google/uuid"
)

// EventPublisher writes domain events to the outbox table for reliable
// delivery. Every method takes the transaction-bound Store of the change.
type EventPublisher struct {
	enabled bool
}

// NewEventPublisher returns a publisher; a disabled one writes nothing.
func NewEventPublisher(enabled bool) *EventPublisher {
	return &EventPublisher{enabled: enabled}
}

func (p *EventPublisher) ScheduleChanged(ctx context.Context, tx repository.Store, eventType string, s schedule.Schedule, actor uuid.UUID, now time.Time) error {
	if p == nil || !p.enabled {
		return nil
	}
	return createOutboxEvent(ctx, tx.Outbox(), events.AggregateTypeSchedule, eventType, s.UUID, events.ScheduleChanged{
		ScheduleUUID: s.UUID,
		StreamerUUID: s.StreamerUUID,
		ScheduleDate: s.ScheduleDate,
		Status:       string(s.Status),
		Version:      s.Version,
		ActorUUID:    actor,
	}, now)
}

func (p *EventPublisher) LikeChanged(ctx context.Context, tx repository.Store, eventType string, scheduleID, userID uuid.UUID, likeCount int64, now time.Time) error {
	if p == nil || !p.enabled {
		return nil
	}
	return createOutboxEvent(ctx, tx.Outbox(), events.AggregateTypeSchedule, eventType, scheduleID, events.ScheduleLikeChanged{
		ScheduleUUID: scheduleID,
		UserUUID:     userID,
		LikeCount:    likeCount,
	}, now)
}

func (p *EventPublisher) StreamerChanged(ctx context.Context, tx repository.Store, eventType string, s streamer.Streamer, actor uuid.UUID, now time.Time) error {
	if p == nil || !p.enabled {
		return nil
	}
	return createOutboxEvent(ctx, tx.Outbox(), events.AggregateTypeStreamer, eventType, s.UUID, events.StreamerChanged{
		StreamerUUID: s.UUID,
		Name:         s.Name,
		IsVerified:   s.IsVerified,
		ActorUUID:    actor,
	}, now)
}

func (p *EventPublisher) FollowChanged(ctx context.Context, tx repository.Store, eventType string, streamerID, userID uuid.UUID, followCount int64, now time.Time) error {
	if p == nil || !p.enabled {
		return nil
	}
	return createOutboxEvent(ctx, tx.Outbox(), events.AggregateTypeStreamer, eventType, streamerID, events.FollowChanged{
		StreamerUUID: streamerID,
		UserUUID:     userID,
		FollowCount:  followCount,
	}, now)
}
