package services

import (
	"context"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

// recordHistory appends the audit row for one lifecycle transition. A failure
// here must abort the surrounding transaction.
func recordHistory(ctx context.Context, tx repository.Store, action domain.HistoryAction, prev, curr *schedule.View, actor uuid.UUID, at time.Time) error {
	h := &schedule.History{
		Action:     action,
		ModifiedBy: actor,
		CreatedAt:  at,
	}
	if prev != nil {
		h.ScheduleUUID = prev.UUID
		h.PreviousSnapshot = prev.Snapshot()
	}
	if curr != nil {
		h.ScheduleUUID = curr.UUID
		h.CurrentSnapshot = curr.Snapshot()
	}
	if err := tx.History().Append(ctx, h); err != nil {
		return instoo_errors.Internal("failed to record schedule history", err)
	}
	return nil
}
