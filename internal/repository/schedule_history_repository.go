package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"instoo/internal/domain/schedule"

	"github.com/google/uuid"
)

type scheduleHistoryRepository struct {
	db DBTX
}

func NewScheduleHistoryRepository(db DBTX) ScheduleHistoryRepository {
	return &scheduleHistoryRepository{db: db}
}

func marshalSnapshot(s *schedule.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalSnapshot(raw []byte) (*schedule.Snapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s schedule.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleHistoryRepository) Append(ctx context.Context, h *schedule.History) error {
	prev, err := marshalSnapshot(h.PreviousSnapshot)
	if err != nil {
		return fmt.Errorf("encode previous snapshot: %w", err)
	}
	curr, err := marshalSnapshot(h.CurrentSnapshot)
	if err != nil {
		return fmt.Errorf("encode current snapshot: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
        INSERT INTO schedule_histories (schedule_uuid, action, previous_snapshot, current_snapshot, modified_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id
    `,
		h.ScheduleUUID,
		string(h.Action),
		prev,
		curr,
		h.ModifiedBy,
		h.CreatedAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("append schedule history: %w", err)
	}
	return nil
}

const historyColumns = `id, schedule_uuid, action, previous_snapshot, current_snapshot, modified_by, created_at`

func scanHistory(row rowScanner) (schedule.History, error) {
	var (
		h          schedule.History
		prev, curr []byte
	)
	if err := row.Scan(&h.ID, &h.ScheduleUUID, &h.Action, &prev, &curr, &h.ModifiedBy, &h.CreatedAt); err != nil {
		return schedule.History{}, err
	}
	var err error
	if h.PreviousSnapshot, err = unmarshalSnapshot(prev); err != nil {
		return schedule.History{}, fmt.Errorf("decode previous snapshot: %w", err)
	}
	if h.CurrentSnapshot, err = unmarshalSnapshot(curr); err != nil {
		return schedule.History{}, fmt.Errorf("decode current snapshot: %w", err)
	}
	return h, nil
}

func (r *scheduleHistoryRepository) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]schedule.History, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+historyColumns+`
        FROM schedule_histories
        WHERE schedule_uuid = $1
        ORDER BY id ASC
    `, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list schedule history: %w", err)
	}
	defer rows.Close()

	var items []schedule.History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByVersion returns the history row that produced the given version.
func (r *scheduleHistoryRepository) GetByVersion(ctx context.Context, scheduleID uuid.UUID, version int) (schedule.History, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+historyColumns+`
        FROM schedule_histories
        WHERE schedule_uuid = $1 AND (current_snapshot->>'version')::int = $2
        ORDER BY id ASC
        LIMIT 1
    `, scheduleID, version)
	h, err := scanHistory(row)
	if err != nil {
		return schedule.History{}, mapReadError("get schedule version", err)
	}
	return h, nil
}
