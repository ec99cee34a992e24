package repository

import (
	"context"
	"fmt"
	"strings"

	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

type scheduleRepository struct {
	db DBTX
}

func NewScheduleRepository(db DBTX) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleViewColumns = `
        s.id, s.uuid, s.title, to_char(s.schedule_date, 'YYYY-MM-DD'), s.start_time, s.status,
        s.description, s.external_notice_url, s.streamer_uuid, s.created_by, s.updated_by,
        s.like_count, s.version, s.created_at, s.updated_at, s.deleted_at,
        st.name, COALESCE(st.profile_image_url, ''), st.is_verified,
        cu.nickname, uu.nickname`

const scheduleViewFrom = `
        FROM schedules s
        JOIN streamers st ON st.uuid = s.streamer_uuid
        JOIN users cu ON cu.uuid = s.created_by
        JOIN users uu ON uu.uuid = s.updated_by`

// priorityExpr must stay in line with schedule.Status.Priority.
const priorityExpr = `(CASE s.status WHEN 'BREAK' THEN 0 WHEN 'TIME_TBD' THEN 1 ELSE 2 END)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScheduleView(row rowScanner) (schedule.View, error) {
	var v schedule.View
	err := row.Scan(
		&v.ID,
		&v.UUID,
		&v.Title,
		&v.ScheduleDate,
		&v.StartTime,
		&v.Status,
		&v.Description,
		&v.ExternalNoticeURL,
		&v.StreamerUUID,
		&v.CreatedBy,
		&v.UpdatedBy,
		&v.LikeCount,
		&v.Version,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.DeletedAt,
		&v.Streamer.Name,
		&v.Streamer.ProfileImageURL,
		&v.Streamer.IsVerified,
		&v.CreatedByUser.Nickname,
		&v.UpdatedByUser.Nickname,
	)
	if err != nil {
		return schedule.View{}, err
	}
	v.Streamer.UUID = v.StreamerUUID
	v.CreatedByUser.UUID = v.CreatedBy
	v.UpdatedByUser.UUID = v.UpdatedBy
	return v, nil
}

func (r *scheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO schedules (uuid, title, schedule_date, start_time, status, description, external_notice_url,
                               streamer_uuid, created_by, updated_by, like_count, version, created_at, updated_at)
        VALUES ($1,$2,$3::date,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id
    `,
		s.UUID,
		s.Title,
		s.ScheduleDate,
		s.StartTime,
		string(s.Status),
		s.Description,
		s.ExternalNoticeURL,
		s.StreamerUUID,
		s.CreatedBy,
		s.UpdatedBy,
		s.LikeCount,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	return mapWriteError("create schedule", err)
}

func (r *scheduleRepository) GetByUUID(ctx context.Context, id uuid.UUID) (schedule.View, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+scheduleViewColumns+scheduleViewFrom+`
        WHERE s.uuid = $1 AND s.deleted_at IS NULL`, id)
	v, err := scanScheduleView(row)
	if err != nil {
		return schedule.View{}, mapReadError("get schedule", err)
	}
	return v, nil
}

func (r *scheduleRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (schedule.View, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+scheduleViewColumns+scheduleViewFrom+`
        WHERE s.uuid = $1 AND s.deleted_at IS NULL
        FOR UPDATE OF s`, id)
	v, err := scanScheduleView(row)
	if err != nil {
		return schedule.View{}, mapReadError("lock schedule", err)
	}
	return v, nil
}

func (r *scheduleRepository) ExistsForStreamerDate(ctx context.Context, streamerID uuid.UUID, scheduleDate string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM schedules
            WHERE streamer_uuid = $1 AND schedule_date = $2::date AND deleted_at IS NULL
        )
    `, streamerID, scheduleDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check schedule date: %w", err)
	}
	return exists, nil
}

func (r *scheduleRepository) Update(ctx context.Context, s *schedule.Schedule, expectedVersion int) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE schedules
        SET title = $1, status = $2, start_time = $3, description = $4, external_notice_url = $5,
            updated_by = $6, version = $7, updated_at = $8
        WHERE uuid = $9 AND version = $10 AND deleted_at IS NULL
    `,
		s.Title,
		string(s.Status),
		s.StartTime,
		s.Description,
		s.ExternalNoticeURL,
		s.UpdatedBy,
		s.Version,
		s.UpdatedAt,
		s.UUID,
		expectedVersion,
	)
	if err != nil {
		return mapWriteError("update schedule", err)
	}
	return expectOneRow(res, "update schedule", instoo_errors.ErrConflict)
}

func (r *scheduleRepository) SoftDelete(ctx context.Context, s *schedule.Schedule, expectedVersion int) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE schedules
        SET deleted_at = $1, updated_by = $2, version = $3, updated_at = $4
        WHERE uuid = $5 AND version = $6 AND deleted_at IS NULL
    `,
		s.DeletedAt,
		s.UpdatedBy,
		s.Version,
		s.UpdatedAt,
		s.UUID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectOneRow(res, "delete schedule", instoo_errors.ErrConflict)
}

// Counter changes do not touch version or updated_at: a like is not an edit
// and must not invalidate an editor's concurrency token.
func (r *scheduleRepository) IncrementLikeCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
        UPDATE schedules SET like_count = like_count + 1
        WHERE uuid = $1 AND deleted_at IS NULL
        RETURNING like_count
    `, id).Scan(&count)
	if err != nil {
		return 0, mapReadError("increment like count", err)
	}
	return count, nil
}

func (r *scheduleRepository) DecrementLikeCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
        UPDATE schedules SET like_count = GREATEST(like_count - 1, 0)
        WHERE uuid = $1
        RETURNING like_count
    `, id).Scan(&count)
	if err != nil {
		return 0, mapReadError("decrement like count", err)
	}
	return count, nil
}

func (r *scheduleRepository) List(ctx context.Context, q schedule.ListQuery) ([]schedule.View, error) {
	query, args := buildListQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var views []schedule.View
	for rows.Next() {
		v, err := scanScheduleView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return views, nil
}

// buildListQuery renders the keyset listing. Rows are ordered by
// (schedule_date, priority, start_time NULLS FIRST, id); only the date
// direction follows q.Order.
func buildListQuery(q schedule.ListQuery) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "s.deleted_at IS NULL", "st.is_active = TRUE", "st.deleted_at IS NULL")

	if len(q.StreamerUUIDs) > 0 {
		start := len(args) + 1
		for _, id := range q.StreamerUUIDs {
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("s.streamer_uuid IN (%s)", buildPlaceholders(start, len(q.StreamerUUIDs))))
	}
	if q.DateFrom != "" {
		where = append(where, "s.schedule_date >= "+arg(q.DateFrom)+"::date")
	}
	if q.DateTo != "" {
		where = append(where, "s.schedule_date <= "+arg(q.DateTo)+"::date")
	}
	if q.Title != "" {
		where = append(where, "s.title ILIKE "+arg("%"+escapeLike(q.Title)+"%"))
	}
	if len(q.Statuses) > 0 {
		start := len(args) + 1
		for _, st := range q.Statuses {
			args = append(args, string(st))
		}
		where = append(where, fmt.Sprintf("s.status IN (%s)", buildPlaceholders(start, len(q.Statuses))))
	}
	if q.Cursor != nil {
		where = append(where, cursorPredicate(*q.Cursor, q.Order, arg))
	}

	dateDir := "ASC"
	if q.Order == domain.SortDesc {
		dateDir = "DESC"
	}

	query := `SELECT` + scheduleViewColumns + scheduleViewFrom + `
        WHERE ` + strings.Join(where, " AND ") + `
        ORDER BY s.schedule_date ` + dateDir + `, ` + priorityExpr + ` ASC, s.start_time ASC NULLS FIRST, s.id ASC
        LIMIT ` + arg(q.Limit+1)
	return query, args
}

// cursorPredicate selects rows strictly after c in listing order.
func cursorPredicate(c schedule.Cursor, order domain.SortOrder, arg func(interface{}) string) string {
	dateCmp := ">"
	if order == domain.SortDesc {
		dateCmp = "<"
	}
	d := arg(c.ScheduleDate)
	p := arg(c.Priority)

	var tail string
	if c.StartTime == nil {
		// nulls sort first, so every timed row is after a null cursor
		tail = fmt.Sprintf("(s.start_time IS NOT NULL OR s.id > %s)", arg(c.ID))
	} else {
		t := arg(*c.StartTime)
		tail = fmt.Sprintf("(s.start_time > %s OR (s.start_time = %s AND s.id > %s))", t, t, arg(c.ID))
	}

	return fmt.Sprintf("(s.schedule_date %s %s::date OR (s.schedule_date = %s::date AND (%s > %s OR (%s = %s AND %s))))",
		dateCmp, d, d, priorityExpr, p, priorityExpr, p, tail)
}
