package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/streamer"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

type streamerRepository struct {
	db DBTX
}

func NewStreamerRepository(db DBTX) StreamerRepository {
	return &streamerRepository{db: db}
}

const streamerColumns = `uuid, name, profile_image_url, description, is_verified, is_active, platforms,
        follow_count, created_by, updated_by, created_at, updated_at, deleted_at`

func scanStreamer(row rowScanner) (streamer.Streamer, error) {
	var (
		s         streamer.Streamer
		platforms []byte
	)
	err := row.Scan(
		&s.UUID,
		&s.Name,
		&s.ProfileImageURL,
		&s.Description,
		&s.IsVerified,
		&s.IsActive,
		&platforms,
		&s.FollowCount,
		&s.CreatedBy,
		&s.UpdatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.DeletedAt,
	)
	if err != nil {
		return streamer.Streamer{}, err
	}
	if len(platforms) > 0 {
		if err := json.Unmarshal(platforms, &s.Platforms); err != nil {
			return streamer.Streamer{}, fmt.Errorf("decode platforms: %w", err)
		}
	}
	return s, nil
}

func encodePlatforms(platforms []streamer.Platform) ([]byte, error) {
	if platforms == nil {
		platforms = []streamer.Platform{}
	}
	raw, err := json.Marshal(platforms)
	if err != nil {
		return nil, fmt.Errorf("encode platforms: %w", err)
	}
	return raw, nil
}

func (r *streamerRepository) Create(ctx context.Context, s *streamer.Streamer) error {
	raw, err := encodePlatforms(s.Platforms)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO streamers (uuid, name, profile_image_url, description, is_verified, is_active, platforms,
                               follow_count, created_by, updated_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    `,
		s.UUID,
		s.Name,
		s.ProfileImageURL,
		s.Description,
		s.IsVerified,
		s.IsActive,
		raw,
		s.FollowCount,
		s.CreatedBy,
		s.UpdatedBy,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return mapWriteError("create streamer", err)
}

func (r *streamerRepository) GetByUUID(ctx context.Context, id uuid.UUID) (streamer.Streamer, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+streamerColumns+`
        FROM streamers
        WHERE uuid = $1 AND deleted_at IS NULL
    `, id)
	s, err := scanStreamer(row)
	if err != nil {
		return streamer.Streamer{}, mapReadError("get streamer", err)
	}
	return s, nil
}

// GetForUpdate reads a live streamer and locks its row until the transaction ends.
func (r *streamerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (streamer.Streamer, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+streamerColumns+`
        FROM streamers
        WHERE uuid = $1 AND deleted_at IS NULL
        FOR UPDATE
    `, id)
	s, err := scanStreamer(row)
	if err != nil {
		return streamer.Streamer{}, mapReadError("lock streamer", err)
	}
	return s, nil
}

// Update writes the editable columns of s if updated_at still equals expected.
func (r *streamerRepository) Update(ctx context.Context, s *streamer.Streamer, expected time.Time) error {
	raw, err := encodePlatforms(s.Platforms)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE streamers
        SET name = $1, profile_image_url = $2, description = $3, platforms = $4, updated_by = $5, updated_at = $6
        WHERE uuid = $7 AND updated_at = $8 AND deleted_at IS NULL
    `,
		s.Name,
		s.ProfileImageURL,
		s.Description,
		raw,
		s.UpdatedBy,
		s.UpdatedAt,
		s.UUID,
		expected,
	)
	if err != nil {
		return mapWriteError("update streamer", err)
	}
	return expectOneRow(res, "update streamer", instoo_errors.ErrConflict)
}

// SoftDelete deactivates the streamer and stamps deleted_at.
func (r *streamerRepository) SoftDelete(ctx context.Context, id uuid.UUID, actor uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE streamers
        SET is_active = FALSE, deleted_at = $1, updated_by = $2, updated_at = $1
        WHERE uuid = $3 AND deleted_at IS NULL
    `, at, actor, id)
	if err != nil {
		return fmt.Errorf("delete streamer: %w", err)
	}
	return expectOneRow(res, "delete streamer", instoo_errors.ErrNotFound)
}

// ExistsByName reports whether another live streamer already uses name.
func (r *streamerRepository) ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM streamers
            WHERE name = $1 AND uuid <> $2 AND is_active = TRUE AND deleted_at IS NULL
        )
    `, name, exclude).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check streamer name: %w", err)
	}
	return exists, nil
}

// ExistsOnPlatform reports whether a live streamer with name already lists platformName.
func (r *streamerRepository) ExistsOnPlatform(ctx context.Context, name, platformName string) (bool, error) {
	contains, err := json.Marshal([]map[string]string{{"platformName": platformName}})
	if err != nil {
		return false, fmt.Errorf("encode platform filter: %w", err)
	}
	var exists bool
	err = r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM streamers
            WHERE name = $1 AND platforms @> $2::jsonb AND is_active = TRUE AND deleted_at IS NULL
        )
    `, name, string(contains)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check streamer platform: %w", err)
	}
	return exists, nil
}

// List returns one offset page of live streamers and the total match count.
func (r *streamerRepository) List(ctx context.Context, q streamer.ListQuery) ([]streamer.Streamer, int64, error) {
	where, args := streamerListFilter(q)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM streamers WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count streamers: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT `+streamerColumns+`
        FROM streamers
        WHERE %s
        ORDER BY %s
        LIMIT $%d OFFSET $%d`, where, streamerOrder(q), len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, q.Size, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list streamers: %w", err)
	}
	defer rows.Close()

	var items []streamer.Streamer
	for rows.Next() {
		s, err := scanStreamer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan streamer: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list streamers: %w", err)
	}
	return items, total, nil
}

func streamerListFilter(q streamer.ListQuery) (string, []interface{}) {
	where := []string{"is_active = TRUE", "deleted_at IS NULL"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Name != "" {
		where = append(where, "name ILIKE "+arg("%"+escapeLike(q.Name)+"%"))
	}
	if q.IsVerified != nil {
		where = append(where, "is_verified = "+arg(*q.IsVerified))
	}
	if len(q.Platforms) > 0 {
		start := len(args) + 1
		for _, p := range q.Platforms {
			args = append(args, p)
		}
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(platforms) p WHERE p->>'platformName' IN (%s))",
			buildPlaceholders(start, len(q.Platforms))))
	}
	return strings.Join(where, " AND "), args
}

// streamerOrder breaks ties on uuid so pages stay stable.
func streamerOrder(q streamer.ListQuery) string {
	column := map[streamer.SortField]string{
		streamer.SortByCreatedAt:   "created_at",
		streamer.SortByUpdatedAt:   "updated_at",
		streamer.SortByFollowCount: "follow_count",
	}[q.SortBy]
	if column == "" {
		column = "created_at"
	}
	dir := "DESC"
	if q.Order == domain.SortAsc {
		dir = "ASC"
	}
	return column + " " + dir + ", uuid " + dir
}

func (r *streamerRepository) SearchByName(ctx context.Context, term string, limit int) ([]streamer.Streamer, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+streamerColumns+`
        FROM streamers
        WHERE name ILIKE $1 AND is_active = TRUE AND deleted_at IS NULL
        ORDER BY is_verified DESC, follow_count DESC, name ASC
        LIMIT $2
    `, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search streamers: %w", err)
	}
	defer rows.Close()

	var items []streamer.Streamer
	for rows.Next() {
		s, err := scanStreamer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *streamerRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool, actor uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE streamers
        SET is_verified = $1, updated_by = $2, updated_at = $3
        WHERE uuid = $4 AND deleted_at IS NULL
    `, verified, actor, at, id)
	if err != nil {
		return fmt.Errorf("verify streamer: %w", err)
	}
	return expectOneRow(res, "verify streamer", instoo_errors.ErrNotFound)
}

func (r *streamerRepository) IncrementFollowCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
        UPDATE streamers SET follow_count = follow_count + 1
        WHERE uuid = $1
        RETURNING follow_count
    `, id).Scan(&count)
	if err != nil {
		return 0, mapReadError("increment follow count", err)
	}
	return count, nil
}

func (r *streamerRepository) DecrementFollowCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
        UPDATE streamers SET follow_count = GREATEST(follow_count - 1, 0)
        WHERE uuid = $1
        RETURNING follow_count
    `, id).Scan(&count)
	if err != nil {
		return 0, mapReadError("decrement follow count", err)
	}
	return count, nil
}
