package repository

import (
	"context"
	"time"

	"instoo/internal/domain/outbox"
	"instoo/internal/domain/schedule"
	"instoo/internal/domain/streamer"
	"instoo/internal/domain/user"

	"github.com/google/uuid"
)

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Schedules() ScheduleRepository
	History() ScheduleHistoryRepository
	Likes() LikeRepository
	Streamers() StreamerRepository
	Follows() FollowRepository
	Users() UserRepository
	Outbox() OutboxRepository

	// WithinTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type ScheduleRepository interface {
	Create(ctx context.Context, s *schedule.Schedule) error
	GetByUUID(ctx context.Context, id uuid.UUID) (schedule.View, error)
	// GetForUpdate reads a live schedule and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (schedule.View, error)
	ExistsForStreamerDate(ctx context.Context, streamerID uuid.UUID, scheduleDate string) (bool, error)
	// Update writes s if the stored version still equals expectedVersion.
	Update(ctx context.Context, s *schedule.Schedule, expectedVersion int) error
	SoftDelete(ctx context.Context, s *schedule.Schedule, expectedVersion int) error
	IncrementLikeCount(ctx context.Context, id uuid.UUID) (int64, error)
	DecrementLikeCount(ctx context.Context, id uuid.UUID) (int64, error)
	// List returns up to q.Limit+1 rows after q.Cursor.
	List(ctx context.Context, q schedule.ListQuery) ([]schedule.View, error)
}

type ScheduleHistoryRepository interface {
	Append(ctx context.Context, h *schedule.History) error
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]schedule.History, error)
	GetByVersion(ctx context.Context, scheduleID uuid.UUID, version int) (schedule.History, error)
}

type LikeRepository interface {
	Create(ctx context.Context, like *schedule.Like) error
	Delete(ctx context.Context, userID, scheduleID uuid.UUID) error
	Exists(ctx context.Context, userID, scheduleID uuid.UUID) (bool, error)
}

type StreamerRepository interface {
	Create(ctx context.Context, s *streamer.Streamer) error
	GetByUUID(ctx context.Context, id uuid.UUID) (streamer.Streamer, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (streamer.Streamer, error)
	// Update writes s if the stored updated_at still equals expected.
	Update(ctx context.Context, s *streamer.Streamer, expected time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID, actor uuid.UUID, at time.Time) error
	ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	ExistsOnPlatform(ctx context.Context, name, platformName string) (bool, error)
	List(ctx context.Context, q streamer.ListQuery) ([]streamer.Streamer, int64, error)
	SearchByName(ctx context.Context, term string, limit int) ([]streamer.Streamer, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool, actor uuid.UUID, at time.Time) error
	IncrementFollowCount(ctx context.Context, id uuid.UUID) (int64, error)
	DecrementFollowCount(ctx context.Context, id uuid.UUID) (int64, error)
}

type FollowRepository interface {
	Create(ctx context.Context, f *streamer.Follow) error
	Delete(ctx context.Context, userID, streamerID uuid.UUID) error
	Get(ctx context.Context, userID, streamerID uuid.UUID) (streamer.Follow, error)
	// SetActive reports false when no follow exists for the pair.
	SetActive(ctx context.Context, userID, streamerID uuid.UUID, active bool, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]streamer.FollowView, error)
	AppendHistory(ctx context.Context, h *streamer.FollowHistory) error
	ListHistoryByUser(ctx context.Context, userID uuid.UUID, limit int) ([]streamer.FollowHistory, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByUUID(ctx context.Context, id uuid.UUID) (user.User, error)
	// NicknameTaken reports whether another active user already has nickname.
	NicknameTaken(ctx context.Context, nickname string, exclude uuid.UUID) (bool, error)
	UpdateNickname(ctx context.Context, id uuid.UUID, nickname string, at time.Time) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *outbox.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
	IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error
	ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
}
