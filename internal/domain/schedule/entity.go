package schedule

import (
	"database/sql"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/streamer"
	"instoo/internal/domain/user"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusTimeTBD   Status = "TIME_TBD"
	StatusBreak     Status = "BREAK"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusTimeTBD, StatusBreak:
		return true
	}
	return false
}

// Priority is the within-day display order: breaks first, then undecided, then timed slots.
func (s Status) Priority() int {
	switch s {
	case StatusBreak:
		return 0
	case StatusTimeTBD:
		return 1
	default:
		return 2
	}
}

// Schedule represents the schedules table.
// UpdatedAt doubles as the optimistic concurrency token.
type Schedule struct {
	ID                int64
	UUID              uuid.UUID
	Title             string
	ScheduleDate      string
	StartTime         *time.Time
	Status            Status
	Description       sql.NullString
	ExternalNoticeURL sql.NullString
	StreamerUUID      uuid.UUID
	CreatedBy         uuid.UUID
	UpdatedBy         uuid.UUID
	LikeCount         int64
	Version           int
	domain.AuditFields
}

func (Schedule) TableName() string {
	return "schedules"
}

// View is a schedule together with the reference data it is displayed with.
type View struct {
	Schedule
	Streamer      streamer.Ref
	CreatedByUser user.Ref
	UpdatedByUser user.Ref
}

// Snapshot is a value copy of a schedule's full state, stored in history rows.
type Snapshot struct {
	UUID              uuid.UUID    `json:"uuid"`
	Title             string       `json:"title"`
	ScheduleDate      string       `json:"scheduleDate"`
	StartTime         *time.Time   `json:"startTime"`
	Status            Status       `json:"status"`
	Description       string       `json:"description,omitempty"`
	ExternalNoticeURL string       `json:"externalNoticeUrl,omitempty"`
	Streamer          streamer.Ref `json:"streamer"`
	CreatedBy         user.Ref     `json:"createdBy"`
	UpdatedBy         user.Ref     `json:"updatedBy"`
	LikeCount         int64        `json:"likeCount"`
	Version           int          `json:"version"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	DeletedAt         *time.Time   `json:"deletedAt,omitempty"`
}

func (v View) Snapshot() *Snapshot {
	snap := &Snapshot{
		UUID:              v.UUID,
		Title:             v.Title,
		ScheduleDate:      v.ScheduleDate,
		Status:            v.Status,
		Description:       v.Description.String,
		ExternalNoticeURL: v.ExternalNoticeURL.String,
		Streamer:          v.Streamer,
		CreatedBy:         v.CreatedByUser,
		UpdatedBy:         v.UpdatedByUser,
		LikeCount:         v.LikeCount,
		Version:           v.Version,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
	if v.StartTime != nil {
		st := *v.StartTime
		snap.StartTime = &st
	}
	if v.DeletedAt.Valid {
		deleted := v.DeletedAt.Time
		snap.DeletedAt = &deleted
	}
	return snap
}

// History represents schedule_histories. Rows are append-only.
type History struct {
	ID               int64
	ScheduleUUID     uuid.UUID
	Action           domain.HistoryAction
	PreviousSnapshot *Snapshot
	CurrentSnapshot  *Snapshot
	ModifiedBy       uuid.UUID
	CreatedAt        time.Time
}

func (History) TableName() string {
	return "schedule_histories"
}

// Like represents schedule_likes.
type Like struct {
	UserUUID     uuid.UUID
	ScheduleUUID uuid.UUID
	CreatedAt    time.Time
}

func (Like) TableName() string {
	return "schedule_likes"
}
