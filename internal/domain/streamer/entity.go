package streamer

import (
	"database/sql"
	"time"

	"instoo/internal/domain"

	"github.com/google/uuid"
)

// Streamer represents the streamers table.
type Streamer struct {
	UUID            uuid.UUID
	Name            string
	ProfileImageURL sql.NullString
	Description     sql.NullString
	IsVerified      bool
	IsActive        bool
	Platforms       []Platform
	FollowCount     int64
	CreatedBy       uuid.UUID
	UpdatedBy       uuid.UUID
	domain.AuditFields
}

type Platform struct {
	PlatformName string `json:"platformName"`
	ChannelURL   string `json:"channelUrl"`
}

// Ref is the denormalized streamer summary copied into schedule views and snapshots.
type Ref struct {
	UUID            uuid.UUID `json:"uuid"`
	Name            string    `json:"name"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	IsVerified      bool      `json:"isVerified"`
}

func (s Streamer) Ref() Ref {
	return Ref{
		UUID:            s.UUID,
		Name:            s.Name,
		ProfileImageURL: s.ProfileImageURL.String,
		IsVerified:      s.IsVerified,
	}
}

// Follow represents streamer_follows. A muted follow keeps its row with IsActive=false.
type Follow struct {
	UserUUID     uuid.UUID
	StreamerUUID uuid.UUID
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FollowView is a follow joined with the followed streamer's summary.
type FollowView struct {
	Follow
	Streamer Ref
}

// FollowHistory represents streamer_follow_histories.
type FollowHistory struct {
	ID           int64
	UserUUID     uuid.UUID
	StreamerUUID uuid.UUID
	Action       domain.FollowAction
	CreatedAt    time.Time
}

// FollowToggle is one entry of a batch follow activation request.
type FollowToggle struct {
	StreamerUUID uuid.UUID
	IsActive     bool
}

func (Streamer) TableName() string {
	return "streamers"
}

func (Follow) TableName() string {
	return "streamer_follows"
}

func (FollowHistory) TableName() string {
	return "streamer_follow_histories"
}
