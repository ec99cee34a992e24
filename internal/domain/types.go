package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type HistoryAction string

const (
	HistoryActionCreate HistoryAction = "CREATE"
	HistoryActionUpdate HistoryAction = "UPDATE"
	HistoryActionDelete HistoryAction = "DELETE"
)

type FollowAction string

const (
	FollowActionFollow   FollowAction = "FOLLOW"
	FollowActionUnfollow FollowAction = "UNFOLLOW"
)

type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// AuditFields is embedded by value in every persisted record.
type AuditFields struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}

func (a AuditFields) IsDeleted() bool {
	return a.DeletedAt.Valid
}

// Actor is the authenticated caller of a mutating operation. It is passed
// explicitly to every service call that needs it.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
