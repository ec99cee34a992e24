package user

import (
	"database/sql"

	"instoo/internal/domain"

	"github.com/google/uuid"
)

// User represents the users table. Accounts are provisioned by the identity
// provider; only the nickname is editable here.
type User struct {
	UUID            uuid.UUID
	Email           string
	Nickname        string
	ProfileImageURL sql.NullString
	Provider        string
	ProviderID      sql.NullString
	Role            domain.Role
	IsActive        bool
	domain.AuditFields
}

// Ref is the denormalized actor summary copied into schedule views and snapshots.
type Ref struct {
	UUID     uuid.UUID `json:"uuid"`
	Nickname string    `json:"nickname"`
}

func (u User) Ref() Ref {
	return Ref{UUID: u.UUID, Nickname: u.Nickname}
}

func (User) TableName() string {
	return "users"
}
