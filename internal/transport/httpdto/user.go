package httpdto

import (
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/user"
)

type UserInfoDTO struct {
	UUID            string      `json:"uuid"`
	Email           string      `json:"email"`
	Nickname        string      `json:"nickname"`
	ProfileImageURL *string     `json:"profileImageUrl"`
	Role            domain.Role `json:"role"`
	IsActive        bool        `json:"isActive"`
	CreatedAt       time.Time   `json:"createdAt"`
}

func UserFromRecord(u user.User) UserInfoDTO {
	dto := UserInfoDTO{
		UUID:      u.UUID.String(),
		Email:     u.Email,
		Nickname:  u.Nickname,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.ProfileImageURL.Valid {
		dto.ProfileImageURL = &u.ProfileImageURL.String
	}
	return dto
}

// UpdateProfileRequest is used for PATCH /v1/users/me
type UpdateProfileRequest struct {
	Nickname *string `json:"nickname"`
}
