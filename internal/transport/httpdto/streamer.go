package httpdto

import (
	"strings"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/streamer"

	"github.com/google/uuid"
)

type PlatformDTO struct {
	PlatformName string `json:"platformName" binding:"required"`
	ChannelURL   string `json:"channelUrl" binding:"required,url"`
}

// CreateStreamerRequest is used for POST /v1/streamers
type CreateStreamerRequest struct {
	Name            string        `json:"name" binding:"required"`
	ProfileImageURL string        `json:"profileImageUrl" binding:"omitempty,url"`
	Description     string        `json:"description"`
	Platforms       []PlatformDTO `json:"platforms" binding:"omitempty,dive"`
}

func (r CreateStreamerRequest) PlatformList() []streamer.Platform {
	return platformList(r.Platforms)
}

func platformList(in []PlatformDTO) []streamer.Platform {
	out := make([]streamer.Platform, 0, len(in))
	for _, p := range in {
		out = append(out, streamer.Platform{PlatformName: p.PlatformName, ChannelURL: p.ChannelURL})
	}
	return out
}

// UpdateStreamerRequest is used for PATCH /v1/streamers/:uuid. lastUpdatedAt
// is the updatedAt the client last read.
type UpdateStreamerRequest struct {
	Name            *string        `json:"name"`
	ProfileImageURL *string        `json:"profileImageUrl" binding:"omitempty,url"`
	Description     *string        `json:"description"`
	Platforms       *[]PlatformDTO `json:"platforms" binding:"omitempty,dive"`
	LastUpdatedAt   time.Time      `json:"lastUpdatedAt" binding:"required"`
}

func (r UpdateStreamerRequest) Patch() streamer.Patch {
	p := streamer.Patch{Name: r.Name, ProfileImageURL: r.ProfileImageURL, Description: r.Description}
	if r.Platforms != nil {
		platforms := platformList(*r.Platforms)
		p.Platforms = &platforms
	}
	return p
}

// ListStreamersQuery holds query parameters for GET /v1/streamers
type ListStreamersQuery struct {
	Name       string `form:"qName"`
	IsVerified *bool  `form:"isVerified"`
	Platforms  string `form:"platforms"`
	SortBy     string `form:"sortBy" binding:"omitempty,oneof=createdAt updatedAt followCount"`
	SortOrder  string `form:"sortOrder" binding:"omitempty,oneof=ASC DESC asc desc"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Size       int    `form:"size" binding:"omitempty,min=15,max=20"`
}

// ToListQuery converts the bound parameters. platforms is a comma separated list.
func (q ListStreamersQuery) ToListQuery() streamer.ListQuery {
	out := streamer.ListQuery{
		Name:       q.Name,
		IsVerified: q.IsVerified,
		SortBy:     streamer.SortField(q.SortBy),
		Order:      domain.SortOrder(strings.ToUpper(q.SortOrder)),
		Page:       q.Page,
		Size:       q.Size,
	}
	if q.Platforms != "" {
		out.Platforms = strings.Split(q.Platforms, ",")
	}
	return out
}

// VerifyStreamerRequest is used for PATCH /v1/streamers/:uuid/verify
type VerifyStreamerRequest struct {
	IsVerified *bool `json:"isVerified" binding:"required"`
}

type StreamerDTO struct {
	UUID            string              `json:"uuid"`
	Name            string              `json:"name"`
	ProfileImageURL *string             `json:"profileImageUrl"`
	Description     *string             `json:"description"`
	IsVerified      bool                `json:"isVerified"`
	Platforms       []streamer.Platform `json:"platforms"`
	FollowCount     int64               `json:"followCount"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func StreamerFromRecord(s streamer.Streamer) StreamerDTO {
	dto := StreamerDTO{
		UUID:        s.UUID.String(),
		Name:        s.Name,
		IsVerified:  s.IsVerified,
		Platforms:   s.Platforms,
		FollowCount: s.FollowCount,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if dto.Platforms == nil {
		dto.Platforms = []streamer.Platform{}
	}
	if s.ProfileImageURL.Valid {
		dto.ProfileImageURL = &s.ProfileImageURL.String
	}
	if s.Description.Valid {
		dto.Description = &s.Description.String
	}
	return dto
}

func StreamersFromRecords(items []streamer.Streamer) []StreamerDTO {
	out := make([]StreamerDTO, 0, len(items))
	for _, s := range items {
		out = append(out, StreamerFromRecord(s))
	}
	return out
}

type StreamerPageDTO struct {
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	TotalCount int64         `json:"totalCount"`
	Data       []StreamerDTO `json:"data"`
}

func StreamerPageFromPage(p streamer.Page) StreamerPageDTO {
	return StreamerPageDTO{Page: p.Page, Size: p.Size, TotalCount: p.TotalCount, Data: StreamersFromRecords(p.Items)}
}

type FollowResponse struct {
	IsFollowing bool  `json:"isFollowing"`
	IsActive    bool  `json:"isActive"`
	FollowCount int64 `json:"followCount,omitempty"`
}

type FollowItemDTO struct {
	Streamer  streamer.Ref `json:"streamer"`
	IsActive  bool         `json:"isActive"`
	CreatedAt time.Time    `json:"createdAt"`
}

func FollowsFromViews(items []streamer.FollowView) []FollowItemDTO {
	out := make([]FollowItemDTO, 0, len(items))
	for _, f := range items {
		out = append(out, FollowItemDTO{Streamer: f.Streamer, IsActive: f.IsActive, CreatedAt: f.CreatedAt})
	}
	return out
}

type FollowHistoryDTO struct {
	StreamerUUID string              `json:"streamerUuid"`
	Action       domain.FollowAction `json:"action"`
	CreatedAt    time.Time           `json:"createdAt"`
}

func FollowHistoryFromRecords(items []streamer.FollowHistory) []FollowHistoryDTO {
	out := make([]FollowHistoryDTO, 0, len(items))
	for _, h := range items {
		out = append(out, FollowHistoryDTO{StreamerUUID: h.StreamerUUID.String(), Action: h.Action, CreatedAt: h.CreatedAt})
	}
	return out
}

type ToggleItem struct {
	StreamerUUID string `json:"streamerUuid" binding:"required,uuid"`
	IsActive     *bool  `json:"isActive" binding:"required"`
}

// BatchToggleRequest is used for PATCH /v1/me/follows
type BatchToggleRequest struct {
	Items []ToggleItem `json:"items" binding:"required,min=1,max=100,dive"`
}

func (r BatchToggleRequest) Toggles() []streamer.FollowToggle {
	out := make([]streamer.FollowToggle, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, streamer.FollowToggle{StreamerUUID: uuid.MustParse(item.StreamerUUID), IsActive: *item.IsActive})
	}
	return out
}
