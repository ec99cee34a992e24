package httpdto

import (
	"strings"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/domain/streamer"
	"instoo/internal/domain/user"
	instoo_errors "instoo/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// CreateScheduleRequest is used for POST /v1/schedules
type CreateScheduleRequest struct {
	StreamerUUID      string     `json:"streamerUuid" binding:"required,uuid"`
	Title             string     `json:"title" binding:"required"`
	ScheduleDate      string     `json:"scheduleDate" binding:"required,datetime=2006-01-02"`
	Status            string     `json:"status" binding:"required,oneof=SCHEDULED TIME_TBD BREAK"`
	StartTime         *time.Time `json:"startTime"`
	Description       string     `json:"description"`
	ExternalNoticeURL string     `json:"externalNoticeUrl"`
}

func (r CreateScheduleRequest) Draft() schedule.Draft {
	return schedule.Draft{
		StreamerUUID:      uuid.MustParse(r.StreamerUUID),
		Title:             r.Title,
		ScheduleDate:      r.ScheduleDate,
		Status:            schedule.Status(r.Status),
		StartTime:         r.StartTime,
		Description:       r.Description,
		ExternalNoticeURL: r.ExternalNoticeURL,
	}
}

// UpdateScheduleRequest is used for PATCH /v1/schedules/:uuid. UpdatedAt is
// the token from the caller's last read.
type UpdateScheduleRequest struct {
	UpdatedAt         *time.Time `json:"updatedAt" binding:"required"`
	Title             *string    `json:"title"`
	Status            *string    `json:"status" binding:"omitempty,oneof=SCHEDULED TIME_TBD BREAK"`
	StartTime         *time.Time `json:"startTime"`
	Description       *string    `json:"description"`
	ExternalNoticeURL *string    `json:"externalNoticeUrl"`
}

func (r UpdateScheduleRequest) Patch() schedule.Patch {
	p := schedule.Patch{
		Title:             r.Title,
		StartTime:         r.StartTime,
		Description:       r.Description,
		ExternalNoticeURL: r.ExternalNoticeURL,
	}
	if r.Status != nil {
		st := schedule.Status(*r.Status)
		p.Status = &st
	}
	return p
}

// ListSchedulesQuery holds query parameters for GET /v1/schedules
type ListSchedulesQuery struct {
	StreamerUUIDs []string `form:"streamerUuid"`
	DateFrom      string   `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo        string   `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
	Title         string   `form:"title"`
	Statuses      []string `form:"status" binding:"omitempty,dive,oneof=SCHEDULED TIME_TBD BREAK"`
	SortOrder     string   `form:"sortOrder" binding:"omitempty,oneof=ASC DESC asc desc"`
	Cursor        string   `form:"cursor"`
	Limit         int      `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ToListQuery converts the bound parameters. streamerUuid may repeat or hold
// a comma separated list.
func (q ListSchedulesQuery) ToListQuery() (schedule.ListQuery, error) {
	out := schedule.ListQuery{
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
		Title:    q.Title,
		Order:    domain.SortOrder(strings.ToUpper(q.SortOrder)),
		Limit:    q.Limit,
	}
	for _, raw := range q.StreamerUUIDs {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if err := validate.Var(part, "uuid"); err != nil {
				return schedule.ListQuery{}, instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamerUuid must be a uuid")
			}
			out.StreamerUUIDs = append(out.StreamerUUIDs, uuid.MustParse(part))
		}
	}
	for _, st := range q.Statuses {
		out.Statuses = append(out.Statuses, schedule.Status(st))
	}
	cursor, err := schedule.DecodeCursor(q.Cursor)
	if err != nil {
		return schedule.ListQuery{}, err
	}
	out.Cursor = cursor
	return out, nil
}

type ScheduleDTO struct {
	UUID              string       `json:"uuid"`
	Title             string       `json:"title"`
	ScheduleDate      string       `json:"scheduleDate"`
	StartTime         *time.Time   `json:"startTime"`
	Status            string       `json:"status"`
	Description       *string      `json:"description"`
	ExternalNoticeURL *string      `json:"externalNoticeUrl"`
	Streamer          streamer.Ref `json:"streamer"`
	CreatedBy         user.Ref     `json:"createdBy"`
	UpdatedBy         user.Ref     `json:"updatedBy"`
	LikeCount         int64        `json:"likeCount"`
	Version           int          `json:"version"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

func ScheduleFromView(v schedule.View) ScheduleDTO {
	dto := ScheduleDTO{
		UUID:         v.UUID.String(),
		Title:        v.Title,
		ScheduleDate: v.ScheduleDate,
		StartTime:    v.StartTime,
		Status:       string(v.Status),
		Streamer:     v.Streamer,
		CreatedBy:    v.CreatedByUser,
		UpdatedBy:    v.UpdatedByUser,
		LikeCount:    v.LikeCount,
		Version:      v.Version,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
	if v.Description.Valid {
		dto.Description = &v.Description.String
	}
	if v.ExternalNoticeURL.Valid {
		dto.ExternalNoticeURL = &v.ExternalNoticeURL.String
	}
	return dto
}

type PageDTO struct {
	Next    string `json:"next,omitempty"`
	HasMore bool   `json:"hasMore"`
}

// ScheduleListResponse is returned by GET /v1/schedules
type ScheduleListResponse struct {
	Size int           `json:"size"`
	Page PageDTO       `json:"page"`
	Data []ScheduleDTO `json:"data"`
}

func ScheduleListFromPage(p schedule.Page) ScheduleListResponse {
	resp := ScheduleListResponse{
		Size: len(p.Items),
		Page: PageDTO{HasMore: p.HasMore},
		Data: make([]ScheduleDTO, 0, len(p.Items)),
	}
	if p.Next != nil {
		resp.Page.Next = p.Next.Encode()
	}
	for _, v := range p.Items {
		resp.Data = append(resp.Data, ScheduleFromView(v))
	}
	return resp
}

type HistoryDTO struct {
	ID               int64              `json:"id"`
	ScheduleUUID     string             `json:"scheduleUuid"`
	Action           string             `json:"action"`
	PreviousSnapshot *schedule.Snapshot `json:"previousSnapshot"`
	CurrentSnapshot  *schedule.Snapshot `json:"currentSnapshot"`
	ModifiedBy       string             `json:"modifiedBy"`
	CreatedAt        time.Time          `json:"createdAt"`
}

func HistoryFromRecord(h schedule.History) HistoryDTO {
	return HistoryDTO{
		ID:               h.ID,
		ScheduleUUID:     h.ScheduleUUID.String(),
		Action:           string(h.Action),
		PreviousSnapshot: h.PreviousSnapshot,
		CurrentSnapshot:  h.CurrentSnapshot,
		ModifiedBy:       h.ModifiedBy.String(),
		CreatedAt:        h.CreatedAt,
	}
}

type LikeResponse struct {
	IsLiked   bool  `json:"isLiked"`
	LikeCount int64 `json:"likeCount"`
}
