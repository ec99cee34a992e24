package commands

import (
	"time"

	"instoo/internal/domain/schedule"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

const (
	TypeCreateSchedule = "schedule.create"
	TypeUpdateSchedule = "schedule.update"
	TypeDeleteSchedule = "schedule.delete"
	TypeLikeSchedule   = "schedule.like"
	TypeUnlikeSchedule = "schedule.unlike"
)

type CreateScheduleCommand struct {
	Draft schedule.Draft
}

func (CreateScheduleCommand) CommandType() string {
	return TypeCreateSchedule
}

func (c CreateScheduleCommand) Validate() error {
	if c.Draft.StreamerUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamerUuid is required")
	}
	if c.Draft.ScheduleDate == "" {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "scheduleDate is required")
	}
	return nil
}

// UpdateScheduleCommand carries the updatedAt the caller last read.
type UpdateScheduleCommand struct {
	ScheduleUUID      uuid.UUID
	ExpectedUpdatedAt time.Time
	Patch             schedule.Patch
}

func (UpdateScheduleCommand) CommandType() string {
	return TypeUpdateSchedule
}

func (c UpdateScheduleCommand) Validate() error {
	if c.ScheduleUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "schedule uuid is required")
	}
	if c.ExpectedUpdatedAt.IsZero() {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "updatedAt is required")
	}
	p := c.Patch
	if p.Title == nil && p.Status == nil && p.StartTime == nil && p.Description == nil && p.ExternalNoticeURL == nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "nothing to update")
	}
	return nil
}

type DeleteScheduleCommand struct {
	ScheduleUUID uuid.UUID
}

func (DeleteScheduleCommand) CommandType() string {
	return TypeDeleteSchedule
}

func (c DeleteScheduleCommand) Validate() error {
	if c.ScheduleUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "schedule uuid is required")
	}
	return nil
}

// LikeCommand covers both like and unlike; Undo selects unlike.
type LikeCommand struct {
	ScheduleUUID uuid.UUID
	Undo         bool
}

func (c LikeCommand) CommandType() string {
	if c.Undo {
		return TypeUnlikeSchedule
	}
	return TypeLikeSchedule
}

func (c LikeCommand) Validate() error {
	if c.ScheduleUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "schedule uuid is required")
	}
	return nil
}
