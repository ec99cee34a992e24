package proxy

import (
	"context"

	"instoo/internal/commands"
	"instoo/internal/domain"
	instoo_errors "instoo/pkg/errors"
)

// AccessControl enforces role checks. Ownership of likes and follows is
// implied by keying them on the actor, so only elevated commands are listed.
type AccessControl struct {
	adminOnly map[string]bool
}

func NewAccessControl() *AccessControl {
	return &AccessControl{adminOnly: map[string]bool{
		commands.TypeDeleteSchedule: true,
		commands.TypeDeleteStreamer: true,
		commands.TypeVerifyStreamer: true,
	}}
}

func (a *AccessControl) Authorize(_ context.Context, actor domain.Actor, cmd commands.Command) error {
	if a.adminOnly[cmd.CommandType()] && !actor.IsAdmin() {
		return instoo_errors.Forbidden(instoo_errors.CodeAdminOnly, "this action requires an administrator")
	}
	return nil
}

// CanEditSchedule rejects non-admin edits of schedules dated before today.
func (a *AccessControl) CanEditSchedule(actor domain.Actor, scheduleDate, today string) error {
	if scheduleDate < today && !actor.IsAdmin() {
		return instoo_errors.Forbidden(instoo_errors.CodePastScheduleAdminOnly, "only administrators can edit past schedules")
	}
	return nil
}
