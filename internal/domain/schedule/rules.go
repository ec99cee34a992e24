package schedule

import (
	"database/sql"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"instoo/internal/clock"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Draft is the input of a schedule create.
type Draft struct {
	StreamerUUID      uuid.UUID
	Title             string
	ScheduleDate      string
	Status            Status
	StartTime         *time.Time
	Description       string
	ExternalNoticeURL string
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title             *string
	Status            *Status
	StartTime         *time.Time
	Description       *string
	ExternalNoticeURL *string
}

// ValidateDraft normalizes d in place and checks every rule that does not need storage.
func ValidateDraft(d *Draft, today string, loc *time.Location) error {
	title, err := normalizeTitle(d.Title)
	if err != nil {
		return err
	}
	d.Title = title

	d.Description = strings.TrimSpace(d.Description)
	if err := checkDescription(d.Description); err != nil {
		return err
	}
	d.ExternalNoticeURL = strings.TrimSpace(d.ExternalNoticeURL)
	if err := checkNoticeURL(d.ExternalNoticeURL); err != nil {
		return err
	}

	if d.StreamerUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamer is required")
	}
	if _, err := clock.ParseDate(d.ScheduleDate); err != nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "scheduleDate must be YYYY-MM-DD")
	}
	if !d.Status.Valid() {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "unknown schedule status")
	}
	if d.ScheduleDate < today {
		return instoo_errors.Validation(instoo_errors.CodePastDateNotAllowed, "schedules cannot be created for a past date")
	}

	start, err := resolveStartTime(d.Status, d.StartTime, d.ScheduleDate, loc)
	if err != nil {
		return err
	}
	d.StartTime = start
	return nil
}

// Apply returns the state that results from applying p to current.
// Status and start time are checked on the resulting state, so a patch that
// only moves status away from SCHEDULED clears the start time.
func Apply(current Schedule, p Patch, loc *time.Location) (Schedule, error) {
	next := current

	if p.Title != nil {
		title, err := normalizeTitle(*p.Title)
		if err != nil {
			return Schedule{}, err
		}
		next.Title = title
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if err := checkDescription(desc); err != nil {
			return Schedule{}, err
		}
		next.Description = NullString(desc)
	}
	if p.ExternalNoticeURL != nil {
		link := strings.TrimSpace(*p.ExternalNoticeURL)
		if err := checkNoticeURL(link); err != nil {
			return Schedule{}, err
		}
		next.ExternalNoticeURL = NullString(link)
	}

	if p.Status != nil {
		if !p.Status.Valid() {
			return Schedule{}, instoo_errors.Validation(instoo_errors.CodeInvalidInput, "unknown schedule status")
		}
		next.Status = *p.Status
	}

	start := current.StartTime
	if p.StartTime != nil {
		if next.Status != StatusScheduled {
			return Schedule{}, instoo_errors.Validation(instoo_errors.CodeTimeOnlyForScheduled, "startTime can only be set on a SCHEDULED schedule")
		}
		start = p.StartTime
	}
	if next.Status != StatusScheduled {
		start = nil
	}

	resolved, err := resolveStartTime(next.Status, start, next.ScheduleDate, loc)
	if err != nil {
		return Schedule{}, err
	}
	next.StartTime = resolved
	return next, nil
}

// Touch stamps s as the version following one last written at prev.
func (s *Schedule) Touch(actor uuid.UUID, prev, now time.Time) {
	s.Version++
	s.UpdatedBy = actor
	s.UpdatedAt = NextUpdatedAt(prev, now)
}

// NextUpdatedAt returns a token strictly after prev at the storage precision
// (microseconds), so two versions never share an updatedAt.
func NextUpdatedAt(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(time.Microsecond)
	if !next.After(prev) {
		next = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return next
}

func resolveStartTime(status Status, start *time.Time, scheduleDate string, loc *time.Location) (*time.Time, error) {
	if status != StatusScheduled {
		if start != nil {
			return nil, instoo_errors.Validation(instoo_errors.CodeTimeOnlyForScheduled, "startTime can only be set on a SCHEDULED schedule")
		}
		return nil, nil
	}
	if start == nil {
		return nil, instoo_errors.Validation(instoo_errors.CodeScheduledNeedsTime, "a SCHEDULED schedule needs a startTime")
	}
	if clock.DateIn(*start, loc) != scheduleDate {
		return nil, instoo_errors.Validation(instoo_errors.CodeDateTimeMismatch, "startTime does not fall on scheduleDate")
	}
	t := start.UTC().Truncate(time.Microsecond)
	return &t, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	if n == 0 || n > MaxTitleLength {
		return "", instoo_errors.Validation(instoo_errors.CodeInvalidInput, "title must be 1 to 200 characters")
	}
	return title, nil
}

func checkDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "description must be at most 1000 characters")
	}
	return nil
}

func checkNoticeURL(link string) error {
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "externalNoticeUrl must be an http(s) URL")
	}
	return nil
}

// NullString maps an empty optional text field to NULL.
func NullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
