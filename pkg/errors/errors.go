package instoo_errors

import (
	"errors"
	"fmt"
)

// Common errors. An *Error matches the sentinel of its kind with errors.Is.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrInternal      = errors.New("internal error")
)

type Kind string

const (
	KindNotFound      Kind = "NOT_FOUND"
	KindAlreadyExists Kind = "ALREADY_EXISTS"
	KindValidation    Kind = "VALIDATION"
	KindConflict      Kind = "CONFLICT"
	KindForbidden     Kind = "FORBIDDEN"
	KindInternal      Kind = "INTERNAL"
)

// Stable codes returned to callers alongside the kind.
const (
	CodeScheduleNotFound      = "SCHEDULE_NOT_FOUND"
	CodeStreamerNotFound      = "STREAMER_NOT_FOUND"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeLikeNotFound          = "LIKE_NOT_FOUND"
	CodeFollowNotFound        = "FOLLOW_NOT_FOUND"
	CodeHistoryNotFound       = "HISTORY_NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeAlreadyLiked          = "ALREADY_LIKED"
	CodeAlreadyFollowing      = "ALREADY_FOLLOWING"
	CodePastDateNotAllowed    = "PAST_DATE_NOT_ALLOWED"
	CodeDateTimeMismatch      = "DATE_TIME_MISMATCH"
	CodeNotVerified           = "NOT_VERIFIED"
	CodeScheduledNeedsTime    = "SCHEDULED_NEEDS_TIME"
	CodeTimeOnlyForScheduled  = "TIME_ONLY_FOR_SCHEDULED"
	CodeSearchTermTooShort    = "SEARCH_TERM_TOO_SHORT"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeConflictModified      = "CONFLICT_MODIFIED"
	CodeAdminOnly             = "ADMIN_ONLY"
	CodePastScheduleAdminOnly = "PAST_SCHEDULE_ADMIN_ONLY"
	CodeChannelForbidden      = "CHANNEL_FORBIDDEN"
	CodeDuplicateStreamer     = "DUPLICATE_STREAMER"
	CodeNicknameTaken         = "NICKNAME_TAKEN"
	CodeNicknameUnchanged     = "NICKNAME_UNCHANGED"
	CodeInternal              = "INTERNAL"
)

// Error is the typed error returned by every service operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
	}
	return target == sentinelFor(e.Kind)
}

func sentinelFor(kind Kind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindAlreadyExists:
		return ErrAlreadyExists
	case KindValidation:
		return ErrInvalidInput
	case KindConflict:
		return ErrConflict
	case KindForbidden:
		return ErrForbidden
	default:
		return ErrInternal
	}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func AlreadyExists(code, message string) *Error {
	return New(KindAlreadyExists, code, message)
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

// Internal wraps an unexpected failure. The cause stays available through errors.Unwrap
// but never reaches the caller's message.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// KindOf reports the kind of err, treating anything untyped as INTERNAL.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	}
	return KindInternal
}

// As returns err as *Error, converting untyped errors to INTERNAL.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unexpected error", err)
}
