package streamer

import (
	"database/sql"
	"strings"
	"unicode/utf8"

	"instoo/internal/domain"
	instoo_errors "instoo/pkg/errors"
)

const (
	MaxNameLength   = 100
	DefaultPageSize = 15
	MinPageSize     = 15
	MaxPageSize     = 20
	minSearchLength = 2
)

// Patch is a partial streamer update. A non-nil Platforms replaces the whole list.
type Patch struct {
	Name            *string
	ProfileImageURL *string
	Description     *string
	Platforms       *[]Platform
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.ProfileImageURL == nil && p.Description == nil && p.Platforms == nil
}

// Apply returns s with the patch applied. Text fields are trimmed; an empty
// profile image or description clears it.
func Apply(s Streamer, p Patch) (Streamer, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
			return Streamer{}, instoo_errors.Validation(instoo_errors.CodeInvalidInput, "name must be 1 to 100 characters")
		}
		s.Name = name
	}
	if p.ProfileImageURL != nil {
		s.ProfileImageURL = nullString(strings.TrimSpace(*p.ProfileImageURL))
	}
	if p.Description != nil {
		s.Description = nullString(strings.TrimSpace(*p.Description))
	}
	if p.Platforms != nil {
		if err := CheckPlatforms(*p.Platforms); err != nil {
			return Streamer{}, err
		}
		s.Platforms = append([]Platform{}, *p.Platforms...)
	}
	return s, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func CheckPlatforms(platforms []Platform) error {
	for _, p := range platforms {
		if strings.TrimSpace(p.PlatformName) == "" || strings.TrimSpace(p.ChannelURL) == "" {
			return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "platforms need a name and a channel url")
		}
	}
	return nil
}

type SortField string

const (
	SortByCreatedAt   SortField = "createdAt"
	SortByUpdatedAt   SortField = "updatedAt"
	SortByFollowCount SortField = "followCount"
)

// ListQuery is a filtered, offset-paginated streamer listing.
type ListQuery struct {
	Name       string
	IsVerified *bool
	Platforms  []string
	SortBy     SortField
	Order      domain.SortOrder
	Page       int
	Size       int
}

// Normalize fills defaults (createdAt DESC, page 1, size 15) and rejects bad input.
func (q *ListQuery) Normalize() error {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "page must be positive")
	}
	if q.Size == 0 {
		q.Size = DefaultPageSize
	}
	if q.Size < MinPageSize || q.Size > MaxPageSize {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "size must be between 15 and 20")
	}
	switch q.SortBy {
	case "":
		q.SortBy = SortByCreatedAt
	case SortByCreatedAt, SortByUpdatedAt, SortByFollowCount:
	default:
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "sortBy must be createdAt, updatedAt or followCount")
	}
	switch q.Order {
	case "":
		q.Order = domain.SortDesc
	case domain.SortAsc, domain.SortDesc:
	default:
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "sortOrder must be ASC or DESC")
	}
	q.Name = strings.TrimSpace(q.Name)
	if q.Name != "" && utf8.RuneCountInString(q.Name) < minSearchLength {
		return instoo_errors.Validation(instoo_errors.CodeSearchTermTooShort, "search term must be at least 2 characters")
	}
	platforms := q.Platforms[:0]
	for _, p := range q.Platforms {
		if p = strings.TrimSpace(p); p != "" {
			platforms = append(platforms, p)
		}
	}
	q.Platforms = platforms
	return nil
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Size
}

// Page is one page of a streamer listing.
type Page struct {
	Page       int
	Size       int
	TotalCount int64
	Items      []Streamer
}
