package schedule

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"instoo/internal/clock"
	"instoo/internal/domain"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinSearchLength = 2
)

// Cursor is the sort key of the last row a caller has seen.
// Priority rides along with the {date, startTime, id} triple because BREAK
// and TIME_TBD rows share a null startTime on the same date.
type Cursor struct {
	ScheduleDate string     `json:"d"`
	Priority     int        `json:"p"`
	StartTime    *time.Time `json:"t,omitempty"`
	ID           int64      `json:"i"`
}

func KeyOf(s Schedule) Cursor {
	return Cursor{
		ScheduleDate: s.ScheduleDate,
		Priority:     s.Status.Priority(),
		StartTime:    s.StartTime,
		ID:           s.ID,
	}
}

// Compare orders two keys the way listings are returned. Only the date flips
// with DESC; the within-day order is fixed.
func Compare(a, b Cursor, order domain.SortOrder) int {
	if c := strings.Compare(a.ScheduleDate, b.ScheduleDate); c != 0 {
		if order == domain.SortDesc {
			return -c
		}
		return c
	}
	if a.Priority != b.Priority {
		return cmpInt(int64(a.Priority), int64(b.Priority))
	}
	switch {
	case a.StartTime == nil && b.StartTime != nil:
		return -1
	case a.StartTime != nil && b.StartTime == nil:
		return 1
	case a.StartTime != nil && b.StartTime != nil && !a.StartTime.Equal(*b.StartTime):
		if a.StartTime.Before(*b.StartTime) {
			return -1
		}
		return 1
	}
	return cmpInt(a.ID, b.ID)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, instoo_errors.Validation(instoo_errors.CodeInvalidInput, "malformed cursor")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ScheduleDate == "" || c.ID <= 0 {
		return nil, instoo_errors.Validation(instoo_errors.CodeInvalidInput, "malformed cursor")
	}
	return &c, nil
}

// ListQuery is a filtered, keyset-paginated listing request.
type ListQuery struct {
	StreamerUUIDs []uuid.UUID
	DateFrom      string
	DateTo        string
	Title         string
	Statuses      []Status
	Order         domain.SortOrder
	Cursor        *Cursor
	Limit         int
}

// Normalize fills defaults and rejects malformed filters.
func (q *ListQuery) Normalize() error {
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit < 1 || q.Limit > MaxPageSize {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "limit must be between 1 and 100")
	}
	switch q.Order {
	case "":
		q.Order = domain.SortAsc
	case domain.SortAsc, domain.SortDesc:
	default:
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "sortOrder must be ASC or DESC")
	}
	for _, d := range []string{q.DateFrom, q.DateTo} {
		if d == "" {
			continue
		}
		if _, err := clock.ParseDate(d); err != nil {
			return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "dates must be YYYY-MM-DD")
		}
	}
	if q.DateFrom != "" && q.DateTo != "" && q.DateFrom > q.DateTo {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "dateFrom must not be after dateTo")
	}
	q.Title = strings.TrimSpace(q.Title)
	if q.Title != "" && len([]rune(q.Title)) < MinSearchLength {
		return instoo_errors.Validation(instoo_errors.CodeSearchTermTooShort, "search term must be at least 2 characters")
	}
	for _, s := range q.Statuses {
		if !s.Valid() {
			return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "unknown schedule status")
		}
	}
	return nil
}

// Page is one page of a listing.
type Page struct {
	Items   []View
	HasMore bool
	Next    *Cursor
}

// NewPage trims a limit+1 fetch to limit rows and derives the continuation cursor.
func NewPage(rows []View, limit int) Page {
	if len(rows) <= limit {
		return Page{Items: rows}
	}
	rows = rows[:limit]
	next := KeyOf(rows[len(rows)-1].Schedule)
	return Page{Items: rows, HasMore: true, Next: &next}
}
