package clock

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for schedule dates.
const DateLayout = "2006-01-02"

// Clock supplies the current instant and the current date in the reference timezone.
// All past-date checks go through Today so that the reference timezone always wins
// over the caller's own offset.
type Clock interface {
	Now() time.Time
	Today() string
	Location() *time.Location
}

// Reference is a Clock bound to one fixed reference timezone.
type Reference struct {
	loc *time.Location
	now func() time.Time
}

func New(timezone string) (*Reference, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load reference timezone %q: %w", timezone, err)
	}
	return &Reference{loc: loc, now: time.Now}, nil
}

// Fixed returns a Reference that always reports t. Used by tests and seeding.
func Fixed(t time.Time, loc *time.Location) *Reference {
	return &Reference{loc: loc, now: func() time.Time { return t }}
}

func (c *Reference) Now() time.Time {
	return c.now().UTC()
}

func (c *Reference) Today() string {
	return DateIn(c.now(), c.loc)
}

func (c *Reference) Location() *time.Location {
	return c.loc
}

// Set moves a Fixed clock. It is not safe for concurrent use with Now.
func (c *Reference) Set(t time.Time) {
	c.now = func() time.Time { return t }
}

// DateIn formats the calendar date of t as seen in loc.
func DateIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}
