package schedule

import (
	"testing"
	"time"

	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func at(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func statusPtr(s Status) *Status { return &s }
func strPtr(s string) *string    { return &s }

func TestValidateDraft(t *testing.T) {
	loc := seoul(t)
	base := func() Draft {
		return Draft{
			StreamerUUID: uuid.New(),
			Title:        "  Morning stream ",
			ScheduleDate: "2025-03-10",
			Status:       StatusScheduled,
			StartTime:    at("2025-03-10T10:00:00Z"),
		}
	}

	tests := []struct {
		name   string
		mutate func(d *Draft)
		today  string
		code   string
	}{
		{name: "valid scheduled", mutate: func(d *Draft) {}, today: "2025-03-09"},
		{name: "today is allowed", mutate: func(d *Draft) {}, today: "2025-03-10"},
		{name: "past date", mutate: func(d *Draft) {}, today: "2025-03-11", code: instoo_errors.CodePastDateNotAllowed},
		{
			name:   "start time on another reference date",
			mutate: func(d *Draft) { d.StartTime = at("2025-03-10T16:00:00Z") },
			today:  "2025-03-09",
			code:   instoo_errors.CodeDateTimeMismatch,
		},
		{
			name:   "scheduled without time",
			mutate: func(d *Draft) { d.StartTime = nil },
			today:  "2025-03-09",
			code:   instoo_errors.CodeScheduledNeedsTime,
		},
		{
			name:   "break with time",
			mutate: func(d *Draft) { d.Status = StatusBreak },
			today:  "2025-03-09",
			code:   instoo_errors.CodeTimeOnlyForScheduled,
		},
		{
			name:   "blank title",
			mutate: func(d *Draft) { d.Title = "   " },
			today:  "2025-03-09",
			code:   instoo_errors.CodeInvalidInput,
		},
		{
			name:   "bad notice url",
			mutate: func(d *Draft) { d.ExternalNoticeURL = "ftp://example.com/x" },
			today:  "2025-03-09",
			code:   instoo_errors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(&d)
			err := ValidateDraft(&d, tt.today, loc)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, "Morning stream", d.Title)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, instoo_errors.ErrInvalidInput)
			assert.Equal(t, tt.code, instoo_errors.As(err).Code)
		})
	}
}

func TestApply(t *testing.T) {
	loc := seoul(t)
	scheduled := Schedule{
		Title:        "Morning stream",
		ScheduleDate: "2025-03-10",
		Status:       StatusScheduled,
		StartTime:    at("2025-03-10T10:00:00Z"),
		Version:      1,
	}
	undecided := scheduled
	undecided.Status = StatusTimeTBD
	undecided.StartTime = nil

	t.Run("moving away from scheduled clears start time", func(t *testing.T) {
		next, err := Apply(scheduled, Patch{Status: statusPtr(StatusBreak)}, loc)
		require.NoError(t, err)
		assert.Equal(t, StatusBreak, next.Status)
		assert.Nil(t, next.StartTime)
		assert.NotNil(t, scheduled.StartTime)
	})

	t.Run("status only to scheduled without time", func(t *testing.T) {
		_, err := Apply(undecided, Patch{Status: statusPtr(StatusScheduled)}, loc)
		assert.ErrorIs(t, err, &instoo_errors.Error{Kind: instoo_errors.KindValidation, Code: instoo_errors.CodeScheduledNeedsTime})
	})

	t.Run("status and time together", func(t *testing.T) {
		next, err := Apply(undecided, Patch{Status: statusPtr(StatusScheduled), StartTime: at("2025-03-10T01:00:00Z")}, loc)
		require.NoError(t, err)
		assert.True(t, next.StartTime.Equal(*at("2025-03-10T01:00:00Z")))
	})

	t.Run("time only while not scheduled", func(t *testing.T) {
		_, err := Apply(undecided, Patch{StartTime: at("2025-03-10T01:00:00Z")}, loc)
		assert.ErrorIs(t, err, &instoo_errors.Error{Kind: instoo_errors.KindValidation, Code: instoo_errors.CodeTimeOnlyForScheduled})
	})

	t.Run("time only on scheduled must match date", func(t *testing.T) {
		_, err := Apply(scheduled, Patch{StartTime: at("2025-03-10T18:00:00Z")}, loc)
		assert.ErrorIs(t, err, &instoo_errors.Error{Kind: instoo_errors.KindValidation, Code: instoo_errors.CodeDateTimeMismatch})
	})

	t.Run("clearing description stores null", func(t *testing.T) {
		withDesc := scheduled
		withDesc.Description = NullString("old")
		next, err := Apply(withDesc, Patch{Description: strPtr("  ")}, loc)
		require.NoError(t, err)
		assert.False(t, next.Description.Valid)
	})
}

func TestTouchAlwaysAdvancesToken(t *testing.T) {
	prev := time.Date(2025, 3, 10, 0, 0, 0, 123456789, time.UTC)
	s := Schedule{Version: 3}

	// A clock that has not moved (or went backwards) still yields a later token.
	s.Touch(uuid.New(), prev, prev.Add(-time.Second))

	assert.Equal(t, 4, s.Version)
	assert.True(t, s.UpdatedAt.After(prev))
	assert.Equal(t, 0, s.UpdatedAt.Nanosecond()%1000)
}
