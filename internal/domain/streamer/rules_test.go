package streamer

import (
	"database/sql"
	"strings"
	"testing"

	"instoo/internal/domain"
	instoo_errors "instoo/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestApply(t *testing.T) {
	base := Streamer{
		Name:        "Hanul",
		Description: sql.NullString{String: "weekday nights", Valid: true},
		Platforms:   []Platform{{PlatformName: "chzzk", ChannelURL: "https://chzzk.naver.com/hanul"}},
	}

	next, err := Apply(base, Patch{Name: strPtr("  Hanul Radio "), Description: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Hanul Radio", next.Name)
	assert.False(t, next.Description.Valid)
	assert.Equal(t, base.Platforms, next.Platforms)
	assert.Equal(t, "Hanul", base.Name)

	cleared := []Platform{}
	next, err = Apply(base, Patch{Platforms: &cleared})
	require.NoError(t, err)
	assert.Empty(t, next.Platforms)

	_, err = Apply(base, Patch{Name: strPtr("   ")})
	assert.Equal(t, instoo_errors.KindValidation, instoo_errors.KindOf(err))

	_, err = Apply(base, Patch{Name: strPtr(strings.Repeat("가", MaxNameLength+1))})
	assert.Error(t, err)

	bad := []Platform{{PlatformName: "soop"}}
	_, err = Apply(base, Patch{Platforms: &bad})
	assert.Error(t, err)

	assert.True(t, Patch{}.Empty())
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Platforms: []string{" soop ", "", "chzzk"}}
	require.NoError(t, q.Normalize())
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.Size)
	assert.Equal(t, SortByCreatedAt, q.SortBy)
	assert.Equal(t, domain.SortDesc, q.Order)
	assert.Equal(t, []string{"soop", "chzzk"}, q.Platforms)
	assert.Equal(t, 0, q.Offset())

	third := ListQuery{Page: 3, Size: 20}
	require.NoError(t, third.Normalize())
	assert.Equal(t, 40, third.Offset())

	for _, bad := range []ListQuery{{Page: -1}, {Size: 21}, {Size: 14}, {SortBy: "name"}, {Order: "UP"}, {Name: " a "}} {
		assert.Error(t, bad.Normalize(), "%+v", bad)
	}
}
