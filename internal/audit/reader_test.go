package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func entriesAt(base time.Time, n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{ID: uuid.New(), Action: "project.update", CreatedAt: base.Add(-time.Duration(i) * time.Second)}
	}
	return out
}

func TestQuery_PageSize(t *testing.T) {
	require.Equal(t, DefaultPageSize, Query{}.pageSize())
	require.Equal(t, DefaultPageSize, Query{Limit: -3}.pageSize())
	require.Equal(t, 10, Query{Limit: 10}.pageSize())
	require.Equal(t, MaxPageSize, Query{Limit: 5000}.pageSize())
}

func TestPaginate_TrimsExtraRowAndSetsCursor(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := entriesAt(base, 4)

	page := paginate(entries, 3)
	require.Len(t, page.Entries, 3)
	require.NotNil(t, page.Next)
	require.Equal(t, entries[2].ID, page.Next.ID)
	require.True(t, entries[2].CreatedAt.Equal(page.Next.Before))
}

func TestPaginate_LastPage(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	page := paginate(entriesAt(base, 3), 3)
	require.Len(t, page.Entries, 3)
	require.Nil(t, page.Next)

	empty := paginate(nil, 3)
	require.NotNil(t, empty.Entries)
	require.Empty(t, empty.Entries)
	require.Nil(t, empty.Next)
}

func TestDecodeMeta(t *testing.T) {
	require.Equal(t, map[string]any{"email": "a@example.com"}, decodeMeta([]byte(`{"email":"a@example.com"}`)))
	require.Equal(t, map[string]any{}, decodeMeta(nil))
	require.Equal(t, map[string]any{}, decodeMeta([]byte(`not json`)))
}
