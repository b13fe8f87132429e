package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/nexus/internal/ingest"
)

func TestFromResult_Success(t *testing.T) {
	tbl, _, err := ingest.DecodeCSV([]byte("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)

	ctx := ContextWithIPAddress(context.Background(), "10.0.0.1")
	ctx = ContextWithUserAgent(ctx, "test-agent")

	e := FromResult(ctx, "sess-1", ingest.Result{
		Status: ingest.StatusSuccess,
		Kind:   ingest.KindFlatTable,
		Table:  tbl,
		Name:   "a.csv",
		Source: "a.csv",
	})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "sess-1", e.SessionID)
	assert.Equal(t, 2, e.Rows)
	assert.Equal(t, 2, e.Columns)
	assert.Empty(t, e.Error)
	assert.Equal(t, "10.0.0.1", e.IPAddress)
	assert.Equal(t, "test-agent", e.UserAgent)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestFromResult_Failure(t *testing.T) {
	e := FromResult(context.Background(), "", ingest.Result{
		Status: ingest.StatusFailure,
		Kind:   ingest.KindArchive,
		Source: "bad.zip",
		Err:    fmt.Errorf("%w: zip: not a valid zip file", ingest.ErrCorruptArchive),
	})

	assert.Equal(t, ingest.StatusFailure, e.Status)
	assert.Equal(t, 0, e.Rows)
	assert.Contains(t, e.Error, "corrupt archive")
	assert.Equal(t, "ING001", e.ErrorCode)
}

func TestMemoryStore_NewestFirstAndFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	for i, sid := range []string{"a", "b", "a"} {
		status := ingest.StatusSuccess
		if i == 1 {
			status = ingest.StatusFailure
		}
		require.NoError(t, store.Record(ctx, Entry{ID: fmt.Sprint(i), SessionID: sid, Status: status}))
	}

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2", all[0].ID)
	assert.Equal(t, "0", all[2].ID)

	onlyA, err := store.List(ctx, Filter{SessionID: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	failed, err := store.List(ctx, Filter{Status: ingest.StatusFailure})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].SessionID)

	limited, err := store.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryStore_DropsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Entry{ID: fmt.Sprint(i)}))
	}

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "4", all[0].ID)
	assert.Equal(t, "3", all[1].ID)
}

func TestFilterLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, Filter{}.limit())
	assert.Equal(t, 7, Filter{Limit: 7}.limit())
	assert.Equal(t, MaxLimit, Filter{Limit: MaxLimit + 1}.limit())
}

func TestToPgText(t *testing.T) {
	assert.False(t, toPgText("  ").Valid)
	got := toPgText(" x ")
	assert.True(t, got.Valid)
	assert.Equal(t, "x", got.String)
}

var (
	_ Recorder = (*MemoryStore)(nil)
	_ Recorder = (*PostgresStore)(nil)
)
