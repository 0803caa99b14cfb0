package alertstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-truesight/pkg/debounce"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestInsertAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	alerts := []debounce.Alert{
		{ID: "a1", Room: "exam-1", Condition: debounce.Human, Time: base},
		{ID: "a2", Room: "exam-1", Condition: debounce.Device, Time: base.Add(500 * time.Millisecond)},
		{ID: "a3", Room: "exam-2", Condition: debounce.Device, Time: base.Add(time.Second)},
		{ID: "a4", Room: "exam-1", Condition: debounce.Device, Time: base.Add(2 * time.Second)},
	}
	for _, a := range alerts {
		require.NoError(t, s.Insert(ctx, a))
	}

	got, err := s.ListByRoom(ctx, "exam-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a4", "a2", "a1"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[1].Time.Equal(base.Add(500*time.Millisecond)))

	limited, err := s.ListByRoom(ctx, "exam-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListByRoom(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	counts, err := s.CountByCondition(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[debounce.Condition]int{debounce.Human: 1, debounce.Device: 3}, counts)
}

func TestInsertDuplicateFails(t *testing.T) {
	s := openTemp(t)
	a := debounce.Alert{ID: "dup", Room: "r", Condition: debounce.Human, Time: time.Now()}
	require.NoError(t, s.Insert(context.Background(), a))
	assert.Error(t, s.Insert(context.Background(), a))
}

func TestPublishSwallowsErrors(t *testing.T) {
	s := openTemp(t)
	a := debounce.Alert{ID: "p1", Room: "r", Condition: debounce.Device, Time: time.Now()}
	s.Publish(a)
	s.Publish(a)

	got, err := s.ListByRoom(context.Background(), "r", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTemp(t)
	assert.NoError(t, s.Migrate())
}
