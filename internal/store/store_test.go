package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-gateway/internal/config"
)

// stores returns one of each implementation, closed at test end.
func stores(t *testing.T, ttl time.Duration) map[string]Store {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "exchanges.db"), ttl)
	require.NoError(t, err)
	mem := NewMemoryStore(ttl)
	t.Cleanup(func() {
		sq.Close()
		mem.Close()
	})
	return map[string]Store{"memory": mem, "sqlite": sq}
}

func TestStore_RecordAndRecent(t *testing.T) {
	for name, st := range stores(t, time.Hour) {
		t.Run(name, func(t *testing.T) {
			base := time.Now()
			require.NoError(t, st.Record(&Exchange{RequestID: "a", Provider: "openai", Success: true, LatencyMs: 5, CreatedAt: base.Add(-3 * time.Second)}))
			require.NoError(t, st.Record(&Exchange{RequestID: "b", Provider: "azure", ErrorKind: "timeout", Retryable: true, CreatedAt: base.Add(-2 * time.Second)}))
			require.NoError(t, st.Record(&Exchange{RequestID: "c", Provider: "google", StatusCode: 429, ErrorKind: "rate_limit", Retryable: true, CreatedAt: base.Add(-time.Second)}))

			all, err := st.Recent(0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "c", all[0].RequestID)
			assert.Equal(t, "a", all[2].RequestID)
			assert.True(t, all[2].Success)
			assert.Equal(t, 429, all[0].StatusCode)
			assert.True(t, all[1].Retryable)

			two, err := st.Recent(2)
			require.NoError(t, err)
			require.Len(t, two, 2)
			assert.Equal(t, "b", two[1].RequestID)
		})
	}
}

func TestStore_TTL(t *testing.T) {
	for name, st := range stores(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.Record(&Exchange{RequestID: "old", Provider: "openai", CreatedAt: time.Now().Add(-2 * time.Minute)}))
			require.NoError(t, st.Record(&Exchange{RequestID: "new", Provider: "openai"}))

			rows, err := st.Recent(10)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "new", rows[0].RequestID)

			removed, err := st.Prune()
			require.NoError(t, err)
			assert.Equal(t, 1, removed)
		})
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchanges.db")

	st, err := NewSQLiteStore(path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, st.Record(&Exchange{RequestID: "persisted", Provider: "anthropic", Model: "claude-3-haiku-20240307"}))
	require.NoError(t, st.Close())

	st, err = NewSQLiteStore(path, time.Hour)
	require.NoError(t, err)
	defer st.Close()

	rows, err := st.Recent(1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "claude-3-haiku-20240307", rows[0].Model)
}

func TestMemoryStore_ClosedIgnoresWrites(t *testing.T) {
	st := NewMemoryStore(time.Hour)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	assert.NoError(t, st.Record(&Exchange{RequestID: "x"}))
	rows, err := st.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNew(t *testing.T) {
	st, err := New(config.StoreConfig{Type: "memory"})
	require.NoError(t, err)
	st.Close()

	st, err = New(config.StoreConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	st.Close()

	_, err = New(config.StoreConfig{Type: "redis"})
	assert.Error(t, err)
}
