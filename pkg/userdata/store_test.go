package userdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "userdata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// stores runs fn against both implementations.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("bolt", func(t *testing.T) { fn(t, newTestStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func TestSetGet(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(ScopeTask, "spec_copy", "PPT<S6,S5>"))

		var got string
		require.NoError(t, s.Get(ScopeTask, "spec_copy", &got))
		assert.Equal(t, "PPT<S6,S5>", got)
	})
}

func TestGetStruct(t *testing.T) {
	type entry struct {
		Outcome string `json:"outcome"`
		Count   int    `json:"count"`
	}
	stores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(ScopeHistory, "run-1", entry{Outcome: "task_received", Count: 3}))

		var got entry
		require.NoError(t, s.Get(ScopeHistory, "run-1", &got))
		assert.Equal(t, entry{Outcome: "task_received", Count: 3}, got)
	})
}

func TestGetNotFound(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		var got string
		err := s.Get(ScopeTask, "missing", &got)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInvalidScope(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		var got string
		assert.ErrorContains(t, s.Get("bogus", "k", &got), "scope not found")
		assert.ErrorContains(t, s.Set("bogus", "k", 1), "scope not found")
		assert.ErrorContains(t, s.Delete("bogus", "k"), "scope not found")
		_, err := s.List("bogus")
		assert.ErrorContains(t, err, "scope not found")
	})
}

func TestDelete(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(ScopeSession, "run_id", "abc"))
		require.NoError(t, s.Delete(ScopeSession, "run_id"))

		var got string
		assert.ErrorIs(t, s.Get(ScopeSession, "run_id", &got), ErrNotFound)

		// deleting a missing key is not an error
		assert.NoError(t, s.Delete(ScopeSession, "run_id"))
	})
}

func TestList(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(ScopeTask, "a", "one"))
		require.NoError(t, s.Set(ScopeTask, "b", 2))

		items, err := s.List(ScopeTask)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": "one", "b": float64(2)}, items)

		keys, err := Keys(s, ScopeTask)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keys)
	})
}

func TestListEmpty(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		items, err := s.List(ScopeHistory)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestScopeIsolation(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(ScopeTask, "key", "task"))
		require.NoError(t, s.Set(ScopeSession, "key", "session"))

		var got string
		require.NoError(t, s.Get(ScopeTask, "key", &got))
		assert.Equal(t, "task", got)
		require.NoError(t, s.Get(ScopeSession, "key", &got))
		assert.Equal(t, "session", got)
	})
}

func TestOverwrite(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(ScopeTask, "spec_copy", "first"))
		require.NoError(t, s.Set(ScopeTask, "spec_copy", "second"))

		var got string
		require.NoError(t, s.Get(ScopeTask, "spec_copy", &got))
		assert.Equal(t, "second", got)
	})
}

func TestSetUnmarshalable(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		assert.ErrorContains(t, s.Set(ScopeTask, "fn", func() {}), "marshal")
	})
}

func TestBoltStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ScopeTask, "spec_copy", "BNT<(D,W,3)>"))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	var got string
	require.NoError(t, reopened.Get(ScopeTask, "spec_copy", &got))
	assert.Equal(t, "BNT<(D,W,3)>", got)
}

func TestNewBoltStoreInvalidPath(t *testing.T) {
	_, err := NewBoltStore(filepath.Join(os.DevNull, "impossible", "path.db"))
	assert.Error(t, err)
}
