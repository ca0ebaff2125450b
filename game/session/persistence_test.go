package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/tile-grid-game/game/config"
	"github.com/wricardo/tile-grid-game/game/engine"
)

type backendFactory func(t *testing.T, configs *config.Manager) SessionPersistence

func newTestConfigManager(t *testing.T) *config.Manager {
	t.Helper()
	dir := t.TempDir()

	manager, err := config.NewManager(dir)
	require.NoError(t, err)

	classic := createTestConfig()
	classic.Name = "Classic"
	require.NoError(t, manager.SaveConfig("classic", classic))
	require.NoError(t, manager.SetDefault("classic"))

	return manager
}

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"file": func(t *testing.T, configs *config.Manager) SessionPersistence {
			p, err := NewFilePersistence(t.TempDir(), configs)
			require.NoError(t, err)
			return p
		},
		"sqlite": func(t *testing.T, configs *config.Manager) SessionPersistence {
			p, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "sessions.db"), configs)
			require.NoError(t, err)
			t.Cleanup(func() { p.Close() })
			return p
		},
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			configs := newTestConfigManager(t)
			store := newBackend(t, configs)
			manager := NewManagerWithPersistence(store)

			sess, err := manager.Create("Round1", configs.GetDefault())
			require.NoError(t, err)
			require.True(t, store.Exists("round1"), "create should auto-save")

			_, err = sess.Engine.Spawn()
			require.NoError(t, err)
			// Fill a cell the spawns may not have touched
			_, _ = sess.Engine.Remove(engine.Position{X: 3, Y: 3})
			require.NoError(t, sess.Engine.Insert(engine.Position{X: 3, Y: 3}, 128))
			require.NoError(t, manager.Save("round1"))

			loaded, err := store.Load("ROUND1")
			require.NoError(t, err)

			assert.Equal(t, "Round1", loaded.ID)
			assert.Equal(t, "Classic", loaded.Config.Name)
			assert.True(t, sess.CreatedAt.Equal(loaded.CreatedAt))
			if diff := cmp.Diff(sess.Engine.GetState(), loaded.Engine.GetState()); diff != "" {
				t.Errorf("restored grid mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(sess.Engine.GetHistory(), loaded.Engine.GetHistory()); diff != "" {
				t.Errorf("restored history mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPersistenceManagerLifecycle(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			configs := newTestConfigManager(t)
			store := newBackend(t, configs)
			manager := NewManagerWithPersistence(store)
			boardConfig := configs.GetDefault()

			ids := []string{"startup1", "startup2", "startup3"}
			for _, id := range ids {
				_, err := manager.Create(id, boardConfig)
				require.NoError(t, err)
			}

			listed, err := store.ListAll()
			require.NoError(t, err)
			assert.ElementsMatch(t, ids, listed)

			t.Run("get loads from persistence", func(t *testing.T) {
				restarted := NewManagerWithPersistence(store)
				sess, err := restarted.Get("STARTUP2")
				require.NoError(t, err)
				assert.Equal(t, "startup2", sess.ID)
				assert.Equal(t, 1, restarted.Count(), "loaded session should be cached")
			})

			t.Run("load persisted sessions on startup", func(t *testing.T) {
				restarted := NewManagerWithPersistence(store)
				require.NoError(t, restarted.LoadPersistedSessions())
				assert.Equal(t, len(ids), restarted.Count())
			})

			t.Run("delete removes from persistence", func(t *testing.T) {
				require.NoError(t, manager.Delete("startup3"))
				assert.False(t, store.Exists("startup3"))
				_, err := manager.Get("startup3")
				assert.ErrorIs(t, err, ErrSessionNotFound)
			})

			t.Run("cleanup keeps persisted copy", func(t *testing.T) {
				sess, err := manager.Get("startup1")
				require.NoError(t, err)
				sess.LastAccessedAt = time.Now().Add(-2 * time.Hour)

				assert.Equal(t, 1, manager.CleanupExpiredSessions(time.Hour))
				assert.True(t, store.Exists("startup1"))

				reloaded, err := manager.Get("startup1")
				require.NoError(t, err)
				assert.Equal(t, "startup1", reloaded.ID)
			})

			t.Run("save all sessions", func(t *testing.T) {
				assert.NoError(t, manager.SaveAllSessions())
			})
		})
	}
}

func TestPersistenceMissingSession(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newBackend(t, newTestConfigManager(t))

			_, err := store.Load("nope")
			assert.ErrorIs(t, err, ErrSessionNotFound)
			assert.ErrorIs(t, store.Delete("nope"), ErrSessionNotFound)
			assert.False(t, store.Exists("nope"))
		})
	}
}

func TestFilePersistenceFileStructure(t *testing.T) {
	dir := t.TempDir()
	configs := newTestConfigManager(t)

	store, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)

	manager := NewManagerWithPersistence(store)
	_, err = manager.Create("struct", configs.GetDefault())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "struct.json"))
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))

	for _, field := range []string{"id", "config_name", "created_at", "last_accessed_at", "board_config", "grid", "history"} {
		assert.Contains(t, data, field)
	}
	assert.Equal(t, "classic", data["config_name"], "config ID should be stored, not the display name")

	grid, ok := data["grid"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 4, grid["size"])
}

func TestFilePersistenceFallsBackToPreset(t *testing.T) {
	dir := t.TempDir()
	configs := newTestConfigManager(t)

	state, err := engine.NewGrid(4)
	require.NoError(t, err)
	require.NoError(t, state.InsertTile(engine.NewTile(engine.Position{X: 1, Y: 1}, 2)))

	record := PersistedSessionData{
		ID:             "legacy",
		ConfigName:     "classic",
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
		Grid:           state.Serialize(),
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), raw, 0644))

	store, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)

	sess, err := store.Load("legacy")
	require.NoError(t, err)
	assert.Equal(t, "Classic", sess.Config.Name)
	assert.True(t, sess.Engine.GetGrid().CellOccupied(engine.Position{X: 1, Y: 1}))
	assert.Empty(t, sess.Engine.GetHistory())
}

func TestSQLitePersistencePruneInactive(t *testing.T) {
	configs := newTestConfigManager(t)
	store, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "prune.db"), configs)
	require.NoError(t, err)
	defer store.Close()

	manager := NewManagerWithPersistence(store)
	stale, err := manager.Create("stale", configs.GetDefault())
	require.NoError(t, err)
	_, err = manager.Create("fresh", configs.GetDefault())
	require.NoError(t, err)

	stale.LastAccessedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Save(stale))

	removed, err := manager.PruneStore(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, store.Exists("stale"))
	assert.True(t, store.Exists("fresh"))
}
