package repository_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridewell/step-engine/internal/adapters/repository"
)

func TestBoltStepStore(t *testing.T) {
	t.Run("Success: Fresh store starts empty", func(t *testing.T) {
		store, err := repository.NewBoltStepStore(filepath.Join(t.TempDir(), "steps.db"))
		require.NoError(t, err)
		defer store.Close()

		snapshot, err := store.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, 0, snapshot.CurrentSteps)
		assert.Empty(t, snapshot.DailySteps)
	})

	t.Run("Success: SaveDaily round trips", func(t *testing.T) {
		store, err := repository.NewBoltStepStore(filepath.Join(t.TempDir(), "steps.db"))
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.SaveDaily("2026-03-09", 42, 1042))
		require.NoError(t, store.SaveDaily("2026-03-10", 7, 1049))
		require.NoError(t, store.SaveDaily("2026-03-10", 8, 1050))

		snapshot, err := store.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, 1050, snapshot.CurrentSteps)
		assert.Equal(t, 42, snapshot.DailySteps["2026-03-09"])
		assert.Equal(t, 8, snapshot.DailySteps["2026-03-10"])
	})

	t.Run("Success: Counters survive reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "steps.db")

		store, err := repository.NewBoltStepStore(path)
		require.NoError(t, err)
		require.NoError(t, store.SaveDaily("2026-03-09", 42, 42))
		require.NoError(t, store.Close())

		reopened, err := repository.NewBoltStepStore(path)
		require.NoError(t, err)
		defer reopened.Close()

		snapshot, err := reopened.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, 42, snapshot.CurrentSteps, "a restart MUST NOT lose steps")
		assert.Equal(t, 42, snapshot.DailySteps["2026-03-09"])
	})

	t.Run("Success: Reset clears everything durably", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "steps.db")

		store, err := repository.NewBoltStepStore(path)
		require.NoError(t, err)
		require.NoError(t, store.SaveDaily("2026-03-09", 42, 42))

		require.NoError(t, store.Reset())
		require.NoError(t, store.Close())

		reopened, err := repository.NewBoltStepStore(path)
		require.NoError(t, err)
		defer reopened.Close()

		snapshot, err := reopened.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, 0, snapshot.CurrentSteps)
		assert.Empty(t, snapshot.DailySteps)
	})
}
