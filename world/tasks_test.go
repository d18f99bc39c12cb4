package world

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/sowilo/models"
	"github.com/stretchr/testify/require"
)

func newTestTasks(t *testing.T) (*Store, *Tasks) {
	store := NewStore(testConfig())
	store.LoadChunk(0, 0)
	store.LoadChunk(1, 0)

	tasks, err := NewTasks(store, DefaultCloneCacheSize, DefaultCloneMaxAge)
	require.NoError(t, err)
	return store, tasks
}

func TestTasks(t *testing.T) {
	t.Run("empty sections have no task", func(t *testing.T) {
		_, tasks := newTestTasks(t)
		require.Nil(t, tasks.CreateRebuildTask(models.NewSectionPos(0, 4, 0), 1))
		require.Nil(t, tasks.CreateRebuildTask(models.NewSectionPos(7, 0, 7), 1))
	})

	t.Run("tasks build their section", func(t *testing.T) {
		_, tasks := newTestTasks(t)
		pos := models.NewSectionPos(0, 0, 0)

		task := tasks.CreateRebuildTask(pos, 7)
		require.NotNil(t, task)
		require.Equal(t, pos, task.Pos())

		output, err := task.Execute(context.Background(), nil)
		require.NoError(t, err)
		require.Equal(t, pos, output.Pos)
		require.Equal(t, int32(7), output.BuildTime)
		require.NotEmpty(t, output.Mesh)
	})

	t.Run("snapshots include the neighbour borders", func(t *testing.T) {
		store, tasks := newTestTasks(t)
		_, err := store.SetBlock(16, 70, 3, Glass)
		require.NoError(t, err)
		_, err = store.SetBlock(15, 70, 3, Stone)
		require.NoError(t, err)

		task := tasks.CreateRebuildTask(models.NewSectionPos(0, 4, 0), 1).(*meshTask)
		require.Equal(t, Glass, task.snapshot.Block(16, 6, 3))
		require.Equal(t, Stone, task.snapshot.Block(15, 6, 3))
		require.Equal(t, Air, task.snapshot.Block(-1, 6, 3))
	})

	t.Run("edits are seen once invalidated", func(t *testing.T) {
		store, tasks := newTestTasks(t)
		pos, err := store.SetBlock(3, 70, 3, Stone)
		require.NoError(t, err)

		task := tasks.CreateRebuildTask(pos, 1).(*meshTask)
		require.Equal(t, Stone, task.snapshot.Block(3, 6, 3))

		_, err = store.SetBlock(4, 70, 3, Stone)
		require.NoError(t, err)
		task = tasks.CreateRebuildTask(pos, 2).(*meshTask)
		require.Equal(t, Air, task.snapshot.Block(4, 6, 3))

		tasks.Invalidate(pos)
		task = tasks.CreateRebuildTask(pos, 3).(*meshTask)
		require.Equal(t, Stone, task.snapshot.Block(4, 6, 3))
	})

	t.Run("loaded chunks are seen once invalidated", func(t *testing.T) {
		store, tasks := newTestTasks(t)
		pos := models.NewSectionPos(1, 0, 0)

		tasks.CreateRebuildTask(pos, 1)
		store.LoadChunk(2, 0)
		require.Equal(t, Air, tasks.CreateRebuildTask(pos, 2).(*meshTask).snapshot.Block(16, 0, 0))

		tasks.InvalidateChunk(2, 0)
		require.Equal(t, Stone, tasks.CreateRebuildTask(pos, 3).(*meshTask).snapshot.Block(16, 0, 0))
	})

	t.Run("cleanup drops old copies", func(t *testing.T) {
		_, tasks := newTestTasks(t)
		now := time.Unix(1000, 0)
		tasks.now = func() time.Time { return now }

		tasks.CreateRebuildTask(models.NewSectionPos(0, 0, 0), 1)
		require.Equal(t, 27, tasks.CachedSections())

		now = now.Add(DefaultCloneMaxAge)
		tasks.Cleanup()
		require.Equal(t, 27, tasks.CachedSections())

		now = now.Add(time.Millisecond)
		tasks.Cleanup()
		require.Zero(t, tasks.CachedSections())
	})
}
