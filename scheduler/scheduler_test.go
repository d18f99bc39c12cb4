package scheduler

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/models"
	"github.com/stretchr/testify/require"
)

func TestCanPromote(t *testing.T) {
	require.True(t, CanPromote(UpdateNone, InitialBuild))
	require.True(t, CanPromote(UpdateNone, ImportantRebuild))
	require.True(t, CanPromote(Rebuild, ImportantRebuild))
	require.False(t, CanPromote(Rebuild, Rebuild))
	require.False(t, CanPromote(InitialBuild, ImportantRebuild))
	require.False(t, CanPromote(ImportantRebuild, Rebuild))

	require.True(t, ImportantRebuild.Important())
	require.False(t, Rebuild.Important())
}

func TestCancellationToken(t *testing.T) {
	var nilToken *CancellationToken
	require.False(t, nilToken.IsCancelled())

	token := NewCancellationToken()
	require.False(t, token.IsCancelled())
	token.SetCancelled()
	require.True(t, token.IsCancelled())
}

func TestSchedulerMarkForUpdate(t *testing.T) {
	key := models.NewSectionPos(1, 2, 3).Key()

	t.Run("mark moves the section between queues", func(t *testing.T) {
		s := New()

		s.MarkForUpdate(key, InitialBuild, 1)
		require.Equal(t, 1, s.QueueLen(InitialBuild))

		s.MarkForUpdate(key, Rebuild, 2)
		require.Zero(t, s.QueueLen(InitialBuild))
		require.Equal(t, 1, s.QueueLen(Rebuild))
		require.Equal(t, Rebuild, s.PendingType(key))

		s.MarkForUpdate(key, Rebuild, 3)
		require.Equal(t, 1, s.QueueLen(Rebuild))
		require.Equal(t, 1, s.Tracked())
	})

	t.Run("building sections are not queued", func(t *testing.T) {
		s := New()

		s.MarkForUpdate(key, Rebuild, 1)
		require.Equal(t, 1, s.QueueLen(Rebuild))

		token := NewCancellationToken()
		require.NoError(t, s.OnSectionSubmitted(key, token, 2))
		require.Zero(t, s.QueueLen(Rebuild))
		require.True(t, s.IsBuilding(key))
		require.Equal(t, 1, s.InFlight())

		s.MarkForUpdate(key, ImportantRebuild, 3)
		require.Zero(t, s.QueueLen(ImportantRebuild))
		require.Equal(t, ImportantRebuild, s.PendingType(key))
		require.False(t, token.IsCancelled())

		require.NoError(t, s.OnSectionUploaded(key, 4))
		require.Equal(t, 1, s.QueueLen(ImportantRebuild))
		require.False(t, s.IsBuilding(key))
		require.Equal(t, 1, s.Tracked())
	})

	t.Run("a request made while building is queued after upload", func(t *testing.T) {
		s := New()

		s.MarkForUpdate(key, Rebuild, 1)
		require.NoError(t, s.OnSectionSubmitted(key, NewCancellationToken(), 2))
		s.MarkForUpdate(key, Rebuild, 3)

		// The upload carries the frame the build was submitted at.
		require.NoError(t, s.OnSectionUploaded(key, 2))
		require.Equal(t, 1, s.QueueLen(Rebuild))
	})

	t.Run("upload without a new request makes the section idle", func(t *testing.T) {
		s := New()

		s.MarkForUpdate(key, InitialBuild, 1)
		require.NoError(t, s.OnSectionSubmitted(key, NewCancellationToken(), 1))
		require.NoError(t, s.OnSectionUploaded(key, 1))

		require.Zero(t, s.Tracked())
		require.Zero(t, s.QueueLen(InitialBuild))
	})
}

func TestSchedulerLateResults(t *testing.T) {
	key := models.NewSectionPos(0, 0, 0).Key()

	s := New()
	s.MarkForUpdate(key, Rebuild, 4)

	first := NewCancellationToken()
	require.NoError(t, s.OnSectionSubmitted(key, first, 5))
	require.NoError(t, s.OnSectionUploaded(key, 5))

	s.MarkForUpdate(key, Rebuild, 6)
	second := NewCancellationToken()
	require.NoError(t, s.OnSectionSubmitted(key, second, 7))

	// The result of frame 5 arrives after the frame 7 submission.
	require.NoError(t, s.OnSectionUploaded(key, 5))
	require.True(t, s.IsBuilding(key))
	require.Zero(t, s.QueueLen(Rebuild))

	require.NoError(t, s.OnSectionUploaded(key, 7))
	require.Zero(t, s.Tracked())
}

func TestSchedulerLateResultsKeepPendingRebuilds(t *testing.T) {
	key := models.NewSectionPos(0, 1, 0).Key()

	s := New()
	s.MarkForUpdate(key, Rebuild, 1)
	require.NoError(t, s.OnSectionSubmitted(key, NewCancellationToken(), 2))
	require.NoError(t, s.OnSectionUploaded(key, 2))

	s.MarkForUpdate(key, Rebuild, 3)
	require.NoError(t, s.OnSectionSubmitted(key, NewCancellationToken(), 4))
	s.MarkForUpdate(key, ImportantRebuild, 5)

	// The result of frame 2 arrives again after the frame 5 request.
	require.NoError(t, s.OnSectionUploaded(key, 2))
	require.Equal(t, ImportantRebuild, s.PendingType(key))
	require.True(t, s.IsBuilding(key))

	require.NoError(t, s.OnSectionUploaded(key, 4))
	require.Equal(t, 1, s.QueueLen(ImportantRebuild))
	require.Equal(t, 1, s.Tracked())
}

func TestSchedulerErrors(t *testing.T) {
	key := models.NewSectionPos(3, 0, -3).Key()

	t.Run("submitting an unscheduled section", func(t *testing.T) {
		s := New()
		err := s.OnSectionSubmitted(key, nil, 1)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeNotScheduled))
	})

	t.Run("submitting a building section", func(t *testing.T) {
		s := New()
		s.MarkForUpdate(key, Rebuild, 1)
		require.NoError(t, s.OnSectionSubmitted(key, NewCancellationToken(), 1))

		s.MarkForUpdate(key, Rebuild, 2)
		err := s.OnSectionSubmitted(key, NewCancellationToken(), 2)
		require.True(t, errors.IsType(err, ErrTypeAlreadyBuilding))
	})

	t.Run("submitting late", func(t *testing.T) {
		s := New()
		s.MarkForUpdate(key, Rebuild, 1)
		require.NoError(t, s.OnSectionSubmitted(key, nil, 5))

		s.MarkForUpdate(key, Rebuild, 5)
		err := s.OnSectionSubmitted(key, nil, 4)
		require.Equal(t, ErrTypeLateSubmission, errors.Type(err))
	})

	t.Run("uploading an untracked section", func(t *testing.T) {
		s := New()
		err := s.OnSectionUploaded(key, 1)
		require.True(t, errors.IsType(err, ErrTypeUntracked))
	})
}

func TestSchedulerCancel(t *testing.T) {
	key := models.NewSectionPos(0, 1, 0).Key()

	t.Run("removing a building section", func(t *testing.T) {
		s := New()
		s.MarkForUpdate(key, Rebuild, 1)

		token := NewCancellationToken()
		require.NoError(t, s.OnSectionSubmitted(key, token, 1))
		s.MarkForUpdate(key, ImportantRebuild, 2)

		s.CancelScheduledBuild(key)
		require.True(t, token.IsCancelled())
		require.Zero(t, s.Tracked())
		for _, ut := range UpdateTypes {
			require.Zero(t, s.QueueLen(ut))
		}

		// The result of the cancelled build may still arrive.
		err := s.OnSectionUploaded(key, 1)
		require.True(t, errors.IsType(err, ErrTypeUntracked))

		s.CancelScheduledBuild(key)
	})

	t.Run("removing a queued section", func(t *testing.T) {
		s := New()
		s.MarkForUpdate(key, InitialBuild, 1)
		s.CancelScheduledBuild(key)
		require.Zero(t, s.QueueLen(InitialBuild))
		require.Zero(t, s.Tracked())
	})

	t.Run("destroy", func(t *testing.T) {
		s := New()
		other := models.NewSectionPos(5, 5, 5).Key()

		s.MarkForUpdate(key, Rebuild, 1)
		token := NewCancellationToken()
		require.NoError(t, s.OnSectionSubmitted(key, token, 1))
		s.MarkForUpdate(other, InitialBuild, 1)

		s.Destroy()
		require.True(t, token.IsCancelled())
		require.Zero(t, s.Tracked())
		require.Zero(t, s.QueueLen(InitialBuild))

		s.Destroy()
	})
}

func TestSchedulerDebugString(t *testing.T) {
	s := New()
	s.MarkForUpdate(models.NewSectionPos(0, 0, 0).Key(), ImportantRebuild, 1)
	s.MarkForUpdate(models.NewSectionPos(1, 0, 0).Key(), Rebuild, 1)
	s.MarkForUpdate(models.NewSectionPos(2, 0, 0).Key(), Rebuild, 1)
	s.MarkForUpdate(models.NewSectionPos(3, 0, 0).Key(), InitialBuild, 1)

	require.Equal(t, "P0=001 | P1=002 | P2=00001", s.DebugString())
}
