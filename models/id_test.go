package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequentialIDGeneratorNew(t *testing.T) {
	t.Run("returns a new id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			id := idGen.New()
			require.Equal(t, uint32(i), id)
		}
	})

	t.Run("returns a reusable id", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			idGen.New()
		}

		idGen.Reuse(2)
		id := idGen.New()
		require.Equal(t, uint32(2), id)
	})

	t.Run("returns the smallest reusable id first", func(t *testing.T) {
		var idGen SequentialIDGenerator

		for i := 1; i <= 5; i++ {
			idGen.New()
		}

		idGen.Reuse(4)
		idGen.Reuse(1)
		idGen.Reuse(4)
		idGen.Reuse(3)

		require.Equal(t, uint32(1), idGen.New())
		require.Equal(t, uint32(3), idGen.New())
		require.Equal(t, uint32(4), idGen.New())
		require.Equal(t, uint32(6), idGen.New())
	})
}

func TestFrameCounter(t *testing.T) {
	var c FrameCounter
	require.Equal(t, int32(0), c.Current())

	prev := c.Current()
	for i := 0; i < 10; i++ {
		next := c.Next()
		require.Greater(t, next, prev)
		require.Equal(t, next, c.Current())
		prev = next
	}
}
