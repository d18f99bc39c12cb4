package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLocalIndexPacking(t *testing.T) {
	seen := make(map[LocalIndex]struct{}, RegionSize)

	for x := int32(0); x < RegionWidth; x++ {
		for y := int32(0); y < RegionHeight; y++ {
			for z := int32(0); z < RegionLength; z++ {
				i := PackLocalIndex(x, y, z)
				require.Equal(t, x, i.X())
				require.Equal(t, y, i.Y())
				require.Equal(t, z, i.Z())
				seen[i] = struct{}{}
			}
		}
	}

	require.Len(t, seen, RegionSize)
}

func TestLocalIndexFromGlobal(t *testing.T) {
	require.Equal(t, PackLocalIndex(7, 3, 7), LocalIndexFromGlobal(-1, -1, -1))
	require.Equal(t, PackLocalIndex(1, 2, 0), LocalIndexFromGlobal(9, 6, 8))
}

func TestLocalIndexStep(t *testing.T) {
	t.Run("step inside the region", func(t *testing.T) {
		i := PackLocalIndex(3, 1, 4)

		n, wrapped := i.Step(PosX)
		require.False(t, wrapped)
		require.Equal(t, PackLocalIndex(4, 1, 4), n)

		n, wrapped = i.Step(NegY)
		require.False(t, wrapped)
		require.Equal(t, PackLocalIndex(3, 0, 4), n)

		n, wrapped = i.Step(NegZ)
		require.False(t, wrapped)
		require.Equal(t, PackLocalIndex(3, 1, 3), n)
	})

	t.Run("step across the region boundary", func(t *testing.T) {
		n, wrapped := PackLocalIndex(7, 2, 2).Step(PosX)
		require.True(t, wrapped)
		require.Equal(t, PackLocalIndex(0, 2, 2), n)

		n, wrapped = PackLocalIndex(0, 2, 2).Step(NegX)
		require.True(t, wrapped)
		require.Equal(t, PackLocalIndex(7, 2, 2), n)

		n, wrapped = PackLocalIndex(5, 3, 5).Step(PosY)
		require.True(t, wrapped)
		require.Equal(t, PackLocalIndex(5, 0, 5), n)

		n, wrapped = PackLocalIndex(5, 0, 5).Step(NegY)
		require.True(t, wrapped)
		require.Equal(t, PackLocalIndex(5, 3, 5), n)

		n, wrapped = PackLocalIndex(1, 1, 7).Step(PosZ)
		require.True(t, wrapped)
		require.Equal(t, PackLocalIndex(1, 1, 0), n)

		n, wrapped = PackLocalIndex(1, 1, 0).Step(NegZ)
		require.True(t, wrapped)
		require.Equal(t, PackLocalIndex(1, 1, 7), n)
	})

	t.Run("step matches world coordinates", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			p := SectionPos{
				X: rapid.Int32Range(-1000, 1000).Draw(t, "x"),
				Y: rapid.Int32Range(-64, 64).Draw(t, "y"),
				Z: rapid.Int32Range(-1000, 1000).Draw(t, "z"),
			}
			d := Direction(rapid.IntRange(0, DirectionCount-1).Draw(t, "direction"))

			neighbor := p.Offset(d)
			n, wrapped := p.LocalIndex().Step(d)

			require.Equal(t, neighbor.LocalIndex(), n)
			require.Equal(t, neighbor.Region() != p.Region(), wrapped)
			if wrapped {
				require.Equal(t, p.Region().Offset(d), neighbor.Region())
			}
		})
	})
}
