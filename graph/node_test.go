package graph

import (
	"testing"

	"github.com/aukilabs/sowilo/models"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNodePack(t *testing.T) {
	t.Run("unpack is the inverse of pack", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			connections := Connections(rapid.Uint64Range(0, 1<<48-1).Draw(t, "connections"))
			flags := NodeFlags(rapid.Uint8().Draw(t, "flags"))

			n := Pack(connections, flags)
			require.Equal(t, connections, n.Connections())
			require.Equal(t, flags, n.Flags())
		})
	})

	t.Run("bits beyond the field widths are discarded", func(t *testing.T) {
		n := Pack(Connections(0xFFFF_FFFF_FFFF_FFFF), FlagLoaded)
		require.Equal(t, Connections(1<<48-1), n.Connections())
		require.Equal(t, FlagLoaded, n.Flags())
	})

	t.Run("empty is the only empty node", func(t *testing.T) {
		require.True(t, Empty().IsEmpty())
		require.True(t, Pack(0, FlagsNone).IsEmpty())

		rapid.Check(t, func(t *rapid.T) {
			connections := Connections(rapid.Uint64Range(0, 1<<48-1).Draw(t, "connections"))
			flags := NodeFlags(rapid.Uint8().Draw(t, "flags"))

			n := Pack(connections, flags)
			require.Equal(t, connections == 0 && flags == 0, n.IsEmpty())
		})
	})

	t.Run("loaded and fully opaque is not empty", func(t *testing.T) {
		n := Pack(0, FlagLoaded)
		require.False(t, n.IsEmpty())
		require.Equal(t, models.DirectionsNone, n.Connections().Outgoing(models.DirectionsAll))
	})
}

func TestConnections(t *testing.T) {
	t.Run("set connected is symmetric", func(t *testing.T) {
		var c Connections
		c = c.SetConnected(models.NegX, models.PosY)

		require.True(t, c.IsConnected(models.NegX, models.PosY))
		require.True(t, c.IsConnected(models.PosY, models.NegX))
		require.False(t, c.IsConnected(models.NegX, models.PosX))
		require.False(t, c.IsConnected(models.PosZ, models.PosY))
	})

	t.Run("outgoing is the union of the incoming lanes", func(t *testing.T) {
		var c Connections
		c = c.WithLane(models.NegX, models.PosX.Bit())
		c = c.WithLane(models.NegY, models.PosY.Bit()|models.PosZ.Bit())
		c = c.WithLane(models.PosZ, models.NegZ.Bit())

		require.Equal(t, models.DirectionsNone, c.Outgoing(models.DirectionsNone))
		require.Equal(t, models.PosX.Bit(), c.Outgoing(models.NegX.Bit()))
		require.Equal(t,
			models.PosX.Bit()|models.PosY.Bit()|models.PosZ.Bit(),
			c.Outgoing(models.NegX.Bit()|models.NegY.Bit()),
		)
		require.Equal(t,
			models.PosX.Bit()|models.PosY.Bit()|models.PosZ.Bit()|models.NegZ.Bit(),
			c.Outgoing(models.DirectionsAll),
		)
	})

	t.Run("all connections fit in 48 bits", func(t *testing.T) {
		c := ConnectionsAll()
		require.Equal(t, c, Pack(c, FlagLoaded).Connections())
		for from := models.Direction(0); from < models.DirectionCount; from++ {
			require.Equal(t, models.DirectionsAll, c.Outgoing(from.Bit()))
		}
	})
}

func TestNodeFlags(t *testing.T) {
	require.False(t, FlagsNone.HasRenderData())
	require.False(t, FlagLoaded.HasRenderData())
	require.True(t, (FlagLoaded | FlagHasBlockGeometry).HasRenderData())
	require.True(t, FlagHasBlockEntities.HasRenderData())
	require.True(t, FlagHasAnimatedSprites.HasRenderData())

	f := FlagLoaded | FlagHasBlockEntities
	require.True(t, f.Contains(FlagLoaded))
	require.False(t, f.Contains(FlagHasBlockGeometry))
}

func TestRegionData(t *testing.T) {
	var d RegionData
	i := models.PackLocalIndex(1, 2, 3)

	require.True(t, d.Get(i).IsEmpty())
	require.Zero(t, d.Count())

	d.Set(i, 0, FlagsNone)
	require.False(t, d.Get(i).IsEmpty())
	require.True(t, d.Get(i).Flags().Contains(FlagLoaded))
	require.Equal(t, 1, d.Count())

	d.Set(i, ConnectionsAll(), FlagHasBlockGeometry)
	require.Equal(t, 1, d.Count())
	require.Equal(t, ConnectionsAll(), d.Get(i).Connections())

	d.Clear(i)
	d.Clear(i)
	require.True(t, d.Get(i).IsEmpty())
	require.Zero(t, d.Count())
}
