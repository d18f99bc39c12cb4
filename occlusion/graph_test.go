package occlusion

import (
	"testing"

	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/region"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type viewportFunc func(cx, cy, cz, halfExtent float64) bool

func (f viewportFunc) IsBoxVisible(cx, cy, cz, halfExtent float64) bool {
	return f(cx, cy, cz, halfExtent)
}

var (
	everything = viewportFunc(func(cx, cy, cz, halfExtent float64) bool { return true })
	nothing    = viewportFunc(func(cx, cy, cz, halfExtent float64) bool { return false })
)

type recorder struct {
	visits []models.SectionPos
	counts map[models.SectionPos]int
}

func newRecorder() *recorder {
	return &recorder{counts: make(map[models.SectionPos]int)}
}

func (r *recorder) Visit(reg *region.Region, index models.LocalIndex, flags graph.NodeFlags) {
	pos := reg.SectionPos(index)
	r.visits = append(r.visits, pos)
	r.counts[pos]++
}

func setNode(regions *region.Manager, pos models.SectionPos, c graph.Connections) {
	r, _ := regions.AddSection(pos)
	r.GraphData().Set(pos.LocalIndex(), c, graph.FlagHasBlockGeometry)
}

func cameraAt(pos models.SectionPos) models.Camera {
	x, y, z := pos.Center()
	return models.Camera{X: x, Y: y, Z: z}
}

func openCube(regions *region.Manager, minX, maxX, minY, maxY, minZ, maxZ int32) int {
	n := 0
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				setNode(regions, models.NewSectionPos(x, y, z), graph.ConnectionsAll())
				n++
			}
		}
	}
	return n
}

func TestSearchQueue(t *testing.T) {
	t.Run("an index is enqueued once", func(t *testing.T) {
		q := newSearchQueue(0, nil)
		require.True(t, q.IsEmpty())

		i := models.PackLocalIndex(1, 2, 3)
		q.Add(i, models.NegX.Bit())
		q.Add(i, models.PosZ.Bit())

		require.Equal(t, 1, q.Len())
		require.Equal(t, i, q.NodeIndex(0))
		require.Equal(t, models.NegX.Bit()|models.PosZ.Bit(), q.IncomingDirections(i))
	})

	t.Run("the queue holds every index of a region", func(t *testing.T) {
		q := newSearchQueue(0, nil)
		for n := 0; n < 2; n++ {
			for i := 0; i < models.RegionSize; i++ {
				q.Add(models.LocalIndex(i), models.DirectionsAll)
			}
		}
		require.Equal(t, models.RegionSize, q.Len())
	})

	t.Run("pop follows append order", func(t *testing.T) {
		q := newSearchQueue(0, nil)
		q.Add(5, models.NegY.Bit())
		q.Add(1, models.NegY.Bit())
		q.Add(3, models.NegY.Bit())

		var popped []models.LocalIndex
		for i, ok := q.pop(); ok; i, ok = q.pop() {
			popped = append(popped, i)
		}
		require.Equal(t, []models.LocalIndex{5, 1, 3}, popped)
	})
}

func TestOutwardDirections(t *testing.T) {
	origin := models.NewSectionPos(0, 0, 0)

	require.Equal(t, models.DirectionsAll, outwardDirections(origin, origin))

	d := outwardDirections(origin, models.NewSectionPos(1, 0, 0))
	require.False(t, d.Contains(models.NegX))
	require.True(t, d.Contains(models.PosX))
	require.True(t, d.Contains(models.NegY))
	require.True(t, d.Contains(models.PosY))

	d = outwardDirections(origin, models.NewSectionPos(-1, 2, -3))
	require.Equal(t, models.NegX.Bit()|models.PosY.Bit()|models.NegZ.Bit(), d)
}

func TestFindVisibleSections(t *testing.T) {
	t.Run("every reachable section is visited once", func(t *testing.T) {
		regions := &region.Manager{}
		n := openCube(regions, -2, 2, 0, 3, -2, 2)
		m := NewGraphManager(regions, 0, 3)

		r := newRecorder()
		stats := m.FindVisibleSections(r, cameraAt(models.NewSectionPos(0, 1, 0)), everything, 1000, true)

		require.Len(t, r.counts, n)
		for pos, count := range r.counts {
			require.Equal(t, 1, count, pos.String())
		}
		require.Equal(t, n, stats.Visited)
		require.Greater(t, stats.Regions, 1)
	})

	t.Run("the camera section is always visited", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, -1, 1, 0, 0, -1, 1)
		m := NewGraphManager(regions, 0, 0)

		origin := models.NewSectionPos(0, 0, 0)
		r := newRecorder()
		m.FindVisibleSections(r, cameraAt(origin), nothing, 0, true)
		require.Equal(t, []models.SectionPos{origin}, r.visits)
	})

	t.Run("unloaded camera section yields nothing", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, 1, 3, 0, 0, 0, 0)
		m := NewGraphManager(regions, 0, 0)

		r := newRecorder()
		stats := m.FindVisibleSections(r, cameraAt(models.NewSectionPos(0, 0, 0)), everything, 1000, true)
		require.Empty(t, r.visits)
		require.Zero(t, stats.Visited)
	})

	t.Run("sections outside the search distance are skipped", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, 0, 6, 0, 0, 0, 0)
		m := NewGraphManager(regions, 0, 0)

		r := newRecorder()
		m.FindVisibleSections(r, cameraAt(models.NewSectionPos(0, 0, 0)), everything, 40, true)

		// The closest corner of section 3 is 40 blocks away.
		require.Len(t, r.visits, 4)
		for _, pos := range r.visits {
			require.LessOrEqual(t, pos.X, int32(3))
		}
	})

	t.Run("sections outside the viewport are skipped", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, -3, 3, 0, 0, 0, 0)
		m := NewGraphManager(regions, 0, 0)

		positiveX := viewportFunc(func(cx, cy, cz, halfExtent float64) bool {
			return cx > 0
		})

		r := newRecorder()
		m.FindVisibleSections(r, cameraAt(models.NewSectionPos(0, 0, 0)), positiveX, 1000, true)
		require.Len(t, r.visits, 4)
		for _, pos := range r.visits {
			require.GreaterOrEqual(t, pos.X, int32(0))
		}
	})

	t.Run("opaque sections stop the traversal", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, 0, 4, 0, 0, 0, 0)
		wall := models.NewSectionPos(2, 0, 0)
		setNode(regions, wall, 0)
		m := NewGraphManager(regions, 0, 0)

		camera := cameraAt(models.NewSectionPos(0, 0, 0))

		r := newRecorder()
		m.FindVisibleSections(r, camera, everything, 1000, true)
		require.Equal(t, []models.SectionPos{
			models.NewSectionPos(0, 0, 0),
			models.NewSectionPos(1, 0, 0),
			wall,
		}, r.visits)

		r = newRecorder()
		m.FindVisibleSections(r, camera, everything, 1000, false)
		require.Len(t, r.visits, 5)
	})

	t.Run("traversal follows connectivity lanes", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, 0, 2, 0, 1, 0, 0)

		// Entering the corner through -x only leads up.
		corner := models.NewSectionPos(1, 0, 0)
		setNode(regions, corner, graph.Connections(0).SetConnected(models.NegX, models.PosY))
		m := NewGraphManager(regions, 0, 1)

		r := newRecorder()
		m.FindVisibleSections(r, cameraAt(models.NewSectionPos(0, 0, 0)), everything, 1000, true)

		require.Contains(t, r.counts, corner)
		require.Contains(t, r.counts, models.NewSectionPos(1, 1, 0))
		require.NotContains(t, r.counts, models.NewSectionPos(2, 0, 0))
	})

	t.Run("occlusion culling visits a subset", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			regions := &region.Manager{}
			for x := int32(-3); x <= 3; x++ {
				for y := int32(0); y <= 2; y++ {
					for z := int32(-3); z <= 3; z++ {
						if rapid.IntRange(0, 9).Draw(t, "missing") == 0 {
							continue
						}
						c := graph.Connections(rapid.Uint64().Draw(t, "connections"))
						setNode(regions, models.NewSectionPos(x, y, z), c)
					}
				}
			}
			m := NewGraphManager(regions, 0, 2)
			camera := cameraAt(models.NewSectionPos(0, 1, 0))

			culled := newRecorder()
			m.FindVisibleSections(culled, camera, everything, 1000, true)

			all := newRecorder()
			m.FindVisibleSections(all, camera, everything, 1000, false)

			for pos, count := range culled.counts {
				require.Equal(t, 1, count)
				require.Contains(t, all.counts, pos)
			}
			for _, count := range all.counts {
				require.Equal(t, 1, count)
			}
		})
	})
}

func TestFindVisibleSectionsOutsideWorld(t *testing.T) {
	t.Run("seeds from the bottom of the world by distance", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, 0, 6, 0, 1, 0, 6)
		m := NewGraphManager(regions, 0, 1)

		origin := models.NewSectionPos(3, -2, 3)
		camera := cameraAt(origin)

		r := newRecorder()
		m.FindVisibleSections(r, camera, everything, 64, true)
		require.NotEmpty(t, r.visits)
		require.Equal(t, models.NewSectionPos(3, 0, 3), r.visits[0])

		var bottom []models.SectionPos
		for _, pos := range r.visits {
			if pos.Y == 0 {
				bottom = append(bottom, pos)
			}
		}

		distance := func(pos models.SectionPos) float64 {
			x, y, z := pos.Center()
			return square(camera.X-x) + square(camera.Y-y) + square(camera.Z-z)
		}
		for i := 1; i < len(bottom); i++ {
			require.LessOrEqual(t, distance(bottom[i-1]), distance(bottom[i]))
		}

		for _, count := range r.counts {
			require.Equal(t, 1, count)
		}
	})

	t.Run("seeds from the top of the world", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, 0, 2, 0, 1, 0, 2)
		m := NewGraphManager(regions, 0, 1)

		r := newRecorder()
		m.FindVisibleSections(r, cameraAt(models.NewSectionPos(1, 3, 1)), everything, 64, true)
		require.Equal(t, models.NewSectionPos(1, 1, 1), r.visits[0])
		require.Contains(t, r.counts, models.NewSectionPos(1, 0, 1))
	})

	t.Run("columns outside the viewport are not seeded", func(t *testing.T) {
		regions := &region.Manager{}
		openCube(regions, 0, 2, 0, 0, 0, 2)
		m := NewGraphManager(regions, 0, 0)

		r := newRecorder()
		m.FindVisibleSections(r, cameraAt(models.NewSectionPos(1, -3, 1)), nothing, 64, true)
		require.Empty(t, r.visits)
	})
}
