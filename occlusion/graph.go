package occlusion

import (
	"math"
	"slices"
	"time"

	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/region"
)

const (
	renderBoundsSize    = 8.0
	renderBoundsEpsilon = 1.0 / 32.0
)

// Visitor receives every section the search reaches.
type Visitor interface {
	Visit(r *region.Region, index models.LocalIndex, flags graph.NodeFlags)
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(r *region.Region, index models.LocalIndex, flags graph.NodeFlags)

func (f VisitorFunc) Visit(r *region.Region, index models.LocalIndex, flags graph.NodeFlags) {
	f(r, index, flags)
}

// Viewport is the frustum oracle used to reject sections outside the view.
type Viewport interface {
	IsBoxVisible(cx, cy, cz, halfExtent float64) bool
}

// Regions resolves regions by key. A nil region means the region is not
// loaded.
type Regions interface {
	Region(key models.RegionKey) *region.Region
}

// SearchStats summarizes a visibility search.
type SearchStats struct {
	Regions  int           `json:"regions"`
	Popped   int           `json:"popped"`
	Visited  int           `json:"visited"`
	Duration time.Duration `json:"duration"`
}

// GraphManager finds the sections visible from a camera by walking the
// section connectivity graph outwards from the camera section.
type GraphManager struct {
	regions Regions
	minY    int32
	maxY    int32
}

// NewGraphManager creates a graph manager. minY and maxY are the lowest and
// highest section Y coordinates of the world, both inclusive.
func NewGraphManager(regions Regions, minY, maxY int32) *GraphManager {
	return &GraphManager{
		regions: regions,
		minY:    minY,
		maxY:    maxY,
	}
}

type search struct {
	visitor       Visitor
	camera        models.Camera
	origin        models.SectionPos
	viewport      Viewport
	maxDistanceSq float64
	useOcclusion  bool
	stats         SearchStats
}

// FindVisibleSections visits, exactly once each, the sections within
// searchDistance blocks of the camera that are inside the viewport and
// reachable from the camera section. When useOcclusionCulling is false,
// connectivity between faces is ignored.
func (m *GraphManager) FindVisibleSections(
	visitor Visitor,
	camera models.Camera,
	viewport Viewport,
	searchDistance float64,
	useOcclusionCulling bool,
) SearchStats {
	start := time.Now()

	s := &search{
		visitor:       visitor,
		camera:        camera,
		origin:        camera.SectionPos(),
		viewport:      viewport,
		maxDistanceSq: searchDistance * searchDistance,
		useOcclusion:  useOcclusionCulling,
	}

	queues := newDispatchQueue(m.regions)
	m.seed(queues, s, searchDistance)

	for q := queues.next(); q != nil; q = queues.next() {
		if q.region != nil {
			s.stats.Regions++
			s.traverseRegion(q)
		} else {
			// Nothing to traverse in unloaded regions.
			q.cursor = q.size
		}
		queues.requeue(q)
	}

	s.stats.Duration = time.Since(start)
	instrumentSearch(s.stats)
	return s.stats
}

func (m *GraphManager) seed(queues *dispatchQueue, s *search, searchDistance float64) {
	switch {
	case s.origin.Y < m.minY:
		m.seedOutsideWorldHeight(queues, s, searchDistance, m.minY, models.NegY)

	case s.origin.Y > m.maxY:
		m.seedOutsideWorldHeight(queues, s, searchDistance, m.maxY, models.PosY)

	default:
		// TODO: render something when the camera is inside the world but in
		// a section that is not loaded yet.
		if !m.node(s.origin).IsEmpty() {
			queues.get(s.origin.Region()).Add(s.origin.LocalIndex(), models.DirectionsAll)
		}
	}
}

func (m *GraphManager) seedOutsideWorldHeight(
	queues *dispatchQueue,
	s *search,
	searchDistance float64,
	height int32,
	incoming models.Direction,
) {
	radius := int32(math.Ceil(searchDistance / models.SectionSize))

	type candidate struct {
		pos        models.SectionPos
		distanceSq float64
	}
	candidates := make([]candidate, 0, (2*radius+1)*(2*radius+1))

	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			pos := models.NewSectionPos(s.origin.X+dx, height, s.origin.Z+dz)

			if m.node(pos).IsEmpty() || isOutsideViewport(s.viewport, pos) {
				continue
			}

			cx, cy, cz := pos.Center()
			candidates = append(candidates, candidate{
				pos:        pos,
				distanceSq: square(s.camera.X-cx) + square(s.camera.Y-cy) + square(s.camera.Z-cz),
			})
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.distanceSq < b.distanceSq:
			return -1
		case a.distanceSq > b.distanceSq:
			return 1
		default:
			return 0
		}
	})

	for _, c := range candidates {
		queues.get(c.pos.Region()).Add(c.pos.LocalIndex(), incoming.Bit())
	}
}

func (m *GraphManager) node(pos models.SectionPos) graph.Node {
	r := m.regions.Region(pos.Region())
	if r == nil {
		return graph.Empty()
	}
	return r.GraphData().Get(pos.LocalIndex())
}

func (s *search) traverseRegion(q *SearchQueue) {
	r := q.region
	data := r.GraphData()

	for index, ok := q.pop(); ok; index, ok = q.pop() {
		s.stats.Popped++

		node := data.Get(index)
		if node.IsEmpty() {
			continue
		}

		pos := r.SectionPos(index)

		// The camera section is always visited: the frustum test is not exact
		// near the camera and a small search distance would reject it.
		if pos != s.origin {
			if s.closestCornerDistanceSq(pos) > s.maxDistanceSq {
				continue
			}
			if isOutsideViewport(s.viewport, pos) {
				continue
			}
		}

		s.visitor.Visit(r, index, node.Flags())
		s.stats.Visited++

		outgoing := models.DirectionsAll
		if s.useOcclusion {
			outgoing = node.Connections().Outgoing(q.IncomingDirections(index))
		}
		outgoing &= outwardDirections(s.origin, pos)

		if outgoing.IsEmpty() {
			continue
		}

		for d := models.Direction(0); d < models.DirectionCount; d++ {
			if !outgoing.Contains(d) {
				continue
			}

			neighbor, wrapped := index.Step(d)
			target := q
			if wrapped {
				target = q.neighbors[d]
			}
			target.Add(neighbor, d.Opposite().Bit())
		}
	}
}

// closestCornerDistanceSq returns the cylindrical squared distance between the
// camera and the corner of the section bounds closest to the search origin.
func (s *search) closestCornerDistanceSq(pos models.SectionPos) float64 {
	px := float64(pos.X<<models.SectionSizeShift + cornerOffset(s.origin.X, pos.X))
	py := float64(pos.Y<<models.SectionSizeShift + cornerOffset(s.origin.Y, pos.Y))
	pz := float64(pos.Z<<models.SectionSizeShift + cornerOffset(s.origin.Z, pos.Z))

	dx := s.camera.X - px
	dy := s.camera.Y - py
	dz := s.camera.Z - pz

	return max(dx*dx+dz*dz, dy*dy)
}

func cornerOffset(origin, v int32) int32 {
	const half = models.SectionSize / 2

	switch {
	case origin > v:
		return half + half
	case origin < v:
		return 0
	default:
		return half
	}
}

// outwardDirections returns the directions that do not move closer to the
// origin on any axis. Both directions are allowed on an axis shared with the
// origin.
func outwardDirections(origin, pos models.SectionPos) models.DirectionSet {
	var d models.DirectionSet

	if pos.X <= origin.X {
		d = d.With(models.NegX)
	}
	if pos.X >= origin.X {
		d = d.With(models.PosX)
	}
	if pos.Y <= origin.Y {
		d = d.With(models.NegY)
	}
	if pos.Y >= origin.Y {
		d = d.With(models.PosY)
	}
	if pos.Z <= origin.Z {
		d = d.With(models.NegZ)
	}
	if pos.Z >= origin.Z {
		d = d.With(models.PosZ)
	}
	return d
}

func isOutsideViewport(viewport Viewport, pos models.SectionPos) bool {
	cx, cy, cz := pos.Center()
	return !viewport.IsBoxVisible(cx, cy, cz, renderBoundsSize+renderBoundsEpsilon)
}

func square(v float64) float64 {
	return v * v
}
