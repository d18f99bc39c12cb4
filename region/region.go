package region

import (
	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
)

// Region is a fixed block of sections sharing one graph storage array, one
// render list and one set of device resources.
//
// Sections are only tracked by local index. The section manager owns the
// section state and resolves it by coordinate key.
type Region struct {
	key    models.RegionKey
	origin models.SectionPos

	graphData  graph.RegionData
	renderList *RenderList
	resources  Resources

	present      [models.RegionSize]bool
	sectionCount int
}

func newRegion(key models.RegionKey) *Region {
	r := &Region{
		key:    key,
		origin: key.Origin(),
	}
	r.renderList = newRenderList(r)
	return r
}

func (r *Region) Key() models.RegionKey {
	return r.key
}

// Origin returns the coordinates of the first section of the region.
func (r *Region) Origin() models.SectionPos {
	return r.origin
}

// GraphData returns the visibility graph records of the region.
func (r *Region) GraphData() *graph.RegionData {
	return &r.graphData
}

func (r *Region) RenderList() *RenderList {
	return r.renderList
}

// Resources returns the device resources of the region. It is nil when no
// allocator is configured.
func (r *Region) Resources() Resources {
	return r.resources
}

// SectionPos returns the world coordinates of the section at the given index.
func (r *Region) SectionPos(index models.LocalIndex) models.SectionPos {
	return index.Global(r.origin)
}

// HasSection reports whether a section is present at the given index.
func (r *Region) HasSection(index models.LocalIndex) bool {
	return r.present[index]
}

func (r *Region) SectionCount() int {
	return r.sectionCount
}

func (r *Region) IsEmpty() bool {
	return r.sectionCount == 0
}

func (r *Region) addSection(index models.LocalIndex) bool {
	if r.present[index] {
		return false
	}
	r.present[index] = true
	r.sectionCount++
	return true
}

func (r *Region) removeSection(index models.LocalIndex) bool {
	if !r.present[index] {
		return false
	}

	r.present[index] = false
	r.sectionCount--
	r.graphData.Clear(index)

	if r.resources != nil {
		r.resources.DeleteMesh(index)
	}
	return true
}
