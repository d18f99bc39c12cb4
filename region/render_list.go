package region

import (
	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
	"github.com/bits-and-blooms/bitset"
)

// RenderList holds the visible sections of a region for a given frame.
type RenderList struct {
	region *Region

	lastVisibleFrame int32

	visible              *bitset.BitSet
	sections             []models.LocalIndex
	sectionsWithGeometry []models.LocalIndex
	sectionsWithEntities []models.LocalIndex
	sectionsWithSprites  []models.LocalIndex
}

func newRenderList(r *Region) *RenderList {
	return &RenderList{
		region:           r,
		lastVisibleFrame: -1,
		visible:          bitset.New(models.RegionSize),
	}
}

// Reset empties the list and marks it as belonging to the given frame.
func (l *RenderList) Reset(frame int32) {
	l.lastVisibleFrame = frame

	l.visible.ClearAll()
	l.sections = l.sections[:0]
	l.sectionsWithGeometry = l.sectionsWithGeometry[:0]
	l.sectionsWithEntities = l.sectionsWithEntities[:0]
	l.sectionsWithSprites = l.sectionsWithSprites[:0]
}

// Add appends a visible section. A section must be added at most once per
// frame.
func (l *RenderList) Add(index models.LocalIndex, flags graph.NodeFlags) {
	l.visible.Set(uint(index))
	l.sections = append(l.sections, index)

	if flags.Contains(graph.FlagHasBlockGeometry) {
		l.sectionsWithGeometry = append(l.sectionsWithGeometry, index)
	}
	if flags.Contains(graph.FlagHasBlockEntities) {
		l.sectionsWithEntities = append(l.sectionsWithEntities, index)
	}
	if flags.Contains(graph.FlagHasAnimatedSprites) {
		l.sectionsWithSprites = append(l.sectionsWithSprites, index)
	}
}

func (l *RenderList) Region() *Region {
	return l.region
}

func (l *RenderList) LastVisibleFrame() int32 {
	return l.lastVisibleFrame
}

// IsSectionVisible reports whether the section was added during the last
// frame the list was reset for.
func (l *RenderList) IsSectionVisible(index models.LocalIndex) bool {
	return l.visible.Test(uint(index))
}

// Sections returns the visible sections in traversal order.
func (l *RenderList) Sections() []models.LocalIndex {
	return l.sections
}

func (l *RenderList) SectionsWithGeometry() []models.LocalIndex {
	return l.sectionsWithGeometry
}

func (l *RenderList) SectionsWithGeometryCount() int {
	return len(l.sectionsWithGeometry)
}

func (l *RenderList) SectionsWithEntities() []models.LocalIndex {
	return l.sectionsWithEntities
}

func (l *RenderList) SectionsWithSprites() []models.LocalIndex {
	return l.sectionsWithSprites
}

func (l *RenderList) Len() int {
	return len(l.sections)
}
