package lists

import (
	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/region"
)

// VisibleCollector gathers the visited sections that have something to draw
// into the render lists of their regions.
type VisibleCollector struct {
	frame int32
	lists []*region.RenderList
}

// NewVisibleCollector creates a collector for the given frame.
func NewVisibleCollector(frame int32) *VisibleCollector {
	return &VisibleCollector{frame: frame}
}

func (c *VisibleCollector) Visit(r *region.Region, index models.LocalIndex, flags graph.NodeFlags) {
	if !flags.HasRenderData() {
		return
	}

	l := r.RenderList()
	if l.LastVisibleFrame() != c.frame {
		l.Reset(c.frame)
		c.lists = append(c.lists, l)
	}
	l.Add(index, flags)
}

// RenderLists returns the collected lists in the order regions were first
// reached.
func (c *VisibleCollector) RenderLists() *SortedRenderLists {
	return &SortedRenderLists{lists: c.lists}
}
