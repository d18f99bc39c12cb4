package sections

import (
	"fmt"

	"github.com/aukilabs/sowilo/builder"
	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/region"
)

// RenderSection is the render state of a section.
type RenderSection struct {
	pos    models.SectionPos
	index  models.LocalIndex
	region *region.Region

	built               bool
	flags               graph.NodeFlags
	globalBlockEntities []builder.BlockEntity
	culledBlockEntities []builder.BlockEntity
	animatedSprites     []string

	lastBuiltTime int32
	disposed      bool
}

func newRenderSection(r *region.Region, pos models.SectionPos) *RenderSection {
	return &RenderSection{
		pos:    pos,
		index:  pos.LocalIndex(),
		region: r,
	}
}

func (s *RenderSection) Pos() models.SectionPos {
	return s.pos
}

func (s *RenderSection) Key() int64 {
	return s.pos.Key()
}

func (s *RenderSection) LocalIndex() models.LocalIndex {
	return s.index
}

func (s *RenderSection) Region() *region.Region {
	return s.region
}

// IsBuilt reports whether the section has committed build info.
func (s *RenderSection) IsBuilt() bool {
	return s.built
}

func (s *RenderSection) Flags() graph.NodeFlags {
	return s.flags
}

// GlobalBlockEntities returns the block entities drawn regardless of the
// section visibility.
func (s *RenderSection) GlobalBlockEntities() []builder.BlockEntity {
	return s.globalBlockEntities
}

func (s *RenderSection) CulledBlockEntities() []builder.BlockEntity {
	return s.culledBlockEntities
}

func (s *RenderSection) AnimatedSprites() []string {
	return s.animatedSprites
}

// LastBuiltFrame returns the frame of the last committed build.
func (s *RenderSection) LastBuiltFrame() int32 {
	return s.lastBuiltTime
}

func (s *RenderSection) IsDisposed() bool {
	return s.disposed
}

func (s *RenderSection) String() string {
	x, y, z := s.pos.MinBlock()
	return fmt.Sprintf("section at %s from (%d, %d, %d) to (%d, %d, %d)",
		s.pos,
		x, y, z,
		x+models.SectionSize-1, y+models.SectionSize-1, z+models.SectionSize-1,
	)
}

// setInfo commits build info into the section and its region graph. A nil
// info clears both.
func (s *RenderSection) setInfo(info *builder.SectionInfo) {
	if info == nil {
		s.clearRenderState()
		return
	}

	s.built = true
	s.flags = info.Flags | graph.FlagLoaded
	s.globalBlockEntities = info.GlobalBlockEntities
	s.culledBlockEntities = info.CulledBlockEntities
	s.animatedSprites = info.AnimatedSprites

	s.region.GraphData().Set(s.index, info.Connections, info.Flags)
}

func (s *RenderSection) clearRenderState() {
	s.built = false
	s.flags = graph.FlagsNone
	s.globalBlockEntities = nil
	s.culledBlockEntities = nil
	s.animatedSprites = nil

	s.region.GraphData().Clear(s.index)
}

func (s *RenderSection) delete() {
	s.clearRenderState()
	s.disposed = true
}
