package world

import "github.com/aukilabs/sowilo/models"

const (
	sectionBlocks = models.SectionSize * models.SectionSize * models.SectionSize
	sectionMask   = models.SectionSize - 1
)

// section holds the blocks of a 16x16x16 section, indexed by y, then z, then
// x.
type section struct {
	blocks [sectionBlocks]Block
	nonAir int
}

func blockIndex(x, y, z int32) int {
	return int((y&sectionMask)<<8 | (z&sectionMask)<<4 | x&sectionMask)
}

func (s *section) get(x, y, z int32) Block {
	return s.blocks[blockIndex(x, y, z)]
}

func (s *section) set(x, y, z int32, b Block) Block {
	i := blockIndex(x, y, z)
	prev := s.blocks[i]
	s.blocks[i] = b

	switch {
	case prev == Air && b != Air:
		s.nonAir++
	case prev != Air && b == Air:
		s.nonAir--
	}
	return prev
}

func (s *section) isEmpty() bool {
	return s == nil || s.nonAir == 0
}

// column holds the sections of a chunk column, from the lowest to the
// highest. A nil section only holds air.
type column struct {
	sections []*section
}
