package models

import (
	"fmt"
	"math"
)

const (
	// SectionSizeShift is log2 of the number of blocks along a section edge.
	SectionSizeShift = 4

	// SectionSize is the number of blocks along a section edge.
	SectionSize = 1 << SectionSizeShift

	sectionKeyXBits = 22
	sectionKeyYBits = 20
	sectionKeyZBits = 22

	sectionKeyXOffset = sectionKeyYBits + sectionKeyZBits
	sectionKeyZOffset = sectionKeyYBits
	sectionKeyYOffset = 0

	sectionKeyXMask = 1<<sectionKeyXBits - 1
	sectionKeyYMask = 1<<sectionKeyYBits - 1
	sectionKeyZMask = 1<<sectionKeyZBits - 1
)

// SectionPos is the integer coordinate of a section in the world grid.
type SectionPos struct {
	X int32
	Y int32
	Z int32
}

// NewSectionPos returns the position of the section at the given coordinates.
func NewSectionPos(x, y, z int32) SectionPos {
	return SectionPos{X: x, Y: y, Z: z}
}

// SectionPosFromBlock returns the position of the section containing the given
// block coordinates.
func SectionPosFromBlock(x, y, z int32) SectionPos {
	return SectionPos{
		X: x >> SectionSizeShift,
		Y: y >> SectionSizeShift,
		Z: z >> SectionSizeShift,
	}
}

// SectionPosFromWorld returns the position of the section containing the
// given world-space point.
func SectionPosFromWorld(x, y, z float64) SectionPos {
	return SectionPosFromBlock(
		int32(math.Floor(x)),
		int32(math.Floor(y)),
		int32(math.Floor(z)),
	)
}

// SectionPosFromKey unpacks a key created with SectionPos.Key.
func SectionPosFromKey(key int64) SectionPos {
	return SectionPos{
		X: int32(key >> sectionKeyXOffset),
		Y: int32(key << (64 - sectionKeyYBits) >> (64 - sectionKeyYBits)),
		Z: int32(key << (64 - sectionKeyXOffset) >> (64 - sectionKeyZBits)),
	}
}

// Key packs the position in a 64-bit integer that can be used as a map key.
// X and Z use 22 bits, Y uses 20 bits.
func (p SectionPos) Key() int64 {
	return int64(p.X&sectionKeyXMask)<<sectionKeyXOffset |
		int64(p.Z&sectionKeyZMask)<<sectionKeyZOffset |
		int64(p.Y&sectionKeyYMask)<<sectionKeyYOffset
}

// Offset returns the position of the neighbouring section in the given
// direction.
func (p SectionPos) Offset(d Direction) SectionPos {
	x, y, z := d.Offset()
	return SectionPos{X: p.X + x, Y: p.Y + y, Z: p.Z + z}
}

// Add returns the position translated by the given amount of sections.
func (p SectionPos) Add(x, y, z int32) SectionPos {
	return SectionPos{X: p.X + x, Y: p.Y + y, Z: p.Z + z}
}

// MinBlock returns the coordinates of the block at the section origin.
func (p SectionPos) MinBlock() (x, y, z int32) {
	return p.X << SectionSizeShift, p.Y << SectionSizeShift, p.Z << SectionSizeShift
}

// Center returns the world-space center of the section.
func (p SectionPos) Center() (x, y, z float64) {
	const half = SectionSize / 2
	bx, by, bz := p.MinBlock()
	return float64(bx + half), float64(by + half), float64(bz + half)
}

// ChebyshevDistance returns the maximum of the per-axis absolute differences
// between two positions.
func (p SectionPos) ChebyshevDistance(o SectionPos) int32 {
	return max(absInt32(p.X-o.X), absInt32(p.Y-o.Y), absInt32(p.Z-o.Z))
}

// Region returns the key of the region containing the section.
func (p SectionPos) Region() RegionKey {
	return RegionKey(SectionPos{
		X: p.X >> RegionWidthShift,
		Y: p.Y >> RegionHeightShift,
		Z: p.Z >> RegionLengthShift,
	}.Key())
}

// LocalIndex returns the index of the section inside its region.
func (p SectionPos) LocalIndex() LocalIndex {
	return LocalIndexFromGlobal(p.X, p.Y, p.Z)
}

func (p SectionPos) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
