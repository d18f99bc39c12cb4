package models

const (
	RegionWidthShift  = 3
	RegionHeightShift = 2
	RegionLengthShift = 3

	// RegionWidth is the number of sections along the X axis of a region.
	RegionWidth = 1 << RegionWidthShift

	// RegionHeight is the number of sections along the Y axis of a region.
	RegionHeight = 1 << RegionHeightShift

	// RegionLength is the number of sections along the Z axis of a region.
	RegionLength = 1 << RegionLengthShift

	// RegionSize is the number of sections a region contains.
	RegionSize = RegionWidth * RegionHeight * RegionLength
)

// RegionKey identifies a region. It is the packed key of the section
// coordinates shifted by the region dimensions.
type RegionKey int64

// RegionKeyFromSection returns the key of the region that contains the given
// section coordinates.
func RegionKeyFromSection(x, y, z int32) RegionKey {
	return SectionPos{X: x, Y: y, Z: z}.Region()
}

// Pos returns the region coordinates, in region units.
func (k RegionKey) Pos() SectionPos {
	return SectionPosFromKey(int64(k))
}

// Origin returns the coordinates of the first section of the region.
func (k RegionKey) Origin() SectionPos {
	p := k.Pos()
	return SectionPos{
		X: p.X << RegionWidthShift,
		Y: p.Y << RegionHeightShift,
		Z: p.Z << RegionLengthShift,
	}
}

// Offset returns the key of the neighbouring region in the given direction.
func (k RegionKey) Offset(d Direction) RegionKey {
	return RegionKey(k.Pos().Offset(d).Key())
}

func (k RegionKey) String() string {
	return k.Pos().String()
}
