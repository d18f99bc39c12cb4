package models

// LocalIndex is the index of a section inside its region. The three axis
// offsets are packed as x in bits 5..7, z in bits 2..4 and y in bits 0..1.
//
// Incrementing or decrementing an axis only touches that axis' field and wraps
// inside it. Callers detect that the region boundary was crossed by comparing
// the result with the original index: an increment wrapped when the result is
// smaller, a decrement wrapped when it is larger.
type LocalIndex uint8

const (
	localXBits   = RegionWidth - 1
	localXOffset = 5
	localXMask   = LocalIndex(localXBits << localXOffset)

	localYBits   = RegionHeight - 1
	localYOffset = 0
	localYMask   = LocalIndex(localYBits << localYOffset)

	localZBits   = RegionLength - 1
	localZOffset = 2
	localZMask   = LocalIndex(localZBits << localZOffset)
)

// PackLocalIndex packs region-relative offsets. Offsets outside the region
// are wrapped.
func PackLocalIndex(x, y, z int32) LocalIndex {
	return LocalIndex((x&localXBits)<<localXOffset) |
		LocalIndex((y&localYBits)<<localYOffset) |
		LocalIndex((z&localZBits)<<localZOffset)
}

// LocalIndexFromGlobal returns the local index of a section from its world
// coordinates.
func LocalIndexFromGlobal(x, y, z int32) LocalIndex {
	return PackLocalIndex(x, y, z)
}

func (i LocalIndex) X() int32 {
	return int32(i>>localXOffset) & localXBits
}

func (i LocalIndex) Y() int32 {
	return int32(i>>localYOffset) & localYBits
}

func (i LocalIndex) Z() int32 {
	return int32(i>>localZOffset) & localZBits
}

func (i LocalIndex) IncX() LocalIndex {
	return i&^localXMask | (i+1<<localXOffset)&localXMask
}

func (i LocalIndex) DecX() LocalIndex {
	return i&^localXMask | (i-1<<localXOffset)&localXMask
}

func (i LocalIndex) IncY() LocalIndex {
	return i&^localYMask | (i+1<<localYOffset)&localYMask
}

func (i LocalIndex) DecY() LocalIndex {
	return i&^localYMask | (i-1<<localYOffset)&localYMask
}

func (i LocalIndex) IncZ() LocalIndex {
	return i&^localZMask | (i+1<<localZOffset)&localZMask
}

func (i LocalIndex) DecZ() LocalIndex {
	return i&^localZMask | (i-1<<localZOffset)&localZMask
}

// Step moves the index one section in the given direction. The returned
// boolean is true when the step crossed the region boundary, in which case the
// index refers to a section of the neighbouring region.
func (i LocalIndex) Step(d Direction) (LocalIndex, bool) {
	switch d {
	case NegX:
		n := i.DecX()
		return n, n > i
	case PosX:
		n := i.IncX()
		return n, n < i
	case NegY:
		n := i.DecY()
		return n, n > i
	case PosY:
		n := i.IncY()
		return n, n < i
	case NegZ:
		n := i.DecZ()
		return n, n > i
	default:
		n := i.IncZ()
		return n, n < i
	}
}

// Global returns the world coordinates of the section at this index in the
// region with the given origin.
func (i LocalIndex) Global(origin SectionPos) SectionPos {
	return SectionPos{
		X: origin.X + i.X(),
		Y: origin.Y + i.Y(),
		Z: origin.Z + i.Z(),
	}
}
