package models

// Direction is one of the six axis-aligned directions a section can be left
// or entered through.
type Direction uint8

const (
	NegX Direction = iota
	PosX
	NegY
	PosY
	NegZ
	PosZ
)

// DirectionCount is the number of axis-aligned directions.
const DirectionCount = 6

var directionNames = [DirectionCount]string{"-x", "+x", "-y", "+y", "-z", "+z"}

var directionOffsets = [DirectionCount][3]int32{
	NegX: {-1, 0, 0},
	PosX: {1, 0, 0},
	NegY: {0, -1, 0},
	PosY: {0, 1, 0},
	NegZ: {0, 0, -1},
	PosZ: {0, 0, 1},
}

// Opposite returns the direction pointing the other way on the same axis.
func (d Direction) Opposite() Direction {
	return d ^ 1
}

// Bit returns the direction as a single-element set.
func (d Direction) Bit() DirectionSet {
	return 1 << d
}

// Offset returns the unit step of the direction.
func (d Direction) Offset() (x, y, z int32) {
	o := directionOffsets[d]
	return o[0], o[1], o[2]
}

func (d Direction) String() string {
	if d >= DirectionCount {
		return "invalid"
	}
	return directionNames[d]
}

// DirectionSet is a 6-bit set of directions.
type DirectionSet uint8

const (
	DirectionsNone DirectionSet = 0b000000
	DirectionsAll  DirectionSet = 0b111111
)

func (s DirectionSet) Contains(d Direction) bool {
	return s&(1<<d) != 0
}

func (s DirectionSet) With(d Direction) DirectionSet {
	return s | d.Bit()
}

func (s DirectionSet) IsEmpty() bool {
	return s == DirectionsNone
}
