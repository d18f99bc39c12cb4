package models

import "math"

// Camera is the observer position in world space.
type Camera struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SectionPos returns the position of the section the camera is in.
func (c Camera) SectionPos() SectionPos {
	return SectionPosFromWorld(c.X, c.Y, c.Z)
}

// BlockPos returns the coordinates of the block the camera is in.
func (c Camera) BlockPos() (x, y, z int32) {
	return floorInt32(c.X), floorInt32(c.Y), floorInt32(c.Z)
}

func floorInt32(v float64) int32 {
	return int32(math.Floor(v))
}
