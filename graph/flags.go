package graph

// NodeFlags describes what a built section contains.
type NodeFlags uint8

const (
	FlagLoaded NodeFlags = 1 << iota
	FlagHasBlockGeometry
	FlagHasBlockEntities
	FlagHasAnimatedSprites

	FlagsNone NodeFlags = 0

	flagsRenderData = FlagHasBlockGeometry | FlagHasBlockEntities | FlagHasAnimatedSprites
)

func (f NodeFlags) Contains(flag NodeFlags) bool {
	return f&flag == flag
}

// HasRenderData reports whether the section has anything to draw.
func (f NodeFlags) HasRenderData() bool {
	return f&flagsRenderData != 0
}
