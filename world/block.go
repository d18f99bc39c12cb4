package world

// Block is the kind of a block.
type Block uint8

const (
	Air Block = iota
	Stone
	Dirt
	Grass
	Sand
	Log
	Leaves
	Glass
	Lava
	Chest
	Beacon

	blockCount
)

var blockNames = [blockCount]string{
	Air:    "air",
	Stone:  "stone",
	Dirt:   "dirt",
	Grass:  "grass",
	Sand:   "sand",
	Log:    "log",
	Leaves: "leaves",
	Glass:  "glass",
	Lava:   "lava",
	Chest:  "chest",
	Beacon: "beacon",
}

func (b Block) String() string {
	if b >= blockCount {
		return "unknown"
	}
	return blockNames[b]
}

// IsOpaque reports whether the block is a full cube that hides what is
// behind it.
func (b Block) IsOpaque() bool {
	switch b {
	case Stone, Dirt, Grass, Sand, Log:
		return true
	default:
		return false
	}
}

// HasBlockEntity reports whether the block carries extra render state.
func (b Block) HasBlockEntity() bool {
	return b == Chest || b == Beacon
}

// IsGlobalBlockEntity reports whether the block entity must be drawn even
// when its section is culled, like a beacon beam.
func (b Block) IsGlobalBlockEntity() bool {
	return b == Beacon
}

// Sprite returns the animated sprite of the block, or an empty string.
func (b Block) Sprite() string {
	if b == Lava {
		return "lava_still"
	}
	return ""
}

// culls reports whether a face of the block is hidden by the given neighbour.
func (b Block) culls(neighbor Block) bool {
	if neighbor.IsOpaque() {
		return true
	}
	// Faces between blocks of the same translucent kind are not drawn.
	return b == neighbor && (b == Glass || b == Leaves || b == Lava)
}
