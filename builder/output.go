package builder

import (
	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
)

// BlockEntity is a block with extra render state, such as a chest or a
// sign.
type BlockEntity struct {
	X    int32  `json:"x"`
	Y    int32  `json:"y"`
	Z    int32  `json:"z"`
	Kind string `json:"kind"`
}

// SectionInfo describes what a build found in a section.
type SectionInfo struct {
	Flags       graph.NodeFlags
	Connections graph.Connections

	// Block entities that must be drawn even when the section is culled.
	GlobalBlockEntities []BlockEntity

	// Block entities drawn only when the section is visible.
	CulledBlockEntities []BlockEntity

	AnimatedSprites []string
}

// EmptyInfo returns the info of a section without any block: it draws
// nothing and every face sees every other face.
func EmptyInfo() *SectionInfo {
	return &SectionInfo{
		Flags:       graph.FlagLoaded,
		Connections: graph.ConnectionsAll(),
	}
}

// BuildOutput is the result of a section build.
type BuildOutput struct {
	Pos  models.SectionPos
	Info *SectionInfo

	// The encoded geometry of the section, nil when it has none.
	Mesh []byte

	// The frame the build was submitted at.
	BuildTime int32
}

// Result is delivered to the callback of a finished task.
type Result struct {
	Output *BuildOutput
	Err    error
}
