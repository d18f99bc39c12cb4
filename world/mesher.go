package world

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/builder"
	"github.com/aukilabs/sowilo/graph"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/scheduler"
)

const (
	snapshotSize   = models.SectionSize + 2
	snapshotVolume = snapshotSize * snapshotSize * snapshotSize

	// Sections with fewer opaque blocks than this are considered fully
	// connected without a flood fill.
	minOpaqueForFloodFill = 256
)

// Snapshot is a copy of a section and of the blocks that surround it, taken
// on the frame thread and meshed on a worker.
type Snapshot struct {
	Pos    models.SectionPos
	blocks [snapshotVolume]Block
}

func snapshotIndex(x, y, z int32) int {
	return int(((y+1)*snapshotSize+(z+1))*snapshotSize + (x + 1))
}

// Block returns a block of the snapshot. Coordinates are local to the section
// and range from -1 to 16.
func (s *Snapshot) Block(x, y, z int32) Block {
	return s.blocks[snapshotIndex(x, y, z)]
}

func (s *Snapshot) set(x, y, z int32, b Block) {
	s.blocks[snapshotIndex(x, y, z)] = b
}

// Mesh builds a section: it emits its visible faces, finds its block
// entities and sprites, and computes the visibility between its faces.
func Mesh(ctx context.Context, s *Snapshot, frame int32, token *scheduler.CancellationToken) (*builder.BuildOutput, error) {
	info := &builder.SectionInfo{}
	bx, by, bz := s.Pos.MinBlock()

	var (
		mesh    []byte
		scratch = make([]byte, 0, 16)
		opaque  int
		sprites = make(map[string]struct{})
	)

	for y := int32(0); y < models.SectionSize; y++ {
		if token.IsCancelled() || ctx.Err() != nil {
			return nil, errors.New("section build cancelled").
				WithType(builder.ErrTypeCancelled).
				WithTag("section", s.Pos.String())
		}

		for z := int32(0); z < models.SectionSize; z++ {
			for x := int32(0); x < models.SectionSize; x++ {
				b := s.Block(x, y, z)
				if b == Air {
					continue
				}
				if b.IsOpaque() {
					opaque++
				}

				for d := models.Direction(0); d < models.DirectionCount; d++ {
					dx, dy, dz := d.Offset()
					if b.culls(s.Block(x+dx, y+dy, z+dz)) {
						continue
					}

					mesh, scratch = appendQuad(mesh, scratch, Quad{
						X:     uint8(x),
						Y:     uint8(y),
						Z:     uint8(z),
						Face:  d,
						Block: b,
					})
					info.Flags |= graph.FlagHasBlockGeometry
				}

				if b.HasBlockEntity() {
					entity := builder.BlockEntity{X: bx + x, Y: by + y, Z: bz + z, Kind: b.String()}
					if b.IsGlobalBlockEntity() {
						info.GlobalBlockEntities = append(info.GlobalBlockEntities, entity)
					} else {
						info.CulledBlockEntities = append(info.CulledBlockEntities, entity)
					}
					info.Flags |= graph.FlagHasBlockEntities
				}

				if sprite := b.Sprite(); sprite != "" {
					if _, ok := sprites[sprite]; !ok {
						sprites[sprite] = struct{}{}
						info.AnimatedSprites = append(info.AnimatedSprites, sprite)
					}
					info.Flags |= graph.FlagHasAnimatedSprites
				}
			}
		}
	}

	if opaque < minOpaqueForFloodFill {
		info.Connections = graph.ConnectionsAll()
	} else {
		info.Connections = Connectivity(s)
	}

	return &builder.BuildOutput{
		Pos:       s.Pos,
		Info:      info,
		Mesh:      mesh,
		BuildTime: frame,
	}, nil
}

// Connectivity flood fills the non-opaque blocks of a section and connects
// every pair of faces touched by the same open area.
func Connectivity(s *Snapshot) graph.Connections {
	const size = models.SectionSize

	var (
		visited     [sectionBlocks]bool
		stack       []int32
		connections graph.Connections
	)

	for start := int32(0); start < sectionBlocks; start++ {
		sx, sy, sz := start&sectionMask, start>>8, start>>4&sectionMask
		if visited[start] || s.Block(sx, sy, sz).IsOpaque() {
			continue
		}

		var faces models.DirectionSet
		visited[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y, z := i&sectionMask, i>>8, i>>4&sectionMask

			for d := models.Direction(0); d < models.DirectionCount; d++ {
				dx, dy, dz := d.Offset()
				nx, ny, nz := x+dx, y+dy, z+dz

				if nx < 0 || ny < 0 || nz < 0 || nx >= size || ny >= size || nz >= size {
					faces = faces.With(d)
					continue
				}

				n := ny<<8 | nz<<4 | nx
				if visited[n] || s.Block(nx, ny, nz).IsOpaque() {
					continue
				}
				visited[n] = true
				stack = append(stack, n)
			}
		}

		for a := models.Direction(0); a < models.DirectionCount; a++ {
			if !faces.Contains(a) {
				continue
			}
			for b := a; b < models.DirectionCount; b++ {
				if faces.Contains(b) {
					connections = connections.SetConnected(a, b)
				}
			}
		}
	}

	return connections
}
