package world

import (
	"encoding/binary"
	"math"

	"github.com/aukilabs/sowilo/models"
	"github.com/cespare/xxhash/v2"
)

const (
	terrainScale     = 48.0
	terrainAmplitude = 20.0
	caveScale        = 12.0
	caveThreshold    = 0.74
	lavaDepth        = 12
)

// Terrain generates deterministic block columns from a seed.
type Terrain struct {
	Seed uint64

	// The block height around which the surface varies.
	BaseHeight int32

	// The lowest and highest block Y coordinates, both inclusive.
	MinBlockY int32
	MaxBlockY int32
}

// HeightAt returns the Y coordinate of the surface block of a column.
func (t Terrain) HeightAt(x, z int32) int32 {
	n := 0.0
	amplitude := 1.0
	scale := terrainScale
	for octave := uint64(0); octave < 3; octave++ {
		n += amplitude * t.noise2(octave, float64(x)/scale, float64(z)/scale)
		amplitude /= 2
		scale /= 2
	}

	h := t.BaseHeight + int32(math.Round((n-0.875)*terrainAmplitude))
	return min(max(h, t.MinBlockY+1), t.MaxBlockY-8)
}

// Block returns the generated block at the given coordinates, ignoring
// decorations.
func (t Terrain) Block(x, y, z, height int32) Block {
	switch {
	case y > height || y < t.MinBlockY:
		return Air
	case y > t.MinBlockY+2 && y < height-3 && t.isCave(x, y, z):
		if y < t.MinBlockY+lavaDepth {
			return Lava
		}
		return Air
	case y == height && height <= t.BaseHeight-6:
		return Sand
	case y == height:
		return Grass
	case y > height-4:
		return Dirt
	default:
		return Stone
	}
}

func (t Terrain) isCave(x, y, z int32) bool {
	return t.noise3(float64(x)/caveScale, float64(y)/caveScale, float64(z)/caveScale) > caveThreshold
}

// generate fills the sections of the column at the given chunk coordinates.
// Sections are ordered from the lowest to the highest.
func (t Terrain) generate(cx, cz int32, minY, maxY int32) *column {
	c := &column{sections: make([]*section, maxY-minY+1)}

	set := func(x, y, z int32, b Block) {
		if b == Air {
			return
		}
		sy := y>>models.SectionSizeShift - minY
		if sy < 0 || int(sy) >= len(c.sections) {
			return
		}
		if c.sections[sy] == nil {
			c.sections[sy] = &section{}
		}
		c.sections[sy].set(x, y, z, b)
	}

	x0 := cx << models.SectionSizeShift
	z0 := cz << models.SectionSizeShift

	for lx := int32(0); lx < models.SectionSize; lx++ {
		for lz := int32(0); lz < models.SectionSize; lz++ {
			x, z := x0+lx, z0+lz
			height := t.HeightAt(x, z)

			for y := t.MinBlockY; y <= height; y++ {
				set(x, y, z, t.Block(x, y, z, height))
			}

			// Decorations stay inside the column so that generation never
			// depends on the neighbours.
			if lx < 2 || lx > 13 || lz < 2 || lz > 13 || height <= t.BaseHeight-6 {
				continue
			}

			switch h := t.hash(4, x, 0, z); {
			case h%211 == 0:
				t.tree(set, x, height+1, z)
			case h%1499 == 0:
				set(x, height+1, z, Chest)
			case h%7919 == 0:
				set(x, height+1, z, Beacon)
				set(x, height+2, z, Glass)
			}
		}
	}

	instrumentGeneratedColumn()
	return c
}

func (t Terrain) tree(set func(x, y, z int32, b Block), x, y, z int32) {
	const trunk = 4

	for dy := int32(0); dy < trunk; dy++ {
		set(x, y+dy, z, Log)
	}
	for dx := int32(-2); dx <= 2; dx++ {
		for dz := int32(-2); dz <= 2; dz++ {
			for dy := int32(trunk - 1); dy <= trunk; dy++ {
				if dx == 0 && dz == 0 && dy < trunk {
					continue
				}
				set(x+dx, y+dy, z+dz, Leaves)
			}
		}
	}
	set(x, y+trunk+1, z, Leaves)
}

func (t Terrain) hash(salt uint64, x, y, z int32) uint64 {
	var b [20]byte
	binary.LittleEndian.PutUint64(b[0:], t.Seed^salt*0x9e3779b97f4a7c15)
	binary.LittleEndian.PutUint32(b[8:], uint32(x))
	binary.LittleEndian.PutUint32(b[12:], uint32(y))
	binary.LittleEndian.PutUint32(b[16:], uint32(z))
	return xxhash.Sum64(b[:])
}

func (t Terrain) lattice(salt uint64, x, y, z int32) float64 {
	return float64(t.hash(salt, x, y, z)>>11) / (1 << 53)
}

// noise2 returns smoothed value noise in [0, 1).
func (t Terrain) noise2(salt uint64, x, z float64) float64 {
	x0, z0 := math.Floor(x), math.Floor(z)
	fx, fz := smoothstep(x-x0), smoothstep(z-z0)
	ix, iz := int32(x0), int32(z0)

	a := lerp(t.lattice(salt, ix, 0, iz), t.lattice(salt, ix+1, 0, iz), fx)
	b := lerp(t.lattice(salt, ix, 0, iz+1), t.lattice(salt, ix+1, 0, iz+1), fx)
	return lerp(a, b, fz)
}

func (t Terrain) noise3(x, y, z float64) float64 {
	const salt = 3

	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	fx, fy, fz := smoothstep(x-x0), smoothstep(y-y0), smoothstep(z-z0)
	ix, iy, iz := int32(x0), int32(y0), int32(z0)

	plane := func(y int32) float64 {
		a := lerp(t.lattice(salt, ix, y, iz), t.lattice(salt, ix+1, y, iz), fx)
		b := lerp(t.lattice(salt, ix, y, iz+1), t.lattice(salt, ix+1, y, iz+1), fx)
		return lerp(a, b, fz)
	}
	return lerp(plane(iy), plane(iy+1), fy)
}

func smoothstep(v float64) float64 {
	return v * v * (3 - 2*v)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
