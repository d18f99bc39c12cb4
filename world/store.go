package world

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/models"
)

const (
	ErrTypeChunkNotLoaded = "world-chunk-not-loaded"
	ErrTypeOutOfBounds    = "world-out-of-bounds"
)

// Config configures a world store.
type Config struct {
	Seed uint64 `yaml:"seed"`

	// The lowest and highest section Y coordinates, both inclusive.
	MinSectionY int32 `yaml:"min_section_y"`
	MaxSectionY int32 `yaml:"max_section_y"`

	// The block height around which the surface varies.
	BaseHeight int32 `yaml:"base_height"`
}

// DefaultConfig returns a world of 8 sections high with the surface around
// block 64.
func DefaultConfig() Config {
	return Config{
		Seed:        1,
		MinSectionY: 0,
		MaxSectionY: 7,
		BaseHeight:  64,
	}
}

type columnKey struct {
	x, z int32
}

// Store holds the blocks of the loaded chunk columns. It is safe for
// concurrent use.
type Store struct {
	minY    int32
	maxY    int32
	terrain Terrain

	mutex   sync.RWMutex
	columns map[columnKey]*column
}

// NewStore creates an empty store. Columns are generated when loaded.
func NewStore(conf Config) *Store {
	if conf.MaxSectionY < conf.MinSectionY {
		conf.MaxSectionY = conf.MinSectionY
	}

	return &Store{
		minY: conf.MinSectionY,
		maxY: conf.MaxSectionY,
		terrain: Terrain{
			Seed:       conf.Seed,
			BaseHeight: conf.BaseHeight,
			MinBlockY:  conf.MinSectionY << models.SectionSizeShift,
			MaxBlockY:  (conf.MaxSectionY+1)<<models.SectionSizeShift - 1,
		},
		columns: make(map[columnKey]*column),
	}
}

// Bounds returns the lowest and highest section Y coordinates, both
// inclusive.
func (s *Store) Bounds() (int32, int32) {
	return s.minY, s.maxY
}

func (s *Store) Terrain() Terrain {
	return s.terrain
}

// LoadChunk generates the column at the given chunk coordinates. It returns
// false when the column is already loaded.
func (s *Store) LoadChunk(x, z int32) bool {
	key := columnKey{x: x, z: z}

	s.mutex.RLock()
	_, loaded := s.columns[key]
	s.mutex.RUnlock()
	if loaded {
		return false
	}

	c := s.terrain.generate(x, z, s.minY, s.maxY)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, loaded := s.columns[key]; loaded {
		return false
	}
	s.columns[key] = c
	return true
}

// UnloadChunk forgets the column at the given chunk coordinates. It returns
// false when the column was not loaded.
func (s *Store) UnloadChunk(x, z int32) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := columnKey{x: x, z: z}
	if _, ok := s.columns[key]; !ok {
		return false
	}
	delete(s.columns, key)
	return true
}

func (s *Store) IsChunkLoaded(x, z int32) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, ok := s.columns[columnKey{x: x, z: z}]
	return ok
}

// LoadedChunks returns the number of loaded columns.
func (s *Store) LoadedChunks() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.columns)
}

// IsSectionEmpty reports whether a section only holds air. Sections that are
// not loaded are empty.
func (s *Store) IsSectionEmpty(pos models.SectionPos) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.section(pos).isEmpty()
}

// Block returns the block at the given coordinates. Blocks that are not
// loaded are air.
func (s *Store) Block(x, y, z int32) Block {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.block(x, y, z)
}

func (s *Store) IsOpaqueFullCube(x, y, z int32) bool {
	return s.Block(x, y, z).IsOpaque()
}

// SetBlock replaces a block and returns the section that contains it.
func (s *Store) SetBlock(x, y, z int32, b Block) (models.SectionPos, error) {
	pos := models.SectionPosFromBlock(x, y, z)

	if pos.Y < s.minY || pos.Y > s.maxY {
		return pos, errors.New("block is outside the world height").
			WithType(ErrTypeOutOfBounds).
			WithTag("x", x).
			WithTag("y", y).
			WithTag("z", z)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.columns[columnKey{x: pos.X, z: pos.Z}]
	if !ok {
		return pos, errors.New("chunk is not loaded").
			WithType(ErrTypeChunkNotLoaded).
			WithTag("chunk_x", pos.X).
			WithTag("chunk_z", pos.Z)
	}

	i := pos.Y - s.minY
	if c.sections[i] == nil {
		if b == Air {
			return pos, nil
		}
		c.sections[i] = &section{}
	}
	c.sections[i].set(x, y, z, b)
	return pos, nil
}

// HighestBlock returns the Y coordinate of the highest non-air block of a
// column, or false when the column is not loaded or only holds air.
func (s *Store) HighestBlock(x, z int32) (int32, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	top := (s.maxY+1)<<models.SectionSizeShift - 1
	bottom := s.minY << models.SectionSizeShift
	for y := top; y >= bottom; y-- {
		if s.block(x, y, z) != Air {
			return y, true
		}
	}
	return 0, false
}

// clone copies the blocks of a section. It returns nil when the section only
// holds air or is not loaded.
func (s *Store) clone(pos models.SectionPos) *[sectionBlocks]Block {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sec := s.section(pos)
	if sec.isEmpty() {
		return nil
	}

	blocks := sec.blocks
	return &blocks
}

func (s *Store) section(pos models.SectionPos) *section {
	if pos.Y < s.minY || pos.Y > s.maxY {
		return nil
	}

	c, ok := s.columns[columnKey{x: pos.X, z: pos.Z}]
	if !ok {
		return nil
	}
	return c.sections[pos.Y-s.minY]
}

func (s *Store) block(x, y, z int32) Block {
	sec := s.section(models.SectionPosFromBlock(x, y, z))
	if sec == nil {
		return Air
	}
	return sec.get(x, y, z)
}
