package world

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/builder"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/scheduler"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultCloneCacheSize = 512
	DefaultCloneMaxAge    = 5 * time.Second
)

type clonedSection struct {
	blocks    *[sectionBlocks]Block
	createdAt time.Time
}

// Tasks creates the build tasks of sections. It keeps recently cloned
// sections in a cache so that neighbouring builds share their copies.
//
// Tasks are created on the frame thread.
type Tasks struct {
	store  *Store
	maxAge time.Duration
	clones *lru.Cache[int64, clonedSection]
	now    func() time.Time
}

// NewTasks creates a task factory reading blocks from the given store.
func NewTasks(store *Store, cacheSize int, maxAge time.Duration) (*Tasks, error) {
	clones, err := lru.New[int64, clonedSection](cacheSize)
	if err != nil {
		return nil, errors.New("creating section clone cache failed").
			WithTag("size", cacheSize).
			Wrap(err)
	}

	return &Tasks{
		store:  store,
		maxAge: maxAge,
		clones: clones,
		now:    time.Now,
	}, nil
}

// CreateRebuildTask snapshots a section and its surroundings. It returns nil
// when the section only holds air.
func (t *Tasks) CreateRebuildTask(pos models.SectionPos, frame int32) builder.Task {
	center := t.clone(pos)
	if center == nil {
		return nil
	}

	s := &Snapshot{Pos: pos}

	for oy := int32(-1); oy <= 1; oy++ {
		for oz := int32(-1); oz <= 1; oz++ {
			for ox := int32(-1); ox <= 1; ox++ {
				blocks := center
				if ox != 0 || oy != 0 || oz != 0 {
					blocks = t.clone(pos.Add(ox, oy, oz))
				}
				if blocks == nil {
					continue
				}
				copyBorder(s, blocks, ox, oy, oz)
			}
		}
	}

	return &meshTask{snapshot: s, frame: frame}
}

// copyBorder copies into the snapshot the blocks of the section at the given
// offset that the snapshot covers.
func copyBorder(s *Snapshot, blocks *[sectionBlocks]Block, ox, oy, oz int32) {
	span := func(o int32) (int32, int32) {
		switch {
		case o < 0:
			return models.SectionSize - 1, models.SectionSize - 1
		case o > 0:
			return 0, 0
		default:
			return 0, models.SectionSize - 1
		}
	}

	x0, x1 := span(ox)
	y0, y1 := span(oy)
	z0, z1 := span(oz)

	for y := y0; y <= y1; y++ {
		for z := z0; z <= z1; z++ {
			for x := x0; x <= x1; x++ {
				b := blocks[blockIndex(x, y, z)]
				s.set(x+ox*models.SectionSize, y+oy*models.SectionSize, z+oz*models.SectionSize, b)
			}
		}
	}
}

func (t *Tasks) clone(pos models.SectionPos) *[sectionBlocks]Block {
	if c, ok := t.clones.Get(pos.Key()); ok {
		instrumentCloneCache(true)
		return c.blocks
	}
	instrumentCloneCache(false)

	blocks := t.store.clone(pos)
	t.clones.Add(pos.Key(), clonedSection{
		blocks:    blocks,
		createdAt: t.now(),
	})
	return blocks
}

// Invalidate drops the cached copy of a section after its blocks changed.
func (t *Tasks) Invalidate(pos models.SectionPos) {
	t.clones.Remove(pos.Key())
}

// InvalidateChunk drops the cached copies of every section of a column, as
// when it is loaded or unloaded.
func (t *Tasks) InvalidateChunk(x, z int32) {
	minY, maxY := t.store.Bounds()
	for y := minY; y <= maxY; y++ {
		t.Invalidate(models.NewSectionPos(x, y, z))
	}
}

// Cleanup drops the cached copies older than the maximum age.
func (t *Tasks) Cleanup() {
	now := t.now()
	for _, key := range t.clones.Keys() {
		c, ok := t.clones.Peek(key)
		if ok && now.Sub(c.createdAt) > t.maxAge {
			t.clones.Remove(key)
		}
	}
}

// CachedSections returns the number of cached section copies.
func (t *Tasks) CachedSections() int {
	return t.clones.Len()
}

type meshTask struct {
	snapshot *Snapshot
	frame    int32
}

func (t *meshTask) Pos() models.SectionPos {
	return t.snapshot.Pos
}

func (t *meshTask) Execute(ctx context.Context, token *scheduler.CancellationToken) (*builder.BuildOutput, error) {
	return Mesh(ctx, t.snapshot, t.frame, token)
}
