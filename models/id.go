package models

import (
	"sort"
	"sync"
	"sync/atomic"
)

// A sequential id generator.
type SequentialIDGenerator struct {
	mutex       sync.Mutex
	currentID   uint32
	reusableIDs []uint32
}

// New returns a sequental id. Reusable ids are handed out smallest first so
// that subscription order stays deterministic between runs.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if len(g.reusableIDs) != 0 {
		id := g.reusableIDs[0]
		g.reusableIDs = g.reusableIDs[1:]
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse marks the given id as reusable. Reusable ids are returned in priority
// when using New.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	i := sort.Search(len(g.reusableIDs), func(i int) bool {
		return g.reusableIDs[i] >= id
	})
	if i < len(g.reusableIDs) && g.reusableIDs[i] == id {
		return
	}

	g.reusableIDs = append(g.reusableIDs, 0)
	copy(g.reusableIDs[i+1:], g.reusableIDs[i:])
	g.reusableIDs[i] = id
}

// FrameCounter hands out monotonically increasing frame ids. A frame id is
// never reused, which is what render lists rely on to detect stale state.
type FrameCounter struct {
	current atomic.Int32
}

// Next advances the counter and returns the new frame id.
func (c *FrameCounter) Next() int32 {
	return c.current.Add(1)
}

// Current returns the last frame id handed out.
func (c *FrameCounter) Current() int32 {
	return c.current.Load()
}
