package scheduler

import (
	"slices"

	"github.com/aukilabs/sowilo/models"
)

// Counting sort is used while the largest distance stays within this factor
// of the number of entries.
const countingSortFactor = 4

type queueSlot struct {
	key  int64
	live bool
}

// Queue is the deduplicated set of sections pending a build of one priority
// class. It remembers insertion order so that sections at the same distance
// are always handed out in the same order.
type Queue struct {
	positions map[int64]int
	slots     []queueSlot
	removed   int
}

func NewQueue() *Queue {
	return &Queue{
		positions: make(map[int64]int),
	}
}

// Add adds a section key. It returns false when the key was already pending.
func (q *Queue) Add(key int64) bool {
	if _, ok := q.positions[key]; ok {
		return false
	}

	q.positions[key] = len(q.slots)
	q.slots = append(q.slots, queueSlot{key: key, live: true})
	return true
}

// Remove removes a section key. It returns false when the key was not pending.
func (q *Queue) Remove(key int64) bool {
	i, ok := q.positions[key]
	if !ok {
		return false
	}

	delete(q.positions, key)
	q.slots[i].live = false
	q.removed++

	if q.removed > len(q.slots)/2 {
		q.compact()
	}
	return true
}

func (q *Queue) Contains(key int64) bool {
	_, ok := q.positions[key]
	return ok
}

func (q *Queue) Len() int {
	return len(q.positions)
}

func (q *Queue) Clear() {
	clear(q.positions)
	q.slots = q.slots[:0]
	q.removed = 0
}

func (q *Queue) compact() {
	slots := q.slots[:0]
	for _, s := range q.slots {
		if !s.live {
			continue
		}
		q.positions[s.key] = len(slots)
		slots = append(slots, s)
	}

	clear(q.slots[len(slots):])
	q.slots = slots
	q.removed = 0
}

// SortedEntries returns the pending keys ordered by Chebyshev distance from
// the given section, nearest first. The returned iterator is a snapshot:
// changing the queue does not affect it.
func (q *Queue) SortedEntries(origin models.SectionPos) *Iterator {
	keys := make([]int64, 0, q.Len())
	distances := make([]int32, 0, q.Len())

	var maxDistance int32
	for _, s := range q.slots {
		if !s.live {
			continue
		}

		d := origin.ChebyshevDistance(models.SectionPosFromKey(s.key))
		keys = append(keys, s.key)
		distances = append(distances, d)
		maxDistance = max(maxDistance, d)
	}

	if int(maxDistance) <= countingSortFactor*len(keys)+models.RegionSize {
		return &Iterator{keys: countingSort(keys, distances, maxDistance)}
	}
	return &Iterator{keys: stableSort(keys, distances)}
}

func countingSort(keys []int64, distances []int32, maxDistance int32) []int64 {
	offsets := make([]int, maxDistance+2)
	for _, d := range distances {
		offsets[d+1]++
	}
	for i := 1; i < len(offsets); i++ {
		offsets[i] += offsets[i-1]
	}

	sorted := make([]int64, len(keys))
	for i, d := range distances {
		sorted[offsets[d]] = keys[i]
		offsets[d]++
	}
	return sorted
}

func stableSort(keys []int64, distances []int32) []int64 {
	indices := make([]int, len(keys))
	for i := range indices {
		indices[i] = i
	}

	slices.SortStableFunc(indices, func(a, b int) int {
		return int(distances[a]) - int(distances[b])
	})

	sorted := make([]int64, len(keys))
	for i, index := range indices {
		sorted[i] = keys[index]
	}
	return sorted
}

// Iterator yields section keys in order.
type Iterator struct {
	keys []int64
	next int
}

// Next returns the next key, or false when the iteration is over.
func (it *Iterator) Next() (int64, bool) {
	if it.next >= len(it.keys) {
		return 0, false
	}
	key := it.keys[it.next]
	it.next++
	return key, true
}

// Remaining returns the number of keys not yet returned by Next.
func (it *Iterator) Remaining() int {
	return len(it.keys) - it.next
}
