package occlusion

import (
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/region"
)

// SearchQueue is the traversal queue of a single region. Each local index is
// enqueued at most once per search; enqueuing it again only merges the
// incoming directions.
type SearchQueue struct {
	key    models.RegionKey
	region *region.Region

	queue    [models.RegionSize]models.LocalIndex
	incoming [models.RegionSize]models.DirectionSet
	size     int
	cursor   int

	neighbors [models.DirectionCount]*SearchQueue
	linked    bool
	scheduled bool
}

func newSearchQueue(key models.RegionKey, r *region.Region) *SearchQueue {
	return &SearchQueue{
		key:    key,
		region: r,
	}
}

func (q *SearchQueue) Key() models.RegionKey {
	return q.key
}

// Add enqueues a section with the given incoming directions.
func (q *SearchQueue) Add(index models.LocalIndex, directions models.DirectionSet) {
	prev := q.incoming[index]
	q.incoming[index] = prev | directions

	if prev == models.DirectionsNone {
		q.queue[q.size] = index
		q.size++
	}
}

// Len returns the number of distinct sections that were enqueued.
func (q *SearchQueue) Len() int {
	return q.size
}

// IsEmpty reports whether nothing was ever enqueued.
func (q *SearchQueue) IsEmpty() bool {
	return q.size == 0
}

// NodeIndex returns the i-th enqueued section.
func (q *SearchQueue) NodeIndex(i int) models.LocalIndex {
	return q.queue[i]
}

// IncomingDirections returns the union of the directions a section was
// entered from.
func (q *SearchQueue) IncomingDirections(index models.LocalIndex) models.DirectionSet {
	return q.incoming[index]
}

func (q *SearchQueue) pending() bool {
	return q.cursor < q.size
}

func (q *SearchQueue) pop() (models.LocalIndex, bool) {
	if !q.pending() {
		return 0, false
	}
	index := q.queue[q.cursor]
	q.cursor++
	return index, true
}

// dispatchQueue hands out region queues in creation order.
type dispatchQueue struct {
	regions Regions
	queues  map[models.RegionKey]*SearchQueue
	fifo    []*SearchQueue
}

func newDispatchQueue(regions Regions) *dispatchQueue {
	return &dispatchQueue{
		regions: regions,
		queues:  make(map[models.RegionKey]*SearchQueue),
	}
}

// get returns the queue of a region, creating and scheduling it when needed.
func (d *dispatchQueue) get(key models.RegionKey) *SearchQueue {
	if q, ok := d.queues[key]; ok {
		return q
	}

	q := newSearchQueue(key, d.regions.Region(key))
	d.queues[key] = q
	d.schedule(q)
	return q
}

func (d *dispatchQueue) schedule(q *SearchQueue) {
	if q.scheduled {
		return
	}
	q.scheduled = true
	d.fifo = append(d.fifo, q)
}

// next pops the next queue with pending sections and links its neighbours.
func (d *dispatchQueue) next() *SearchQueue {
	for len(d.fifo) > 0 {
		q := d.fifo[0]
		d.fifo[0] = nil
		d.fifo = d.fifo[1:]
		q.scheduled = false

		if !q.pending() {
			continue
		}

		if !q.linked {
			for dir := models.Direction(0); dir < models.DirectionCount; dir++ {
				q.neighbors[dir] = d.get(q.key.Offset(dir))
			}
			q.linked = true
		}
		return q
	}
	return nil
}

// requeue schedules again the neighbours of a traversed region that received
// sections after they were dispatched.
func (d *dispatchQueue) requeue(q *SearchQueue) {
	for _, n := range q.neighbors {
		if n != nil && n.pending() {
			d.schedule(n)
		}
	}
}
