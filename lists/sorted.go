package lists

import (
	"encoding/binary"

	"github.com/aukilabs/sowilo/region"
	"github.com/cespare/xxhash/v2"
)

// SortedRenderLists holds the region render lists of a frame, front to back.
type SortedRenderLists struct {
	lists []*region.RenderList
}

// Empty returns render lists without any region.
func Empty() *SortedRenderLists {
	return &SortedRenderLists{}
}

func (s *SortedRenderLists) Len() int {
	return len(s.lists)
}

func (s *SortedRenderLists) IsEmpty() bool {
	return len(s.lists) == 0
}

// SectionCount returns the number of visible sections in all the lists.
func (s *SortedRenderLists) SectionCount() int {
	n := 0
	for _, l := range s.lists {
		n += l.Len()
	}
	return n
}

// Iterator returns an iterator over the lists. Reverse iteration goes back to
// front.
func (s *SortedRenderLists) Iterator(reverse bool) *Iterator {
	it := &Iterator{
		lists:   s.lists,
		reverse: reverse,
	}
	if reverse {
		it.next = len(s.lists) - 1
	}
	return it
}

// Digest returns a hash of the visible sections in traversal order. Two
// frames with the same digest drew the same sections in the same order.
func (s *SortedRenderLists) Digest() uint64 {
	h := xxhash.New()

	var buf [8]byte
	for _, l := range s.lists {
		binary.LittleEndian.PutUint64(buf[:], uint64(l.Region().Key()))
		h.Write(buf[:])

		for _, index := range l.Sections() {
			h.Write([]byte{byte(index)})
		}
	}
	return h.Sum64()
}

// Iterator walks render lists in one direction.
type Iterator struct {
	lists   []*region.RenderList
	reverse bool
	next    int
}

// Next returns the next list, or false when the iteration is over.
func (it *Iterator) Next() (*region.RenderList, bool) {
	if it.next < 0 || it.next >= len(it.lists) {
		return nil, false
	}

	l := it.lists[it.next]
	if it.reverse {
		it.next--
	} else {
		it.next++
	}
	return l, true
}
