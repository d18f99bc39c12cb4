package region

import (
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/models"
)

const (
	ErrTypeResourcesDeleted = "region-resources-deleted"
	ErrTypeArenaFull        = "region-arena-full"
)

// Manager tracks the regions that contain at least one section.
type Manager struct {
	// The allocator used to create region device resources. Regions have no
	// resources when nil.
	Allocator ResourceAllocator

	regions map[models.RegionKey]*Region
}

func (m *Manager) init() {
	if m.regions == nil {
		m.regions = make(map[models.RegionKey]*Region)
	}
}

// Region returns the region with the given key, or nil.
func (m *Manager) Region(key models.RegionKey) *Region {
	return m.regions[key]
}

// RegionForSection returns the region containing the given section, or nil.
func (m *Manager) RegionForSection(x, y, z int32) *Region {
	return m.regions[models.RegionKeyFromSection(x, y, z)]
}

// AddSection registers a section, creating its region when it is the first
// one. It returns the region and whether the section was not already present.
func (m *Manager) AddSection(pos models.SectionPos) (*Region, bool) {
	m.init()

	key := pos.Region()
	r, ok := m.regions[key]
	if !ok {
		r = newRegion(key)
		m.allocate(r)
		m.regions[key] = r
		instrumentRegionCreated()
	}

	return r, r.addSection(pos.LocalIndex())
}

// RemoveSection unregisters a section and clears its graph data. The region is
// destroyed along with its resources when its last section is removed.
func (m *Manager) RemoveSection(pos models.SectionPos) bool {
	key := pos.Region()
	r, ok := m.regions[key]
	if !ok {
		return false
	}

	if !r.removeSection(pos.LocalIndex()) {
		return false
	}

	if r.IsEmpty() {
		m.deleteRegion(r)
	}
	return true
}

// Regions returns the loaded regions sorted by key.
func (m *Manager) Regions() []*Region {
	regions := make([]*Region, 0, len(m.regions))
	for _, r := range m.regions {
		regions = append(regions, r)
	}

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].key < regions[j].key
	})
	return regions
}

func (m *Manager) Len() int {
	return len(m.regions)
}

// UsedBytes returns the number of resource bytes used by all the regions.
func (m *Manager) UsedBytes() int64 {
	var used int64
	for _, r := range m.regions {
		if r.resources != nil {
			used += r.resources.UsedBytes()
		}
	}
	return used
}

// Delete destroys every region. It is safe to call several times.
func (m *Manager) Delete() {
	for _, r := range m.regions {
		m.deleteRegion(r)
	}
}

func (m *Manager) allocate(r *Region) {
	if m.Allocator == nil {
		return
	}

	resources, err := m.Allocator.Allocate(r.key)
	if err != nil {
		logs.WithTag("region", r.key.String()).
			Warn(errors.New("allocating region resources failed").Wrap(err))
		return
	}
	r.resources = resources
}

func (m *Manager) deleteRegion(r *Region) {
	if r.resources != nil {
		r.resources.Delete()
		r.resources = nil
	}
	delete(m.regions, r.key)
	instrumentRegionDeleted()
}
