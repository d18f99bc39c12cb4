package region

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/models"
)

// Resources are the device resources of a region, such as the arena holding
// the geometry of its sections.
type Resources interface {
	// Uploads the built geometry of a section, replacing any previous one.
	UploadMesh(index models.LocalIndex, payload []byte) error

	// Releases the geometry of a section.
	DeleteMesh(index models.LocalIndex)

	// Returns the number of bytes in use.
	UsedBytes() int64

	// Releases every resource.
	Delete()
}

// ResourceAllocator creates the device resources of regions.
type ResourceAllocator interface {
	Allocate(key models.RegionKey) (Resources, error)
}

// MemoryAllocator allocates region resources in host memory. It stands in for
// a device when no renderer is attached.
type MemoryAllocator struct {
	// The maximum number of bytes a region can hold. Zero means unlimited.
	RegionCapacity int64
}

func (a MemoryAllocator) Allocate(key models.RegionKey) (Resources, error) {
	return &memoryResources{
		key:      key,
		capacity: a.RegionCapacity,
		meshes:   make(map[models.LocalIndex][]byte),
	}, nil
}

type memoryResources struct {
	mutex    sync.Mutex
	key      models.RegionKey
	capacity int64
	used     int64
	meshes   map[models.LocalIndex][]byte
	deleted  bool
}

func (r *memoryResources) UploadMesh(index models.LocalIndex, payload []byte) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.deleted {
		return errors.New("region resources deleted").
			WithType(ErrTypeResourcesDeleted).
			WithTag("region", r.key.String())
	}

	used := r.used - int64(len(r.meshes[index])) + int64(len(payload))
	if r.capacity > 0 && used > r.capacity {
		return errors.New("region arena is full").
			WithType(ErrTypeArenaFull).
			WithTag("region", r.key.String()).
			WithTag("capacity", r.capacity).
			WithTag("requested", len(payload))
	}

	r.used = used
	r.meshes[index] = payload
	return nil
}

func (r *memoryResources) DeleteMesh(index models.LocalIndex) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.used -= int64(len(r.meshes[index]))
	delete(r.meshes, index)
}

func (r *memoryResources) UsedBytes() int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.used
}

func (r *memoryResources) Delete() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.deleted = true
	r.used = 0
	r.meshes = make(map[models.LocalIndex][]byte)
}
