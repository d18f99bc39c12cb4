package sim

import (
	"cmp"
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/builder"
	"github.com/aukilabs/sowilo/featureflag"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/occlusion"
	"github.com/aukilabs/sowilo/region"
	"github.com/aukilabs/sowilo/scheduler"
	"github.com/aukilabs/sowilo/sections"
	"github.com/aukilabs/sowilo/viewport"
	"github.com/aukilabs/sowilo/world"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	nearPlane = 0.05

	// Device memory granted to each region.
	regionCapacity = 64 << 20
)

// FrameReport summarizes a simulated frame.
type FrameReport struct {
	RunID    string        `json:"run_id"`
	Frame    int32         `json:"frame"`
	Duration time.Duration `json:"duration"`

	Camera models.Camera `json:"camera"`
	Yaw    float64       `json:"yaw"`

	// Whether the visible sections were searched again this frame.
	Searched bool                  `json:"searched"`
	Search   occlusion.SearchStats `json:"search"`

	Sections        int   `json:"sections"`
	Regions         int   `json:"regions"`
	LoadedChunks    int   `json:"loaded_chunks"`
	VisibleSections int   `json:"visible_sections"`
	VisibleChunks   int   `json:"visible_chunks"`
	InFlight        int   `json:"in_flight"`
	Edits           int   `json:"edits"`
	UsedBytes       int64 `json:"used_bytes"`

	Queues map[string]int `json:"queues"`

	// A digest of the visible sections in render order.
	Digest uint64 `json:"digest"`

	Debug []string `json:"debug"`
}

type column struct {
	x, z int32
}

// Simulation drives a section manager with a moving camera over a procedural
// world, one frame at a time.
type Simulation struct {
	RunID string

	scenario Scenario
	flags    featureflag.FeatureFlag

	store   *world.Store
	tasks   *world.Tasks
	manager *sections.Manager

	frames models.FrameCounter
	rand   *rand.Rand

	position r3.Vec
	yaw      float64
	pitch    float64
	loaded   map[column]struct{}

	subscriberIDs   models.SequentialIDGenerator
	subscriberMutex sync.RWMutex
	subscribers     map[uint32]func(FrameReport)

	reportMutex sync.RWMutex
	lastReport  *FrameReport

	closeOnce sync.Once
}

// New creates a simulation. The build workers stop when ctx is done or when
// the simulation is closed.
func New(ctx context.Context, scenario Scenario, flags featureflag.FeatureFlag) (*Simulation, error) {
	if err := scenario.validate(); err != nil {
		return nil, err
	}
	if flags == nil {
		flags = featureflag.New(nil)
	}

	store := world.NewStore(scenario.World)

	tasks, err := world.NewTasks(store, world.DefaultCloneCacheSize, world.DefaultCloneMaxAge)
	if err != nil {
		return nil, errors.New("creating build tasks failed").Wrap(err)
	}

	workers := scenario.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}
	manager := sections.NewManager(sections.Config{
		World:            store,
		Tasks:            tasks,
		Builder:          builder.NewExecutor(ctx, workers),
		Allocator:        region.MemoryAllocator{RegionCapacity: regionCapacity},
		RenderDistance:   scenario.ViewDistance,
		FogOcclusion:     !flags.IsSet(featureflag.FlagDisableFogOcclusion),
		OcclusionCulling: !flags.IsSet(featureflag.FlagDisableOcclusionCulling),
	})

	seed := scenario.World.Seed
	s := &Simulation{
		RunID:       uuid.NewString(),
		scenario:    scenario,
		flags:       flags,
		store:       store,
		tasks:       tasks,
		manager:     manager,
		rand:        rand.New(rand.NewPCG(seed, seed^0x5eed)),
		yaw:         radians(scenario.Camera.Yaw),
		pitch:       radians(scenario.Camera.Pitch),
		loaded:      make(map[column]struct{}),
		subscribers: make(map[uint32]func(FrameReport)),
	}

	s.position = r3.Vec{X: scenario.Camera.X, Z: scenario.Camera.Z}
	s.position.Y = s.surfaceHeight() + scenario.Camera.Height

	logs.WithTag("run_id", s.RunID).
		WithTag("scenario", scenario.Name).
		WithTag("workers", workers).
		WithTag("flags", flags.Flags()).
		Info("simulation created")
	return s, nil
}

func (s *Simulation) surfaceHeight() float64 {
	x := int32(math.Floor(s.position.X))
	z := int32(math.Floor(s.position.Z))
	pos := models.SectionPosFromBlock(x, 0, z)

	s.loadColumn(column{x: pos.X, z: pos.Z})
	if h, ok := s.store.HighestBlock(x, z); ok {
		return float64(h + 1)
	}
	return float64(s.scenario.World.BaseHeight)
}

// Manager returns the section manager. It must only be used from the frame
// goroutine.
func (s *Simulation) Manager() *sections.Manager {
	return s.manager
}

func (s *Simulation) Store() *world.Store {
	return s.store
}

func (s *Simulation) Scenario() Scenario {
	return s.scenario
}

// Camera returns the current camera position.
func (s *Simulation) Camera() models.Camera {
	return models.Camera{X: s.position.X, Y: s.position.Y, Z: s.position.Z}
}

// Step simulates a frame. The returned errors are internal consistency
// violations of the section manager and are not recoverable.
func (s *Simulation) Step() (FrameReport, error) {
	start := time.Now()
	frame := s.frames.Next()

	moved := s.moveCamera()
	s.streamChunks()

	edits := 0
	s.flags.IfNotSet(featureflag.FlagDisableEdits, func() {
		edits = s.applyEdits()
	})

	camera := s.Camera()
	m := s.manager
	m.SetFog(s.scenario.Fog.Alpha, s.scenario.Fog.End)

	report := FrameReport{
		RunID:  s.RunID,
		Frame:  frame,
		Camera: camera,
		Yaw:    s.yaw,
		Edits:  edits,
	}

	if err := m.UpdateChunks(camera, s.flags.IsSet(featureflag.FlagUpdateImmediately)); err != nil {
		return report, errors.New("updating chunks failed").
			WithTag("frame", frame).
			Wrap(err)
	}
	if err := m.UploadChunks(); err != nil {
		return report, errors.New("uploading chunks failed").
			WithTag("frame", frame).
			Wrap(err)
	}

	// Uploads mark the graph dirty, so the sections committed above are in
	// this frame's render lists.
	if moved || m.NeedsUpdate() {
		report.Searched = true
		report.Search = m.UpdateRenderLists(camera, s.frustum(), frame, s.scenario.Camera.Spectator)
	}

	lists := m.RenderLists()
	sched := m.Scheduler()

	report.Sections = m.TotalSections()
	report.Regions = m.Regions().Len()
	report.LoadedChunks = len(s.loaded)
	report.VisibleSections = lists.SectionCount()
	report.VisibleChunks = m.VisibleChunkCount()
	report.InFlight = sched.InFlight()
	report.UsedBytes = m.Regions().UsedBytes()
	report.Digest = lists.Digest()
	report.Debug = m.DebugStrings()
	report.Queues = make(map[string]int, len(scheduler.UpdateTypes))
	for _, t := range scheduler.UpdateTypes {
		report.Queues[t.String()] = sched.QueueLen(t)
	}
	report.Duration = time.Since(start)

	instrumentFrame(report)
	s.publish(report)
	return report, nil
}

// Run steps the simulation at the scenario frame rate until ctx is done or a
// frame fails.
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.scenario.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if _, err := s.Step(); err != nil {
				return err
			}
		}
	}
}

// RunFrames steps the simulation the given number of times and returns the
// last report.
func (s *Simulation) RunFrames(ctx context.Context, frames int) (FrameReport, error) {
	var report FrameReport

	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var err error
		if report, err = s.Step(); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Subscribe registers a function called with the report of every frame. It
// is called from the frame goroutine and must not block.
func (s *Simulation) Subscribe(h func(FrameReport)) (cancel func()) {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()

	id := s.subscriberIDs.New()
	s.subscribers[id] = h

	return func() {
		s.subscriberMutex.Lock()
		defer s.subscriberMutex.Unlock()

		if _, ok := s.subscribers[id]; !ok {
			return
		}
		delete(s.subscribers, id)
		s.subscriberIDs.Reuse(id)
	}
}

// SubscriberCount returns the number of subscribers.
func (s *Simulation) SubscriberCount() int {
	s.subscriberMutex.RLock()
	defer s.subscriberMutex.RUnlock()

	return len(s.subscribers)
}

// LastReport returns the report of the last simulated frame.
func (s *Simulation) LastReport() (FrameReport, bool) {
	s.reportMutex.RLock()
	defer s.reportMutex.RUnlock()

	if s.lastReport == nil {
		return FrameReport{}, false
	}
	return *s.lastReport, true
}

func (s *Simulation) publish(report FrameReport) {
	s.reportMutex.Lock()
	s.lastReport = &report
	s.reportMutex.Unlock()

	if s.flags.IsSet(featureflag.FlagDisableDebugStream) {
		return
	}

	s.subscriberMutex.RLock()
	defer s.subscriberMutex.RUnlock()

	ids := make([]uint32, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		s.subscribers[id](report)
	}
}

// Close stops the build workers and releases every section. It is safe to
// call several times.
func (s *Simulation) Close() {
	s.closeOnce.Do(func() {
		s.manager.Destroy()
		logs.WithTag("run_id", s.RunID).
			WithTag("frames", s.frames.Current()).
			Info("simulation closed")
	})
}

func (s *Simulation) moveCamera() bool {
	c := s.scenario.Camera
	v := r3.Vec{X: c.Velocity[0], Y: c.Velocity[1], Z: c.Velocity[2]}

	s.position = r3.Add(s.position, v)
	s.yaw = math.Remainder(s.yaw+radians(c.YawSpeed), 2*math.Pi)

	return v != (r3.Vec{}) || c.YawSpeed != 0
}

func (s *Simulation) frustum() occlusion.Viewport {
	c := s.scenario.Camera
	far := float64(s.scenario.ViewDistance+1) * models.SectionSize * math.Sqrt2

	return viewport.NewFrustum(viewport.Perspective{
		Position: s.position,
		Yaw:      s.yaw,
		Pitch:    s.pitch,
		FOV:      radians(c.FOV),
		Aspect:   c.Aspect,
		Near:     nearPlane,
		Far:      far,
	})
}

// streamChunks loads the missing columns around the camera, nearest first,
// and unloads the columns out of range.
func (s *Simulation) streamChunks() {
	center := s.Camera().SectionPos()
	distance := s.scenario.ViewDistance

	var unload []column
	for c := range s.loaded {
		if chebyshev(c, center) > distance+1 {
			unload = append(unload, c)
		}
	}
	slices.SortFunc(unload, compareColumns)
	for _, c := range unload {
		s.unloadColumn(c)
	}

	var missing []column
	for x := center.X - distance; x <= center.X+distance; x++ {
		for z := center.Z - distance; z <= center.Z+distance; z++ {
			c := column{x: x, z: z}
			if _, ok := s.loaded[c]; !ok {
				missing = append(missing, c)
			}
		}
	}
	slices.SortStableFunc(missing, func(a, b column) int {
		return cmp.Compare(chebyshev(a, center), chebyshev(b, center))
	})

	for i, c := range missing {
		if i == s.scenario.ChunkLoadsPerFrame {
			break
		}
		s.loadColumn(c)
	}
}

func (s *Simulation) loadColumn(c column) {
	if _, ok := s.loaded[c]; ok {
		return
	}

	s.store.LoadChunk(c.x, c.z)
	s.tasks.InvalidateChunk(c.x, c.z)
	s.loaded[c] = struct{}{}
	s.manager.OnChunkAdded(c.x, c.z)
}

func (s *Simulation) unloadColumn(c column) {
	s.manager.OnChunkRemoved(c.x, c.z)
	s.store.UnloadChunk(c.x, c.z)
	s.tasks.InvalidateChunk(c.x, c.z)
	delete(s.loaded, c)
}

var editBlocks = []world.Block{
	world.Air,
	world.Air,
	world.Stone,
	world.Glass,
	world.Leaves,
	world.Lava,
	world.Chest,
}

// applyEdits changes random blocks around the camera and schedules the
// rebuild of the sections they touch.
func (s *Simulation) applyEdits() int {
	e := s.scenario.Edits
	if e.PerFrame == 0 || e.Radius == 0 {
		return 0
	}

	cx := int32(math.Floor(s.position.X))
	cy := int32(math.Floor(s.position.Y))
	cz := int32(math.Floor(s.position.Z))

	applied := 0
	for i := 0; i < e.PerFrame; i++ {
		x := cx + s.rand.Int32N(2*e.Radius+1) - e.Radius
		y := cy + s.rand.Int32N(2*e.Radius+1) - e.Radius
		z := cz + s.rand.Int32N(2*e.Radius+1) - e.Radius
		b := editBlocks[s.rand.IntN(len(editBlocks))]

		pos, err := s.store.SetBlock(x, y, z, b)
		if err != nil {
			logs.WithTag("block", b.String()).Debug(err)
			continue
		}

		important := abs(x-cx) <= e.ImportantRadius &&
			abs(y-cy) <= e.ImportantRadius &&
			abs(z-cz) <= e.ImportantRadius
		s.scheduleBlockRebuild(pos, x, y, z, important)
		applied++
	}

	instrumentEdits(applied)
	return applied
}

// scheduleBlockRebuild rebuilds the section of a block and the neighbours
// whose border holds it.
func (s *Simulation) scheduleBlockRebuild(pos models.SectionPos, x, y, z int32, important bool) {
	offsets := func(v int32) []int32 {
		switch v & (models.SectionSize - 1) {
		case 0:
			return []int32{-1, 0}
		case models.SectionSize - 1:
			return []int32{0, 1}
		default:
			return []int32{0}
		}
	}

	for _, ox := range offsets(x) {
		for _, oy := range offsets(y) {
			for _, oz := range offsets(z) {
				n := pos.Add(ox, oy, oz)
				s.manager.ScheduleRebuild(n.X, n.Y, n.Z, important)
			}
		}
	}
}

func chebyshev(c column, center models.SectionPos) int32 {
	return max(abs(c.x-center.X), abs(c.z-center.Z))
}

func compareColumns(a, b column) int {
	if a.x != b.x {
		return cmp.Compare(a.x, b.x)
	}
	return cmp.Compare(a.z, b.z)
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
