package sections

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/builder"
	"github.com/aukilabs/sowilo/lists"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/occlusion"
	"github.com/aukilabs/sowilo/region"
	"github.com/aukilabs/sowilo/scheduler"
)

const (
	ErrTypeMissingSection = "section-missing"

	// Important rebuilds are demoted to normal rebuilds while this is false.
	promoteImportantRebuilds = false

	fogOpaqueEpsilon = 1e-5
	minFogDistance   = 16.0
)

// Config configures a section manager.
type Config struct {
	World   WorldStore
	Tasks   TaskFactory
	Builder Builder

	// The allocator of region device resources. Regions have no resources
	// when nil.
	Allocator region.ResourceAllocator

	// The render distance, in sections.
	RenderDistance int32

	// Limits the search distance to the fog distance when the fog is opaque.
	FogOcclusion bool

	// Skips sections hidden behind opaque geometry.
	OcclusionCulling bool
}

// Manager owns the sections of a world. It keeps their visibility graph up to
// date, schedules their builds and commits the build results.
//
// Every method must be called from the frame thread.
type Manager struct {
	conf       Config
	minY, maxY int32

	regions   *region.Manager
	graph     *occlusion.GraphManager
	scheduler *scheduler.Scheduler

	sections       map[int64]*RenderSection
	results        resultList
	globalEntities *roaring64.Bitmap

	renderLists      *lists.SortedRenderLists
	lastUpdatedFrame int32
	needsUpdate      bool

	fogAlpha float64
	fogEnd   float64
}

// NewManager creates a section manager.
func NewManager(conf Config) *Manager {
	minY, maxY := conf.World.Bounds()
	regions := &region.Manager{Allocator: conf.Allocator}

	return &Manager{
		conf:           conf,
		minY:           minY,
		maxY:           maxY,
		regions:        regions,
		graph:          occlusion.NewGraphManager(regions, minY, maxY),
		scheduler:      scheduler.New(),
		sections:       make(map[int64]*RenderSection),
		globalEntities: roaring64.New(),
		renderLists:    lists.Empty(),
		needsUpdate:    true,
	}
}

// SetFog sets the fog state used to limit the search distance.
func (m *Manager) SetFog(alpha, end float64) {
	m.fogAlpha = alpha
	m.fogEnd = end
}

// UpdateRenderLists finds the sections visible from the camera and rebuilds
// the render lists.
func (m *Manager) UpdateRenderLists(
	camera models.Camera,
	viewport occlusion.Viewport,
	frame int32,
	spectator bool,
) occlusion.SearchStats {
	m.renderLists = lists.Empty()

	collector := lists.NewVisibleCollector(frame)
	stats := m.graph.FindVisibleSections(
		collector,
		camera,
		viewport,
		m.searchDistance(),
		m.useOcclusionCulling(camera, spectator),
	)
	m.renderLists = collector.RenderLists()

	m.needsUpdate = false
	m.lastUpdatedFrame = frame

	instrumentVisible(m.VisibleChunkCount())
	return stats
}

func (m *Manager) searchDistance() float64 {
	blocks := float64(m.conf.RenderDistance * models.SectionSize)

	if !m.conf.FogOcclusion {
		return blocks
	}

	// Sections behind the fog can only be skipped when it is fully opaque.
	if math.Abs(m.fogAlpha-1) >= fogOpaqueEpsilon {
		return blocks
	}
	return max(minFogDistance, m.fogEnd)
}

func (m *Manager) useOcclusionCulling(camera models.Camera, spectator bool) bool {
	if spectator {
		x, y, z := camera.BlockPos()
		if m.conf.World.IsOpaqueFullCube(x, y, z) {
			return false
		}
	}
	return m.conf.OcclusionCulling
}

// OnSectionAdded starts tracking a section. Empty sections are committed as
// built right away, others are scheduled for an initial build.
func (m *Manager) OnSectionAdded(x, y, z int32) {
	pos := models.NewSectionPos(x, y, z)
	key := pos.Key()

	if _, ok := m.sections[key]; ok {
		return
	}

	r, _ := m.regions.AddSection(pos)
	section := newRenderSection(r, pos)
	m.sections[key] = section

	if m.conf.World.IsSectionEmpty(pos) {
		m.updateSectionInfo(section, builder.EmptyInfo(), m.lastUpdatedFrame)
	} else {
		m.scheduler.MarkForUpdate(key, scheduler.InitialBuild, m.lastUpdatedFrame)
	}

	m.needsUpdate = true
	instrumentSections(len(m.sections))
}

// OnSectionRemoved stops tracking a section and cancels its build. Results
// of the cancelled build are dropped when they arrive.
func (m *Manager) OnSectionRemoved(x, y, z int32) {
	pos := models.NewSectionPos(x, y, z)
	key := pos.Key()

	section, ok := m.sections[key]
	if !ok {
		return
	}
	delete(m.sections, key)

	m.updateSectionInfo(section, nil, m.lastUpdatedFrame)
	m.scheduler.CancelScheduledBuild(key)
	section.delete()
	m.regions.RemoveSection(pos)

	m.needsUpdate = true
	instrumentSections(len(m.sections))
}

// OnChunkAdded adds every section of a column.
func (m *Manager) OnChunkAdded(x, z int32) {
	for y := m.minY; y <= m.maxY; y++ {
		m.OnSectionAdded(x, y, z)
	}
}

// OnChunkRemoved removes every section of a column.
func (m *Manager) OnChunkRemoved(x, z int32) {
	for y := m.minY; y <= m.maxY; y++ {
		m.OnSectionRemoved(x, y, z)
	}
}

// ScheduleRebuild requests a new build of a section after its blocks
// changed. Sections that were never built are left to their initial build.
func (m *Manager) ScheduleRebuild(x, y, z int32, important bool) {
	pos := models.NewSectionPos(x, y, z)
	m.conf.Tasks.Invalidate(pos)

	if section, ok := m.sections[pos.Key()]; ok && section.IsBuilt() {
		// TODO: let important requests reach the ImportantRebuild queue once
		// blocking builds no longer stall the frame. They are demoted to
		// Rebuild until then.
		t := scheduler.Rebuild
		if promoteImportantRebuilds && important {
			t = scheduler.ImportantRebuild
		}

		m.scheduler.MarkForUpdate(pos.Key(), t, m.lastUpdatedFrame)
	}

	m.needsUpdate = true
}

// UpdateChunks submits the pending builds, nearest first. Important rebuilds
// are all submitted as blocking tasks. Other builds are submitted within the
// builder budget unless updateImmediately is set, in which case they are all
// submitted as blocking tasks.
func (m *Manager) UpdateChunks(camera models.Camera, updateImmediately bool) error {
	m.conf.Tasks.Cleanup()

	if err := m.submitRebuildTasks(scheduler.ImportantRebuild, camera, false); err != nil {
		return err
	}
	if err := m.submitRebuildTasks(scheduler.Rebuild, camera, !updateImmediately); err != nil {
		return err
	}
	return m.submitRebuildTasks(scheduler.InitialBuild, camera, !updateImmediately)
}

func (m *Manager) submitRebuildTasks(t scheduler.UpdateType, camera models.Camera, async bool) error {
	budget := math.MaxInt
	if async {
		budget = m.conf.Builder.SchedulingBudget()
	}

	it := m.scheduler.SortedEntries(t, camera.SectionPos())
	for ; budget > 0; budget-- {
		key, ok := it.Next()
		if !ok {
			break
		}

		section, ok := m.sections[key]
		if !ok {
			return errors.New("scheduled section is not tracked").
				WithType(ErrTypeMissingSection).
				WithTag("section", models.SectionPosFromKey(key).String()).
				WithTag("update_type", t.String())
		}

		if err := m.submitRebuildTask(section, async); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) submitRebuildTask(section *RenderSection, async bool) error {
	frame := m.lastUpdatedFrame
	task := m.conf.Tasks.CreateRebuildTask(section.Pos(), frame)

	var token *scheduler.CancellationToken
	if task != nil {
		token = m.conf.Builder.ScheduleTask(task, async, func(res builder.Result) {
			m.results.push(buildResult{
				section: section,
				frame:   frame,
				output:  res.Output,
				err:     res.Err,
			})
		})
	}

	if err := m.scheduler.OnSectionSubmitted(section.Key(), token, frame); err != nil {
		return err
	}

	if token == nil {
		m.results.push(buildResult{
			section: section,
			frame:   frame,
			output: &builder.BuildOutput{
				Pos:       section.Pos(),
				Info:      builder.EmptyInfo(),
				BuildTime: frame,
			},
		})
	}
	return nil
}

// UploadChunks commits the finished builds. It first runs the blocking
// builds that are still queued.
func (m *Manager) UploadChunks() error {
	for m.conf.Builder.StealBlockingTask() {
	}

	results := m.results.drain()
	if len(results) == 0 {
		return nil
	}

	for _, r := range results {
		if r.err == nil {
			continue
		}

		logs.WithTag("section", r.section.Pos().String()).
			WithTag("frame", r.frame).
			Warn(r.err)

		if r.section.IsDisposed() {
			continue
		}
		if err := m.scheduler.OnSectionUploaded(r.section.Key(), r.frame); err != nil {
			return err
		}
	}

	for _, r := range filterBuildResults(results) {
		m.uploadMesh(r)
		m.updateSectionInfo(r.section, r.output.Info, r.output.BuildTime)

		if err := m.scheduler.OnSectionUploaded(r.section.Key(), r.output.BuildTime); err != nil {
			return err
		}
		instrumentUploaded()
	}

	m.needsUpdate = true
	return nil
}

func (m *Manager) uploadMesh(r buildResult) {
	resources := r.section.Region().Resources()
	if resources == nil {
		return
	}

	if len(r.output.Mesh) == 0 {
		resources.DeleteMesh(r.section.LocalIndex())
		return
	}

	if err := resources.UploadMesh(r.section.LocalIndex(), r.output.Mesh); err != nil {
		logs.WithTag("section", r.section.Pos().String()).
			Warn(errors.New("uploading section mesh failed").Wrap(err))
	}
}

// filterBuildResults keeps the newest successful result of every live
// section, in the order sections first appear.
func filterBuildResults(results []buildResult) []buildResult {
	positions := make(map[*RenderSection]int, len(results))
	filtered := make([]buildResult, 0, len(results))

	for _, r := range results {
		if r.err != nil || r.output == nil {
			continue
		}

		switch {
		case r.section.IsDisposed():
			instrumentDropped(dropReasonDisposed)
			continue

		case r.section.LastBuiltFrame() > r.output.BuildTime:
			instrumentDropped(dropReasonStale)
			continue
		}

		i, ok := positions[r.section]
		if !ok {
			positions[r.section] = len(filtered)
			filtered = append(filtered, r)
			continue
		}

		if filtered[i].output.BuildTime < r.output.BuildTime {
			filtered[i] = r
		}
		instrumentDropped(dropReasonDuplicate)
	}

	return filtered
}

func (m *Manager) updateSectionInfo(section *RenderSection, info *builder.SectionInfo, frame int32) {
	section.setInfo(info)

	if info == nil || len(info.GlobalBlockEntities) == 0 {
		m.globalEntities.Remove(uint64(section.Key()))
	} else {
		m.globalEntities.Add(uint64(section.Key()))
	}

	section.lastBuiltTime = frame
}

// MarkGraphDirty forces the visibility to be recomputed on the next frame.
func (m *Manager) MarkGraphDirty() {
	m.needsUpdate = true
}

// NeedsUpdate reports whether the visible sections must be recomputed.
func (m *Manager) NeedsUpdate() bool {
	return m.needsUpdate
}

// RenderLists returns the render lists of the last visibility update.
func (m *Manager) RenderLists() *lists.SortedRenderLists {
	return m.renderLists
}

// Section returns the section at the given coordinates, or nil.
func (m *Manager) Section(x, y, z int32) *RenderSection {
	return m.sections[models.NewSectionPos(x, y, z).Key()]
}

// IsSectionVisible reports whether a section was visible at the last
// visibility update. Regions the last search did not reach keep the bits of
// an older frame and report nothing as visible.
func (m *Manager) IsSectionVisible(x, y, z int32) bool {
	section := m.Section(x, y, z)
	if section == nil {
		return false
	}

	l := section.Region().RenderList()
	if l.LastVisibleFrame() != m.lastUpdatedFrame {
		return false
	}
	return l.IsSectionVisible(section.LocalIndex())
}

func (m *Manager) IsSectionBuilt(x, y, z int32) bool {
	section := m.Section(x, y, z)
	return section != nil && section.IsBuilt()
}

func (m *Manager) TotalSections() int {
	return len(m.sections)
}

// VisibleChunkCount returns the number of visible sections with geometry.
func (m *Manager) VisibleChunkCount() int {
	n := 0
	it := m.renderLists.Iterator(false)
	for l, ok := it.Next(); ok; l, ok = it.Next() {
		n += l.SectionsWithGeometryCount()
	}
	return n
}

// SectionsWithGlobalEntities returns the sections holding block entities that
// are drawn regardless of visibility, ordered by key.
func (m *Manager) SectionsWithGlobalEntities() []*RenderSection {
	sections := make([]*RenderSection, 0, m.globalEntities.GetCardinality())

	it := m.globalEntities.Iterator()
	for it.HasNext() {
		if s, ok := m.sections[int64(it.Next())]; ok {
			sections = append(sections, s)
		}
	}
	return sections
}

// Scheduler returns the build scheduler.
func (m *Manager) Scheduler() *scheduler.Scheduler {
	return m.scheduler
}

// Regions returns the region manager.
func (m *Manager) Regions() *region.Manager {
	return m.regions
}

func (m *Manager) DebugStrings() []string {
	count := 0
	var used int64
	for _, r := range m.regions.Regions() {
		if r.Resources() == nil {
			continue
		}
		used += r.Resources().UsedBytes()
		count++
	}

	b := m.conf.Builder
	return []string{
		fmt.Sprintf("Device buffer objects: %d", count),
		fmt.Sprintf("Device memory: %d MiB", used>>20),
		fmt.Sprintf("Chunk builder: P=%02d | A=%02d | I=%02d",
			b.ScheduledJobCount(),
			b.BusyThreadCount(),
			b.TotalThreadCount(),
		),
		fmt.Sprintf("Chunk updates: U=%02d (%s)", m.results.len(), m.scheduler.DebugString()),
	}
}

// Destroy stops the builder, drops the pending results and releases every
// region. It is safe to call several times.
func (m *Manager) Destroy() {
	m.conf.Builder.Shutdown()
	m.results.drain()

	m.globalEntities.Clear()
	m.renderLists = lists.Empty()
	m.regions.Delete()
	m.scheduler.Destroy()
}
