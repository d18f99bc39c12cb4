package sections

import (
	"github.com/aukilabs/sowilo/builder"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/scheduler"
)

// WorldStore is the block storage the sections are built from.
type WorldStore interface {
	// Returns the lowest and highest section Y coordinates, both inclusive.
	Bounds() (minY, maxY int32)

	// Reports whether a section has no block at all.
	IsSectionEmpty(pos models.SectionPos) bool

	// Reports whether the block at the given coordinates fills its whole
	// cube with opaque material.
	IsOpaqueFullCube(x, y, z int32) bool
}

// TaskFactory creates section build tasks.
type TaskFactory interface {
	// Returns the task building a section, or nil when the data around the
	// section is not available.
	CreateRebuildTask(pos models.SectionPos, frame int32) builder.Task

	// Drops any cached data about a section.
	Invalidate(pos models.SectionPos)

	// Releases cached data that is no longer needed. Called once per frame.
	Cleanup()
}

// Builder runs build tasks.
type Builder interface {
	ScheduleTask(task builder.Task, async bool, callback builder.Callback) *scheduler.CancellationToken
	StealBlockingTask() bool
	SchedulingBudget() int
	ScheduledJobCount() int
	BusyThreadCount() int
	TotalThreadCount() int
	Shutdown()
}
