package scheduler

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/models"
)

const (
	ErrTypeNotScheduled    = "section-not-scheduled"
	ErrTypeAlreadyBuilding = "section-already-building"
	ErrTypeLateSubmission  = "section-late-submission"
	ErrTypeUntracked       = "section-untracked"
)

type entry struct {
	// The queue the section is in, or the type to queue it into once the
	// running build completes.
	pending UpdateType

	// Non-nil while a build is running.
	token *CancellationToken

	lastScheduled int32
	lastSubmitted int32
}

// Scheduler tracks, for every section with outstanding work, which build is
// pending and which one is running.
//
// A section is idle (not tracked), pending in exactly one queue, or in
// flight with a cancellation token. It is never both queued and in flight.
// The scheduler must only be used from the frame thread.
type Scheduler struct {
	queues    [updateTypeCount]*Queue
	scheduled map[int64]*entry
}

func New() *Scheduler {
	s := &Scheduler{
		scheduled: make(map[int64]*entry),
	}
	for _, t := range UpdateTypes {
		s.queues[t] = NewQueue()
	}
	return s
}

// MarkForUpdate records that a section needs a build of the given type. A
// section with a running build is not queued until the build is uploaded: the
// running build is never cancelled in favour of the new request.
func (s *Scheduler) MarkForUpdate(key int64, t UpdateType, frame int32) {
	e, ok := s.scheduled[key]
	if !ok {
		e = &entry{
			lastScheduled: -1,
			lastSubmitted: -1,
		}
		s.scheduled[key] = e
	}

	if e.token == nil {
		if e.pending != UpdateNone {
			s.queues[e.pending].Remove(key)
		}
		s.queues[t].Add(key)
	}

	e.pending = t
	e.lastScheduled = frame
	instrumentMarked(t)
}

// CancelScheduledBuild forgets a section and cancels its running build, if
// any.
func (s *Scheduler) CancelScheduledBuild(key int64) {
	e, ok := s.scheduled[key]
	if !ok {
		return
	}
	delete(s.scheduled, key)

	if e.pending != UpdateNone {
		s.queues[e.pending].Remove(key)
		e.pending = UpdateNone
	}

	if e.token != nil {
		e.token.SetCancelled()
		e.token = nil
		instrumentCancelled()
	}
}

// OnSectionSubmitted moves a pending section in flight. The token may be nil
// when the build completes synchronously.
func (s *Scheduler) OnSectionSubmitted(key int64, token *CancellationToken, frame int32) error {
	e, ok := s.scheduled[key]
	if !ok || e.pending == UpdateNone {
		return errors.New("section has no build scheduled").
			WithType(ErrTypeNotScheduled).
			WithTag("section", models.SectionPosFromKey(key).String()).
			WithTag("frame", frame)
	}

	if e.token != nil {
		return errors.New("section already has a build running").
			WithType(ErrTypeAlreadyBuilding).
			WithTag("section", models.SectionPosFromKey(key).String()).
			WithTag("frame", frame)
	}

	if e.lastSubmitted > frame {
		return errors.New("late build submission").
			WithType(ErrTypeLateSubmission).
			WithTag("section", models.SectionPosFromKey(key).String()).
			WithTag("frame", frame).
			WithTag("last_submitted", e.lastSubmitted)
	}

	e.token = token
	e.lastSubmitted = frame

	s.queues[e.pending].Remove(key)
	instrumentSubmitted(e.pending)
	e.pending = UpdateNone
	return nil
}

// OnSectionUploaded completes the build submitted at the given frame. Uploads
// of builds older than the last submission are ignored. The section goes back
// to its pending queue when it was marked again while building, and becomes
// idle otherwise.
func (s *Scheduler) OnSectionUploaded(key int64, frame int32) error {
	e, ok := s.scheduled[key]
	if !ok {
		return errors.New("uploaded section was not scheduled").
			WithType(ErrTypeUntracked).
			WithTag("section", models.SectionPosFromKey(key).String()).
			WithTag("frame", frame)
	}

	if frame < e.lastSubmitted {
		instrumentSuperseded()
		return nil
	}

	e.token = nil

	// Submission clears the pending type, so a pending type here was set by
	// a request made while the build was running. The frame passed in is the
	// submission frame of the build, which is older than such a request.
	// Late results never drop a pending rebuild.
	if e.pending != UpdateNone {
		s.queues[e.pending].Add(key)
	} else if frame >= e.lastScheduled {
		delete(s.scheduled, key)
	}
	return nil
}

// SortedEntries returns the sections pending a build of the given type,
// nearest to origin first.
func (s *Scheduler) SortedEntries(t UpdateType, origin models.SectionPos) *Iterator {
	return s.queue(t).SortedEntries(origin)
}

// QueueLen returns the number of sections pending a build of the given type.
func (s *Scheduler) QueueLen(t UpdateType) int {
	return s.queue(t).Len()
}

// InFlight returns the number of sections with a running build.
func (s *Scheduler) InFlight() int {
	n := 0
	for _, e := range s.scheduled {
		if e.token != nil {
			n++
		}
	}
	return n
}

// Tracked returns the number of sections with outstanding work.
func (s *Scheduler) Tracked() int {
	return len(s.scheduled)
}

// PendingType returns the pending update type of a section.
func (s *Scheduler) PendingType(key int64) UpdateType {
	if e, ok := s.scheduled[key]; ok {
		return e.pending
	}
	return UpdateNone
}

// IsBuilding reports whether a section has a running build.
func (s *Scheduler) IsBuilding(key int64) bool {
	e, ok := s.scheduled[key]
	return ok && e.token != nil
}

// Destroy cancels every running build and forgets all the sections.
func (s *Scheduler) Destroy() {
	for _, e := range s.scheduled {
		if e.token != nil {
			e.token.SetCancelled()
			e.token = nil
		}
	}
	clear(s.scheduled)

	for _, t := range UpdateTypes {
		s.queues[t].Clear()
	}
}

func (s *Scheduler) DebugString() string {
	return fmt.Sprintf("P0=%03d | P1=%03d | P2=%05d",
		s.QueueLen(ImportantRebuild),
		s.QueueLen(Rebuild),
		s.QueueLen(InitialBuild),
	)
}

func (s *Scheduler) queue(t UpdateType) *Queue {
	if t == UpdateNone || int(t) >= updateTypeCount {
		return emptyQueue
	}
	return s.queues[t]
}

var emptyQueue = NewQueue()
