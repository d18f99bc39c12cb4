package builder

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/models"
	"github.com/aukilabs/sowilo/scheduler"
	"golang.org/x/sync/errgroup"
)

const (
	ErrTypeCancelled   = "build-cancelled"
	ErrTypeShutdown    = "builder-shutdown"
	ErrTypeBuildFailed = "build-failed"

	// The number of queued jobs per worker the scheduling budget allows.
	jobsPerWorker = 2
)

// Task builds a section. Implementations should check the token from time to
// time and stop early when it is cancelled.
type Task interface {
	Pos() models.SectionPos
	Execute(ctx context.Context, token *scheduler.CancellationToken) (*BuildOutput, error)
}

// Callback receives the result of a task. It is called from the goroutine
// that ran the task.
type Callback func(Result)

type job struct {
	task     Task
	token    *scheduler.CancellationToken
	callback Callback
	blocking bool
}

// Executor runs section builds on a pool of workers.
//
// Blocking jobs are always picked before asynchronous ones and can be stolen
// by the frame thread with StealBlockingTask.
type Executor struct {
	workers int

	mu              sync.Mutex
	cond            *sync.Cond
	blocking        []*job
	async           []*job
	runningBlocking int
	busy            int
	closed          bool

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewExecutor starts an executor with the given number of workers. At least
// one worker is started.
func NewExecutor(ctx context.Context, workers int) *Executor {
	workers = max(workers, 1)

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	e := &Executor{
		workers: workers,
		cancel:  cancel,
		group:   group,
	}
	e.cond = sync.NewCond(&e.mu)

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			e.work(ctx)
			return nil
		})
	}

	go func() {
		<-ctx.Done()
		e.close()
	}()

	return e
}

// ScheduleTask queues a task and returns the token that cancels it. A
// blocking task is picked before every asynchronous one.
func (e *Executor) ScheduleTask(task Task, async bool, callback Callback) *scheduler.CancellationToken {
	j := &job{
		task:     task,
		token:    scheduler.NewCancellationToken(),
		callback: callback,
		blocking: !async,
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		j.token.SetCancelled()
		return j.token
	}

	if j.blocking {
		e.blocking = append(e.blocking, j)
	} else {
		e.async = append(e.async, j)
	}
	instrumentQueued(len(e.blocking) + len(e.async))
	e.mu.Unlock()

	e.cond.Signal()
	return j.token
}

// StealBlockingTask runs a queued blocking job on the calling goroutine, or
// waits for a blocking job running on a worker. It returns false when no
// blocking job is left.
func (e *Executor) StealBlockingTask() bool {
	e.mu.Lock()

	if len(e.blocking) != 0 {
		j := e.blocking[0]
		e.blocking[0] = nil
		e.blocking = e.blocking[1:]
		e.mu.Unlock()

		e.run(context.Background(), j)
		return true
	}

	if e.runningBlocking != 0 {
		e.cond.Wait()
		e.mu.Unlock()
		return true
	}

	e.mu.Unlock()
	return false
}

// SchedulingBudget returns how many more asynchronous jobs should be
// submitted this frame.
func (e *Executor) SchedulingBudget() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return max(0, e.workers*jobsPerWorker-len(e.blocking)-len(e.async))
}

// ScheduledJobCount returns the number of jobs waiting for a worker.
func (e *Executor) ScheduledJobCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.blocking) + len(e.async)
}

// BusyThreadCount returns the number of workers running a job.
func (e *Executor) BusyThreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.busy
}

func (e *Executor) TotalThreadCount() int {
	return e.workers
}

// Shutdown stops the workers and cancels the jobs that did not start. It
// waits for running jobs to return.
func (e *Executor) Shutdown() {
	e.cancel()
	e.close()
	e.group.Wait()
}

func (e *Executor) close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true

	pending := append(e.blocking, e.async...)
	e.blocking = nil
	e.async = nil
	e.mu.Unlock()

	for _, j := range pending {
		j.token.SetCancelled()
	}
	instrumentQueued(0)
	e.cond.Broadcast()
}

func (e *Executor) work(ctx context.Context) {
	for {
		e.mu.Lock()
		for !e.closed && len(e.blocking) == 0 && len(e.async) == 0 {
			e.cond.Wait()
		}
		if e.closed {
			e.mu.Unlock()
			return
		}

		var j *job
		if len(e.blocking) != 0 {
			j = e.blocking[0]
			e.blocking[0] = nil
			e.blocking = e.blocking[1:]
			e.runningBlocking++
		} else {
			j = e.async[0]
			e.async[0] = nil
			e.async = e.async[1:]
		}
		e.busy++
		e.mu.Unlock()

		e.run(ctx, j)

		e.mu.Lock()
		e.busy--
		if j.blocking {
			e.runningBlocking--
		}
		e.mu.Unlock()
		e.cond.Broadcast()
	}
}

func (e *Executor) run(ctx context.Context, j *job) {
	pos := j.task.Pos()

	if j.token.IsCancelled() {
		logs.WithTag("section", pos.String()).
			Debug(errors.New("build cancelled before start").WithType(ErrTypeCancelled))
		instrumentJob(ErrTypeCancelled, 0)
		return
	}

	start := time.Now()
	output, err := j.task.Execute(ctx, j.token)
	duration := time.Since(start)

	switch {
	case j.token.IsCancelled():
		instrumentJob(ErrTypeCancelled, duration)
		return

	case err != nil:
		err = errors.New("building section failed").
			WithType(ErrTypeBuildFailed).
			WithTag("section", pos.String()).
			Wrap(err)
		instrumentJob(errors.Type(err), duration)
		j.callback(Result{Err: err})

	default:
		instrumentJob("", duration)
		j.callback(Result{Output: output})
	}
}
