package motion

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Task is anything that needs exclusive use of the drive: a Command, or a
// longer-running mode such as teleop.  Execute must return promptly once
// ctx is done.  It must not issue work through the Scheduler that is
// running it.
type Task interface {
	Execute(ctx context.Context, c *Controller) error
}

type TaskFunc func(ctx context.Context, c *Controller) error

func taskName(t Task) string {
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", t)
}

func (f TaskFunc) Execute(ctx context.Context, c *Controller) error {
	return f(ctx, c)
}

// Scheduler owns the drive.  Starting a task first cancels the task in
// flight and waits for it to finish, including its zero-power write, so
// only one task ever writes wheel power.
type Scheduler struct {
	ctrl *Controller
	log  zerolog.Logger

	// lock is the motion-owner lock.  It is held while the current task is
	// replaced, never while a task runs.
	lock    sync.Mutex
	epoch   uint64
	current *Handle
}

func NewScheduler(ctrl *Controller, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		ctrl: ctrl,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Controller() *Controller {
	return s.ctrl
}

// Run starts task and waits for it to finish.
func (s *Scheduler) Run(ctx context.Context, task Task) error {
	return s.Start(ctx, task).Wait()
}

// Start preempts any running task and starts task in the background.
func (s *Scheduler) Start(ctx context.Context, task Task) *Handle {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.preemptLocked()

	s.epoch++
	taskCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		epoch:  s.epoch,
		task:   task,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.current = h
	s.log.Debug().Uint64("epoch", h.epoch).Str("task", taskName(task)).Msg("Starting task")

	go func() {
		defer close(h.done)
		defer s.ctrl.Stop()
		defer cancel()
		h.err = task.Execute(taskCtx, s.ctrl)
	}()
	return h
}

// Stop preempts the running task, if any, and zeros the wheels.
func (s *Scheduler) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.preemptLocked()
	s.ctrl.Stop()
}

// Current returns the task in flight, or nil.
func (s *Scheduler) Current() *Handle {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.current == nil || s.current.finished() {
		return nil
	}
	return s.current
}

func (s *Scheduler) preemptLocked() {
	h := s.current
	if h == nil {
		return
	}
	s.current = nil
	if h.finished() {
		return
	}
	s.log.Info().Uint64("epoch", h.epoch).Str("task", taskName(h.task)).Msg("Preempting task")
	h.preempted.Store(true)
	h.cancel()
	<-h.done
}

// Handle tracks one started task.
type Handle struct {
	epoch  uint64
	task   Task
	cancel context.CancelFunc
	done   chan struct{}

	err       error
	preempted atomic.Bool
}

// Epoch increases by one for every task the scheduler starts.
func (h *Handle) Epoch() uint64 {
	return h.epoch
}

func (h *Handle) Task() Task {
	return h.task
}

// Done is closed once the task has finished and the wheels are zeroed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task finishes.  A task replaced by a newer one
// returns ErrPreempted; one stopped through Cancel or its context returns
// whatever the task returned, normally nil.
func (h *Handle) Wait() error {
	<-h.done
	if h.preempted.Load() {
		return ErrPreempted
	}
	return h.err
}

// Cancel stops the task and waits for it to finish.
func (h *Handle) Cancel() {
	h.cancel()
	<-h.done
}

func (h *Handle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
