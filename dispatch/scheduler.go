package dispatch

import (
	"context"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"

	"go.viam.com/armctl/logging"
)

// Scheduler runs scheduled tasks once per tick. Within a tick it runs the periodic hooks in the
// order they were added, then every scheduled task in scheduling order, then schedules the
// default task of every requirement left idle, in requirement name order.
type Scheduler struct {
	logger    logging.Logger
	scheduled []Task
	defaults  map[Requirement]Task
	periodic  []func()
	ticks     atomic.Int64
}

// NewScheduler returns an empty scheduler.
func NewScheduler(logger logging.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		defaults: map[Requirement]Task{},
	}
}

// Schedule starts task, interrupting any scheduled task that shares a requirement with it.
// Scheduling an already scheduled task does nothing.
func (s *Scheduler) Schedule(task Task) {
	if s.IsScheduled(task) {
		return
	}
	for _, other := range s.snapshot() {
		if sharesRequirement(task, other) {
			s.Cancel(other)
		}
	}
	s.logger.Debugw("starting task", "task", task.Name())
	s.scheduled = append(s.scheduled, task)
	task.Start()
}

// Cancel interrupts task if it is scheduled.
func (s *Scheduler) Cancel(task Task) {
	if !s.remove(task) {
		return
	}
	s.logger.Debugw("task interrupted", "task", task.Name())
	task.End(true)
}

// CancelRequiring interrupts every scheduled task that requires req.
func (s *Scheduler) CancelRequiring(req Requirement) {
	for _, task := range s.snapshot() {
		if requires(task, req) {
			s.Cancel(task)
		}
	}
}

// CancelAll interrupts every scheduled task.
func (s *Scheduler) CancelAll() {
	for _, task := range s.snapshot() {
		s.Cancel(task)
	}
}

// SetDefaultTask registers the task to run whenever req is idle. The task must require req. A
// previous default for req that is currently running is interrupted.
func (s *Scheduler) SetDefaultTask(req Requirement, task Task) error {
	if !requires(task, req) {
		return errors.Errorf("default task %q for %q must require it", task.Name(), req)
	}
	if old, ok := s.defaults[req]; ok && old != task {
		s.Cancel(old)
	}
	s.defaults[req] = task
	return nil
}

// RemoveDefaultTask unregisters the default task of req, interrupting it if it is running.
func (s *Scheduler) RemoveDefaultTask(req Requirement) {
	old, ok := s.defaults[req]
	if !ok {
		return
	}
	delete(s.defaults, req)
	s.Cancel(old)
}

// DefaultTask returns the default task of req, if any.
func (s *Scheduler) DefaultTask(req Requirement) (Task, bool) {
	task, ok := s.defaults[req]
	return task, ok
}

// AddPeriodic registers a hook that runs at the start of every tick.
func (s *Scheduler) AddPeriodic(hook func()) {
	s.periodic = append(s.periodic, hook)
}

// IsScheduled reports whether task is currently scheduled.
func (s *Scheduler) IsScheduled(task Task) bool {
	for _, t := range s.scheduled {
		if t == task {
			return true
		}
	}
	return false
}

// Scheduled returns the names of the scheduled tasks in scheduling order.
func (s *Scheduler) Scheduled() []string {
	names := make([]string, 0, len(s.scheduled))
	for _, t := range s.scheduled {
		names = append(names, t.Name())
	}
	return names
}

// Ticks returns the number of completed ticks. It is safe to call from any goroutine.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Tick runs one scheduler cycle.
func (s *Scheduler) Tick() {
	for _, hook := range s.periodic {
		hook()
	}

	// A task may cancel others, or itself, from its hooks; skip anything no longer scheduled.
	for _, task := range s.snapshot() {
		if !s.IsScheduled(task) {
			continue
		}
		task.Execute()
		if !s.IsScheduled(task) {
			continue
		}
		if task.Done() {
			s.remove(task)
			s.logger.Debugw("task finished", "task", task.Name())
			task.End(false)
		}
	}

	reqs := lo.Keys(s.defaults)
	slices.Sort(reqs)
	for _, req := range reqs {
		task := s.defaults[req]
		if s.IsScheduled(task) || s.busy(req) {
			continue
		}
		s.Schedule(task)
	}

	s.ticks.Inc()
}

// Run ticks every period of clk until ctx is done.
func (s *Scheduler) Run(ctx context.Context, clk clock.Clock, period time.Duration) error {
	if period <= 0 {
		return errors.Errorf("scheduler period must be positive, got %v", period)
	}
	ticker := clk.Ticker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

func (s *Scheduler) busy(req Requirement) bool {
	for _, task := range s.scheduled {
		if requires(task, req) {
			return true
		}
	}
	return false
}

func (s *Scheduler) remove(task Task) bool {
	for i, t := range s.scheduled {
		if t == task {
			s.scheduled = append(s.scheduled[:i], s.scheduled[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scheduler) snapshot() []Task {
	return append([]Task(nil), s.scheduled...)
}
