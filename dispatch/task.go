// Package dispatch is a cooperative, fixed-tick task scheduler. Each task declares the
// mechanisms it requires; scheduling a task interrupts whatever else holds one of those
// requirements, and an idle requirement falls back to its default task.
//
// A Scheduler is driven from a single goroutine. Only Ticks may be read concurrently.
package dispatch

// Requirement names a mechanism that at most one task may drive at a time.
type Requirement string

// Task is a unit of work with a start hook, a per-tick hook and a completion predicate.
type Task interface {
	Name() string
	Requirements() []Requirement
	// Start runs once when the task is scheduled.
	Start()
	// Execute runs once per tick while the task is scheduled.
	Execute()
	// Done is checked after each Execute.
	Done() bool
	// End runs once when the task leaves the scheduler. interrupted is true when it was
	// cancelled rather than finished.
	End(interrupted bool)
}

// FuncTask builds a Task out of optional hooks. A nil IsDone never finishes.
type FuncTask struct {
	TaskName  string
	Requires  []Requirement
	OnStart   func()
	OnExecute func()
	IsDone    func() bool
	OnEnd     func(interrupted bool)
}

// Name returns the task name.
func (ft *FuncTask) Name() string {
	return ft.TaskName
}

// Requirements returns the mechanisms the task drives.
func (ft *FuncTask) Requirements() []Requirement {
	return ft.Requires
}

// Start calls OnStart.
func (ft *FuncTask) Start() {
	if ft.OnStart != nil {
		ft.OnStart()
	}
}

// Execute calls OnExecute.
func (ft *FuncTask) Execute() {
	if ft.OnExecute != nil {
		ft.OnExecute()
	}
}

// Done calls IsDone.
func (ft *FuncTask) Done() bool {
	if ft.IsDone == nil {
		return false
	}
	return ft.IsDone()
}

// End calls OnEnd.
func (ft *FuncTask) End(interrupted bool) {
	if ft.OnEnd != nil {
		ft.OnEnd(interrupted)
	}
}

func requires(task Task, req Requirement) bool {
	for _, r := range task.Requirements() {
		if r == req {
			return true
		}
	}
	return false
}

func sharesRequirement(a, b Task) bool {
	for _, r := range a.Requirements() {
		if requires(b, r) {
			return true
		}
	}
	return false
}
