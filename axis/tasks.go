package axis

import (
	"fmt"

	"go.viam.com/armctl/dispatch"
	"go.viam.com/armctl/utils"
)

// MoveTo returns a task that sets the goal to target (clamped), enables, updates every tick and
// finishes once the axis is at the goal.
func (c *Controller) MoveTo(target float64) dispatch.Task {
	return &dispatch.FuncTask{
		TaskName: fmt.Sprintf("%s move to %.1f°", c.cfg.Name, utils.RadToDeg(target)),
		Requires: []dispatch.Requirement{c.Requirement()},
		OnStart: func() {
			c.SetGoal(target)
			c.Enable()
		},
		OnExecute: c.Update,
		IsDone:    c.AtGoal,
	}
}

// ShiftBy returns a task that moves the goal by delta from wherever the goal is when the task
// starts.
func (c *Controller) ShiftBy(delta float64) dispatch.Task {
	return &dispatch.FuncTask{
		TaskName: fmt.Sprintf("%s shift by %.1f°", c.cfg.Name, utils.RadToDeg(delta)),
		Requires: []dispatch.Requirement{c.Requirement()},
		OnStart: func() {
			c.SetGoal(c.goal.Position + delta)
			c.Enable()
		},
		OnExecute: c.Update,
		IsDone:    c.AtGoal,
	}
}

// ShiftUp shifts the goal up by the configured increment.
func (c *Controller) ShiftUp() dispatch.Task {
	return c.ShiftBy(c.cfg.ShiftIncrement)
}

// ShiftDown shifts the goal down by the configured increment.
func (c *Controller) ShiftDown() dispatch.Task {
	return c.ShiftBy(-c.cfg.ShiftIncrement)
}

// Hold returns the task that keeps the axis at its current goal. It never finishes. Enabling the
// controller installs it as the axis' default task.
func (c *Controller) Hold() dispatch.Task {
	return c.hold
}

func (c *Controller) newHoldTask() dispatch.Task {
	return &dispatch.FuncTask{
		TaskName:  c.cfg.Name + " hold",
		Requires:  []dispatch.Requirement{c.Requirement()},
		OnStart:   c.Enable,
		OnExecute: c.Update,
	}
}
