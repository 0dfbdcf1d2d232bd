package control

import (
	"math"
	"time"

	"github.com/samber/lo"

	"go.viam.com/armctl/utils"
)

// snapEpsilon absorbs floating point error in the final-tick test.
const snapEpsilon = 1e-9

// Profile produces the next reference state one timestep ahead of previous on the way to goal.
type Profile interface {
	Next(previous, goal State, c Constraints, dt time.Duration) State
}

// TrapezoidProfile is a trapezoidal velocity profile. It accelerates at the acceleration limit
// up to the velocity limit, cruises, and brakes along a constant deceleration curve so that it
// lands on the goal position with the goal velocity. Short moves never reach the velocity limit
// and form a triangle instead.
//
// The profile is stateless; callers feed the previous output back in.
type TrapezoidProfile struct{}

// NewTrapezoidProfile returns a trapezoidal velocity profile.
func NewTrapezoidProfile() *TrapezoidProfile {
	return &TrapezoidProfile{}
}

// Next returns the reference state dt after previous. The returned velocity never changes by more
// than MaxAcceleration*dt. The velocity limit is applied before the acceleration limit, so a
// previous velocity above a newly lowered MaxVelocity ramps down instead of stepping.
func (tp *TrapezoidProfile) Next(previous, goal State, c Constraints, dt time.Duration) State {
	t := dt.Seconds()
	if t <= 0 {
		return previous
	}
	maxVel, maxAcc := c.MaxVelocity, c.MaxAcceleration
	goalVel := lo.Clamp(goal.Velocity, -maxVel, maxVel)

	if previous.Position == goal.Position && previous.Velocity == goalVel {
		return State{Position: goal.Position, Velocity: goalVel}
	}

	// Work in the frame where the goal lies in the positive direction.
	dir := utils.Sign(goal.Position - previous.Position)
	if dir == 0 {
		dir = -utils.Sign(previous.Velocity)
		if dir == 0 {
			dir = 1
		}
	}
	dist := math.Abs(goal.Position - previous.Position)
	vel := previous.Velocity * dir
	goalVelDir := goalVel * dir

	// Final tick: the goal is within one step of travel and its velocity within one step of
	// acceleration.
	if math.Abs(previous.Velocity-goalVel) <= maxAcc*t+snapEpsilon &&
		dist <= math.Max(math.Abs(previous.Velocity), math.Abs(goalVel))*t+snapEpsilon {
		return State{Position: goal.Position, Velocity: goalVel}
	}

	// Largest next velocity v such that, after integrating this step trapezoidally, braking at
	// maxAcc from v still reaches goalVel before the goal:
	//   (vel+v)/2*t + (v^2-goalVel^2)/(2*maxAcc) <= dist
	// Without a real root the goal will be overrun regardless, so brake as hard as possible.
	slack := vel*t/2 - dist - goalVelDir*goalVelDir/(2*maxAcc)
	next := math.Inf(-1)
	if disc := t*t/4 - 2*slack/maxAcc; disc >= 0 {
		next = maxAcc * (-t/2 + math.Sqrt(disc))
	}
	next = lo.Clamp(next, -maxVel, maxVel)
	next = lo.Clamp(next, vel-maxAcc*t, vel+maxAcc*t)

	return State{
		Position: previous.Position + dir*(vel+next)/2*t,
		Velocity: dir * next,
	}
}

// TotalTime returns the continuous-time duration of the trapezoid (or triangle) from start to
// goal under c. A start velocity pointing away from the goal first brakes to rest.
func TotalTime(start, goal State, c Constraints) time.Duration {
	if c.Validate() != nil {
		return 0
	}
	maxVel, maxAcc := c.MaxVelocity, c.MaxAcceleration
	dir := utils.Sign(goal.Position - start.Position)
	if dir == 0 {
		dir = 1
	}
	dist := math.Abs(goal.Position - start.Position)
	v0 := lo.Clamp(start.Velocity*dir, -maxVel, maxVel)
	vf := math.Max(lo.Clamp(goal.Velocity*dir, -maxVel, maxVel), 0)

	var total float64
	if v0 < 0 {
		total += -v0 / maxAcc
		dist += v0 * v0 / (2 * maxAcc)
		v0 = 0
	}

	accelDist := (maxVel*maxVel - v0*v0) / (2 * maxAcc)
	decelDist := (maxVel*maxVel - vf*vf) / (2 * maxAcc)
	if accelDist+decelDist <= dist {
		total += (maxVel-v0)/maxAcc + (maxVel-vf)/maxAcc + (dist-accelDist-decelDist)/maxVel
	} else {
		peak := math.Sqrt(maxAcc*dist + (v0*v0+vf*vf)/2)
		peak = math.Max(peak, math.Max(v0, vf))
		total += (peak-v0)/maxAcc + (peak-vf)/maxAcc
	}
	return time.Duration(total * float64(time.Second))
}
