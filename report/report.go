// Package report records closed-loop runs and summarizes them.
package report

import (
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Sample is one controller tick. Angles are in radians.
type Sample struct {
	Time     time.Duration
	Goal     float64
	Setpoint float64
	Position float64
	Velocity float64
	Voltage  float64
	Current  float64
	Battery  float64
	AtGoal   bool
}

// Recorder collects samples. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a sample.
func (r *Recorder) Record(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Len returns the number of recorded samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Summary describes a recorded run. Errors are setpoint minus position, in radians.
type Summary struct {
	Samples       int
	Duration      time.Duration
	RMSError      float64
	MaxError      float64
	MeanCurrent   float64
	MaxCurrent    float64
	MinBattery    float64
	FinalPosition float64
	FinalGoal     float64
	Arrived       bool
	// ArrivalTime is the first sample at the final goal that reported arrival.
	ArrivalTime time.Duration
}

// ErrNoSamples is returned when summarizing an empty recording.
var ErrNoSamples = errors.New("no samples recorded")

// Summary computes tracking and power statistics over the recording.
func (r *Recorder) Summary() (Summary, error) {
	samples := r.Samples()
	if len(samples) == 0 {
		return Summary{}, ErrNoSamples
	}

	squared := make(stats.Float64Data, 0, len(samples))
	absErr := make(stats.Float64Data, 0, len(samples))
	currents := make(stats.Float64Data, 0, len(samples))
	battery := make(stats.Float64Data, 0, len(samples))
	for _, s := range samples {
		e := s.Setpoint - s.Position
		squared = append(squared, e*e)
		absErr = append(absErr, math.Abs(e))
		currents = append(currents, math.Abs(s.Current))
		battery = append(battery, s.Battery)
	}

	last := samples[len(samples)-1]
	sum := Summary{
		Samples:       len(samples),
		Duration:      last.Time,
		FinalPosition: last.Position,
		FinalGoal:     last.Goal,
	}

	meanSquared, err := squared.Mean()
	if err != nil {
		return Summary{}, errors.Wrap(err, "tracking error")
	}
	sum.RMSError = math.Sqrt(meanSquared)
	if sum.MaxError, err = absErr.Max(); err != nil {
		return Summary{}, errors.Wrap(err, "tracking error")
	}
	if sum.MeanCurrent, err = stats.Mean(currents); err != nil {
		return Summary{}, errors.Wrap(err, "current")
	}
	if sum.MaxCurrent, err = stats.Max(currents); err != nil {
		return Summary{}, errors.Wrap(err, "current")
	}
	if sum.MinBattery, err = stats.Min(battery); err != nil {
		return Summary{}, errors.Wrap(err, "battery")
	}

	for _, s := range samples {
		if s.AtGoal && s.Goal == last.Goal {
			sum.Arrived = true
			sum.ArrivalTime = s.Time
			break
		}
	}
	return sum, nil
}
