package main

import (
	"flag"
	"math"
	"time"

	"go.uber.org/atomic"
)

// Ramp limits how fast the joystick axes can change the motor powers.
type Ramp struct {
	// Maximum time for an axis to ramp up between 0% and 100%
	AccelSlopeTime time.Duration
	// Maximum time for an axis to ramp down between 100% and 0%
	DecelSlopeTime time.Duration
}

func (r *Ramp) RegisterFlags() {
	flag.DurationVar(&r.AccelSlopeTime, "accelSlopeTime", r.AccelSlopeTime, "Maximum time for an axis to ramp up between 0% and 100% (0 disables ramping)")
	flag.DurationVar(&r.DecelSlopeTime, "decelSlopeTime", r.DecelSlopeTime, "Maximum time for an axis to ramp down between 100% and 0% (0 disables ramping)")
}

// Steps returns the maximum change of an axis within one control loop interval.
func (r *Ramp) Steps(interval time.Duration) (accelStep, decelStep float64) {
	accelStep = math.MaxFloat64
	decelStep = math.MaxFloat64
	if r.AccelSlopeTime > 0 {
		accelStep = float64(interval) / float64(r.AccelSlopeTime)
	}
	if r.DecelSlopeTime > 0 {
		decelStep = float64(interval) / float64(r.DecelSlopeTime)
	}
	return
}

// adjustSpeed moves cur toward target by at most one step. Moving away from
// zero uses the accelStep, moving toward zero the decelStep.
func adjustSpeed(cur, target, accelStep, decelStep float64) float64 {
	forward := cur > 0         // Currently driving forward
	increasing := target > cur // Target momentum is more forward-oriented than currently

	adjustStep := decelStep
	if forward == increasing || cur == 0 {
		adjustStep = accelStep
	}
	if math.Abs(cur-target) <= adjustStep {
		return target
	}
	if !increasing {
		adjustStep = -adjustStep
	}
	return cur + adjustStep
}

// SmoothAxis is written by joystick events and read by the control loop.
type SmoothAxis struct {
	target  atomic.Float64
	reset   atomic.Bool
	current float64
}

func (a *SmoothAxis) Set(val float64) {
	a.target.Store(val)
}

// Reset sets target and current value to zero, skipping the deceleration ramp.
func (a *SmoothAxis) Reset() {
	a.target.Store(0)
	a.reset.Store(true)
}

// Step is only called from the control loop.
func (a *SmoothAxis) Step(accelStep, decelStep float64) float64 {
	if a.reset.CompareAndSwap(true, false) {
		a.current = 0
	}
	a.current = adjustSpeed(a.current, a.target.Load(), accelStep, decelStep)
	return a.current
}
