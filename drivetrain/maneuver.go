package drivetrain

import (
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type MotionState int

const (
	Idle MotionState = iota
	Settling
	Moving
	Stopped
)

func (s MotionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Settling:
		return "settling"
	case Moving:
		return "moving"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("MotionState(%d)", int(s))
	}
}

// Maneuver is a motion primitive that is advanced by calling Step from a
// control loop. It walks through Idle -> Settling -> Moving -> Stopped.
// Settling is the pause between configuring the motors and applying power.
type Maneuver struct {
	desc  string
	state MotionState

	settle   time.Duration
	phaseEnd time.Time

	// Zero for maneuvers that end at phaseEnd
	pollInterval time.Duration

	prepare func() error
	engage  func(now time.Time) error
	arrived func(now time.Time) (bool, error)

	// Whether the drive motors are stopped when the maneuver ends
	stopMotors bool
	stop       func() error

	busyPolls int
}

func (m *Maneuver) String() string {
	return m.desc
}

func (m *Maneuver) State() MotionState {
	return m.state
}

// BusyPolls returns how many polls found at least one motor still busy.
func (m *Maneuver) BusyPolls() int {
	return m.busyPolls
}

// Step advances the maneuver as far as possible at the given time and returns
// the resulting state. After an error the maneuver is Stopped.
func (m *Maneuver) Step(now time.Time) (MotionState, error) {
	for {
		switch m.state {
		case Idle:
			if err := m.prepare(); err != nil {
				return m.fail(err)
			}
			m.phaseEnd = now.Add(m.settle)
			m.setState(Settling)
		case Settling:
			if now.Before(m.phaseEnd) {
				return m.state, nil
			}
			if err := m.engage(now); err != nil {
				return m.fail(err)
			}
			m.setState(Moving)
		case Moving:
			done, err := m.arrived(now)
			if err != nil {
				return m.fail(err)
			}
			if !done {
				return m.state, nil
			}
			err = m.finish()
			return Stopped, err
		default:
			return m.state, nil
		}
	}
}

// Wait returns how long the caller can wait before the next Step is useful.
func (m *Maneuver) Wait(now time.Time) time.Duration {
	if m.state == Settling || (m.state == Moving && m.pollInterval == 0) {
		if wait := m.phaseEnd.Sub(now); wait > 0 {
			return wait
		}
		return 0
	}
	return m.pollInterval
}

// Abort ends the maneuver before it completes.
func (m *Maneuver) Abort() error {
	if m.state == Stopped {
		return nil
	}
	log.Warnf("Aborting %v while %v", m, m.state)
	return m.finish()
}

func (m *Maneuver) finish() (err error) {
	m.setState(Stopped)
	if m.stopMotors {
		err = m.stop()
	}
	return
}

func (m *Maneuver) fail(err error) (MotionState, error) {
	return Stopped, multierr.Combine(err, m.finish())
}

func (m *Maneuver) setState(state MotionState) {
	log.Debugf("%v: %v -> %v", m, m.state, state)
	m.state = state
}

// TimedManeuver drives all wheels with the given power for the given duration.
// The motors keep running when the maneuver ends.
func (d *Drivetrain) TimedManeuver(power float64, duration time.Duration) *Maneuver {
	m := &Maneuver{
		desc:    fmt.Sprintf("timed drive (power %.2f for %v)", power, duration),
		prepare: func() error { return nil },
	}
	m.engage = func(now time.Time) error {
		m.phaseEnd = now.Add(duration)
		return d.setPowers(d.timedPowers(power))
	}
	m.arrived = func(now time.Time) (bool, error) {
		return !now.Before(m.phaseEnd), nil
	}
	return m
}

func (d *Drivetrain) timedPowers(power float64) WheelPowers {
	w := WheelPowers{power, power, power, power}
	if d.config.ApplySensorSpeed {
		w.FrontLeft = power * SensorSpeedCompensation
	}
	return w
}

// DistanceManeuver drives the given distance using the encoders and the
// motors' run-to-position mode. Only PresetForward and PresetReverse set new
// target positions, for other presets the motors keep their previous targets.
// The drive motors are stopped when the maneuver ends.
func (d *Drivetrain) DistanceManeuver(inches float64, direction DirectionPreset, power float64) *Maneuver {
	ticks := roundTicks(inches * d.config.TicksPerInch)
	m := &Maneuver{
		desc:         fmt.Sprintf("distance drive (%v inches %v, power %.2f)", inches, direction, power),
		settle:       d.config.SettleDelay,
		pollInterval: d.config.PollInterval,
		stopMotors:   true,
		stop:         d.Stop,
	}
	m.prepare = func() error {
		return d.prepareDistance(ticks, direction)
	}
	m.engage = func(_ time.Time) error {
		log.Printf("Starting %v", m)
		return d.setAllPowers(math.Abs(power))
	}
	m.arrived = func(_ time.Time) (bool, error) {
		moving, err := d.IsMoving()
		if err != nil || !moving {
			return true, err
		}
		m.busyPolls++
		return false, d.reportPositions("")
	}
	return m
}

// roundTicks rounds halves up, also for negative distances: -2.5 becomes -2.
func roundTicks(ticks float64) int {
	return int(math.Floor(ticks + 0.5))
}

func (d *Drivetrain) prepareDistance(ticks int, direction DirectionPreset) error {
	d.telemetry.AddData("ticksToReachTarget", ticks)
	if err := d.reportPositions(""); err != nil {
		return err
	}
	if err := d.setRunModes(StopAndResetEncoder); err != nil {
		return err
	}
	if err := d.reportPositions(StopAndResetEncoder.String()); err != nil {
		return err
	}

	var deltas [numDriveMotors]int
	switch direction {
	case PresetForward:
		deltas = [numDriveMotors]int{ticks, ticks, ticks, ticks}
	case PresetReverse:
		deltas[frontLeft], deltas[backLeft] = ticks, ticks
		deltas[frontRight], deltas[backRight] = -ticks, -ticks
	default:
		log.Warnf("Distance drive does not support direction %v, keeping previous target positions", direction)
	}
	if direction == PresetForward || direction == PresetReverse {
		pos, err := d.positions()
		if err != nil {
			return err
		}
		err = d.eachDriveMotor(func(i int, m Motor) error {
			return m.SetTargetPosition(pos[i] + deltas[i])
		})
		if err != nil {
			return err
		}
	}

	if err := d.setRunModes(RunToPosition); err != nil {
		return err
	}
	return d.reportPositions(RunToPosition.String())
}

func (d *Drivetrain) setRunModes(mode RunMode) error {
	return d.eachDriveMotor(func(_ int, m Motor) error {
		return m.SetRunMode(mode)
	})
}
