package drivetrain

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// DriveByTime sets all drive motors to the given power and blocks for the
// given number of seconds, or until the op mode stops. The motors are not
// stopped afterwards.
func (d *Drivetrain) DriveByTime(op OpMode, power, seconds float64) error {
	duration := time.Duration(seconds * float64(time.Second))
	return d.Run(op, d.TimedManeuver(power, duration))
}

// DriveByInches drives the given distance using the motor encoders and blocks
// until all drive motors reached their target or the op mode stops. The drive
// motors are stopped afterwards.
func (d *Drivetrain) DriveByInches(op OpMode, inches float64, direction DirectionPreset, power float64) error {
	return d.Run(op, d.DistanceManeuver(inches, direction, power))
}

// Run steps the maneuver until it is stopped, sleeping through the op mode in
// between. The maneuver is aborted as soon as the op mode is no longer active.
func (d *Drivetrain) Run(op OpMode, m *Maneuver) error {
	for {
		if !op.IsActive() {
			log.Warnf("Op mode is no longer active")
			return m.Abort()
		}
		state, err := m.Step(d.clock.Now())
		if err != nil {
			return err
		}
		if state == Stopped {
			log.Printf("Finished %v", m)
			return nil
		}
		op.Sleep(m.Wait(d.clock.Now()))
	}
}
