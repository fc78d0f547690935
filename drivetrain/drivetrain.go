package drivetrain

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const numDriveMotors = 4

// Indices into Drivetrain.motors
const (
	frontLeft = iota
	frontRight
	backLeft
	backRight
)

// Drivetrain controls the four mecanum wheels and the auxiliary weird wheels.
// It is not safe for concurrent use: all methods are meant to be called from
// the control loop of a single op mode.
type Drivetrain struct {
	config    Config
	telemetry Telemetry
	clock     clock.Clock

	names       [numDriveMotors]string
	motors      [numDriveMotors]Motor
	weirdWheels Motor
}

// New resolves all motors through the hardware map. The weird wheels are set
// to forward polarity, the drive motors to PresetForward.
func New(hw HardwareMap, telemetry Telemetry, config Config) (*Drivetrain, error) {
	d := &Drivetrain{
		config:    config,
		telemetry: telemetry,
		clock:     config.Clock,
		names: [numDriveMotors]string{
			frontLeft:  config.Names.FrontLeft,
			frontRight: config.Names.FrontRight,
			backLeft:   config.Names.BackLeft,
			backRight:  config.Names.BackRight,
		},
	}
	if d.clock == nil {
		d.clock = clock.New()
	}
	for i, name := range d.names {
		m, err := hw.Motor(name)
		if err != nil {
			return nil, errors.Wrapf(err, "drivetrain: failed to resolve motor '%v'", name)
		}
		d.motors[i] = m
	}
	weird, err := hw.Motor(config.Names.WeirdWheel)
	if err != nil {
		return nil, errors.Wrapf(err, "drivetrain: failed to resolve motor '%v'", config.Names.WeirdWheel)
	}
	d.weirdWheels = weird

	if err := d.weirdWheels.SetDirection(Forward); err != nil {
		return nil, err
	}
	if err := d.SetDirection(PresetForward); err != nil {
		return nil, err
	}
	log.Printf("Initialized mecanum drivetrain (%v, %v, %v, %v) with weird wheels '%v', throttle %.2f",
		d.names[frontLeft], d.names[frontRight], d.names[backLeft], d.names[backRight], config.Names.WeirdWheel, config.Throttle)
	return d, nil
}

func (d *Drivetrain) Config() Config {
	return d.config
}

// Drive applies the configured throttle to the joystick axes and mixes them
// into wheel powers.
func (d *Drivetrain) Drive(speedX, speedY, rotation float64) error {
	t := d.config.Throttle
	return d.Mix(speedX*t, speedY*t, rotation*t)
}

// Mix sets the wheel powers for the given strafe, forward and rotation command.
// Inputs are expected in -1..1 and are not validated.
func (d *Drivetrain) Mix(x, y, rotation float64) error {
	return d.setPowers(MixWheels(x, y, rotation, d.config.Normalization))
}

func (d *Drivetrain) setPowers(w WheelPowers) error {
	log.Debugf("Setting wheel powers: %v", w)
	powers := [numDriveMotors]float64{
		frontLeft:  w.FrontLeft,
		frontRight: w.FrontRight,
		backLeft:   w.BackLeft,
		backRight:  w.BackRight,
	}
	return d.eachDriveMotor(func(i int, m Motor) error {
		return m.SetPower(powers[i])
	})
}

func (d *Drivetrain) setAllPowers(power float64) error {
	return d.setPowers(WheelPowers{power, power, power, power})
}

// Stop sets the power of the four drive motors to zero. The weird wheels are not affected.
func (d *Drivetrain) Stop() error {
	return d.setAllPowers(0)
}

// ApplyBrake switches the drive motors to actively brake on zero power.
// The setting persists until changed on the motors.
func (d *Drivetrain) ApplyBrake() error {
	return d.eachDriveMotor(func(_ int, m Motor) error {
		return m.SetZeroPowerBehavior(Brake)
	})
}

// IsMoving returns true if any drive motor is busy.
func (d *Drivetrain) IsMoving() (bool, error) {
	for _, m := range d.motors {
		busy, err := m.IsBusy()
		if err != nil {
			return false, err
		}
		if busy {
			return true, nil
		}
	}
	return false, nil
}

// WeirdWheelDrive drives the auxiliary wheels from two trigger values.
// The forward trigger takes precedence, values up to WeirdWheelThreshold are ignored.
func (d *Drivetrain) WeirdWheelDrive(forward, reverse float64) error {
	power := 0.0
	if forward > WeirdWheelThreshold {
		power = forward
	} else if reverse > WeirdWheelThreshold {
		power = -reverse
	}
	return d.weirdWheels.SetPower(power)
}

// Calls f for every drive motor, even if some of them fail
func (d *Drivetrain) eachDriveMotor(f func(i int, m Motor) error) (err error) {
	for i, m := range d.motors {
		if motorErr := f(i, m); motorErr != nil {
			err = multierr.Append(err, errors.Wrapf(motorErr, "motor '%v'", d.names[i]))
		}
	}
	return
}

func (d *Drivetrain) positions() ([numDriveMotors]int, error) {
	var res [numDriveMotors]int
	for i, m := range d.motors {
		pos, err := m.CurrentPosition()
		if err != nil {
			return res, errors.Wrapf(err, "motor '%v'", d.names[i])
		}
		res[i] = pos
	}
	return res, nil
}

// Adds the current positions of all drive motors to the telemetry and publishes them
func (d *Drivetrain) reportPositions(header string) error {
	pos, err := d.positions()
	if err != nil {
		return err
	}
	if header != "" {
		d.telemetry.AddData(header, "---------------------")
	}
	for i, name := range d.names {
		d.telemetry.AddData(name+" current position", pos[i])
	}
	return d.telemetry.Update()
}
