package drivetrain

import (
	"flag"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// Hardware names of the motors
const (
	FrontLeftName  = "leftFront"
	FrontRightName = "rightFront"
	BackRightName  = "rightRear"
	BackLeftName   = "leftRear"
	WeirdWheelName = "weirdWheels"
)

const (
	// 537.7 ticks per output shaft revolution, 96mm wheels
	CountsPerMotorRev   = 537.7
	DriveGearReduction  = 1.0
	WheelDiameterInches = 3.78

	TicksPerInch = (CountsPerMotorRev * DriveGearReduction) / (WheelDiameterInches * math.Pi)

	// Applied to the left front motor in DriveByTime when Config.ApplySensorSpeed is set
	SensorSpeedCompensation = 1.1

	// Trigger values below this are ignored by WeirdWheelDrive
	WeirdWheelThreshold = 0.1

	// Pause between switching to RunToPosition and applying power
	DefaultSettleDelay = 3 * time.Second
)

type Normalization int

const (
	// Scale down when the largest signed wheel power exceeds 1.
	// Large negative powers are passed through unscaled.
	NormalizeSignedMax Normalization = iota

	// Scale down when the largest absolute wheel power exceeds 1.
	NormalizeAbsMax
)

var DefaultConfig = Config{
	Throttle:         0.5,
	Normalization:    NormalizeSignedMax,
	ApplySensorSpeed: false,
	TicksPerInch:     TicksPerInch,
	SettleDelay:      DefaultSettleDelay,
	PollInterval:     10 * time.Millisecond,
	Names: MotorNames{
		FrontLeft:  FrontLeftName,
		FrontRight: FrontRightName,
		BackLeft:   BackLeftName,
		BackRight:  BackRightName,
		WeirdWheel: WeirdWheelName,
	},
}

type MotorNames struct {
	FrontLeft  string
	FrontRight string
	BackLeft   string
	BackRight  string
	WeirdWheel string
}

type Config struct {
	// Factor applied to all joystick axes in Drive, 0..1
	Throttle      float64
	Normalization Normalization

	ApplySensorSpeed bool
	TicksPerInch     float64
	SettleDelay      time.Duration

	// Sleep between two polls of the motors while driving to a position.
	// Zero polls in a tight loop.
	PollInterval time.Duration

	Names MotorNames

	// Time base for maneuvers, the wall clock if nil
	Clock clock.Clock
}

func (c *Config) RegisterFlags() {
	flag.Float64Var(&c.Throttle, "throttle", c.Throttle, "Factor applied to all joystick axes (0..1)")
	flag.BoolVar(&c.ApplySensorSpeed, "sensor-speed", c.ApplySensorSpeed, "Drive the left front motor 10% faster in timed drives")
	flag.Float64Var(&c.TicksPerInch, "ticks-per-inch", c.TicksPerInch, "Encoder ticks per inch of wheel travel")
	flag.DurationVar(&c.SettleDelay, "settle-delay", c.SettleDelay, "Pause after switching motors to run-to-position, before applying power")
	flag.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Sleep between polls while driving to a position")
	flag.Var(normalizationFlag{&c.Normalization}, "normalize", "Wheel power normalization: 'signed' (legacy, largest positive power) or 'abs' (largest magnitude)")
}

type normalizationFlag struct {
	n *Normalization
}

func (f normalizationFlag) String() string {
	if f.n != nil && *f.n == NormalizeAbsMax {
		return "abs"
	}
	return "signed"
}

func (f normalizationFlag) Set(val string) error {
	switch val {
	case "signed":
		*f.n = NormalizeSignedMax
	case "abs":
		*f.n = NormalizeAbsMax
	default:
		return fmt.Errorf("Unknown normalization %q (expected 'signed' or 'abs')", val)
	}
	return nil
}
