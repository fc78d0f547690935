// Package routine parses and runs autonomous drive routines given as a list of textual steps.
//
// Step syntax:
//
//	inches:<preset>:<inches>:<power>   drive a distance using the encoders
//	time:<power>:<seconds>             drive all motors for a duration
//	preset:<preset>                    set the motor polarity preset
//	brake                              set all drive motors to brake at zero power
//	stop                               set all drive motors to zero power
//	pause:<duration>                   sleep, e.g. pause:500ms
package routine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Step interface {
	Run(d *drivetrain.Drivetrain, op drivetrain.OpMode) error
	String() string
}

type Routine []Step

// Parse parses all steps, failing on the first invalid one.
func Parse(steps []string) (Routine, error) {
	res := make(Routine, 0, len(steps))
	for i, str := range steps {
		step, err := ParseStep(str)
		if err != nil {
			return nil, errors.Wrapf(err, "step %v", i+1)
		}
		res = append(res, step)
	}
	return res, nil
}

// NeedsEncoders returns true if any step drives a distance using the encoders.
func (r Routine) NeedsEncoders() bool {
	for _, step := range r {
		if _, ok := step.(*inchesStep); ok {
			return true
		}
	}
	return false
}

func ParseStep(str string) (Step, error) {
	parts := strings.Split(strings.TrimSpace(str), ":")
	args := parts[1:]
	switch strings.ToLower(parts[0]) {
	case "inches":
		if err := checkArgs(str, args, 3); err != nil {
			return nil, err
		}
		preset, err := drivetrain.ParseDirectionPreset(args[0])
		if err != nil {
			return nil, err
		}
		inches, err := parseFloat(str, args[1])
		if err != nil {
			return nil, err
		}
		power, err := parseFloat(str, args[2])
		if err != nil {
			return nil, err
		}
		return &inchesStep{inches: inches, preset: preset, power: power}, nil
	case "time":
		if err := checkArgs(str, args, 2); err != nil {
			return nil, err
		}
		power, err := parseFloat(str, args[0])
		if err != nil {
			return nil, err
		}
		seconds, err := parseFloat(str, args[1])
		if err != nil {
			return nil, err
		}
		if seconds < 0 {
			return nil, fmt.Errorf("Negative duration in step '%v'", str)
		}
		return &timeStep{power: power, seconds: seconds}, nil
	case "preset":
		if err := checkArgs(str, args, 1); err != nil {
			return nil, err
		}
		preset, err := drivetrain.ParseDirectionPreset(args[0])
		if err != nil {
			return nil, err
		}
		return presetStep(preset), nil
	case "brake":
		if err := checkArgs(str, args, 0); err != nil {
			return nil, err
		}
		return brakeStep{}, nil
	case "stop":
		if err := checkArgs(str, args, 0); err != nil {
			return nil, err
		}
		return stopStep{}, nil
	case "pause":
		if err := checkArgs(str, args, 1); err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid duration in step '%v'", str)
		}
		return pauseStep(d), nil
	default:
		return nil, fmt.Errorf("Unknown step type '%v' in step '%v'", parts[0], str)
	}
}

func checkArgs(str string, args []string, num int) error {
	if len(args) != num {
		return fmt.Errorf("Step '%v' needs %v argument(s), but has %v", str, num, len(args))
	}
	return nil
}

func parseFloat(str, arg string) (float64, error) {
	val, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid number in step '%v'", str)
	}
	return val, nil
}

// Run executes all steps in order. Remaining steps are skipped once the op mode becomes inactive.
func (r Routine) Run(d *drivetrain.Drivetrain, op drivetrain.OpMode) error {
	for i, step := range r {
		if !op.IsActive() {
			log.Warnf("Op mode stopped, skipping %v remaining step(s)", len(r)-i)
			return nil
		}
		log.Printf("Step %v/%v: %v", i+1, len(r), step)
		if err := step.Run(d, op); err != nil {
			return errors.Wrapf(err, "step %v (%v) failed", i+1, step)
		}
	}
	return nil
}

func (r Routine) String() string {
	steps := make([]string, len(r))
	for i, step := range r {
		steps[i] = step.String()
	}
	return strings.Join(steps, " ")
}

type inchesStep struct {
	inches float64
	preset drivetrain.DirectionPreset
	power  float64
}

func (s *inchesStep) Run(d *drivetrain.Drivetrain, op drivetrain.OpMode) error {
	return d.DriveByInches(op, s.inches, s.preset, s.power)
}

func (s *inchesStep) String() string {
	return fmt.Sprintf("inches:%v:%v:%v", s.preset, s.inches, s.power)
}

type timeStep struct {
	power   float64
	seconds float64
}

func (s *timeStep) Run(d *drivetrain.Drivetrain, op drivetrain.OpMode) error {
	return d.DriveByTime(op, s.power, s.seconds)
}

func (s *timeStep) String() string {
	return fmt.Sprintf("time:%v:%v", s.power, s.seconds)
}

type presetStep drivetrain.DirectionPreset

func (s presetStep) Run(d *drivetrain.Drivetrain, _ drivetrain.OpMode) error {
	return d.SetDirection(drivetrain.DirectionPreset(s))
}

func (s presetStep) String() string {
	return "preset:" + drivetrain.DirectionPreset(s).String()
}

type brakeStep struct{}

func (brakeStep) Run(d *drivetrain.Drivetrain, _ drivetrain.OpMode) error {
	return d.ApplyBrake()
}

func (brakeStep) String() string {
	return "brake"
}

type stopStep struct{}

func (stopStep) Run(d *drivetrain.Drivetrain, _ drivetrain.OpMode) error {
	return d.Stop()
}

func (stopStep) String() string {
	return "stop"
}

type pauseStep time.Duration

func (s pauseStep) Run(_ *drivetrain.Drivetrain, op drivetrain.OpMode) error {
	op.Sleep(time.Duration(s))
	return nil
}

func (s pauseStep) String() string {
	return "pause:" + time.Duration(s).String()
}
