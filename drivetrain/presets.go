package drivetrain

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

type DirectionPreset int

const (
	PresetForward DirectionPreset = iota
	PresetReverse
	PresetStrafeLeft
	PresetStrafeRight
	PresetSpinLeft
	PresetSpinRight
)

var presetNames = map[DirectionPreset]string{
	PresetForward:     "forward",
	PresetReverse:     "reverse",
	PresetStrafeLeft:  "strafe-left",
	PresetStrafeRight: "strafe-right",
	PresetSpinLeft:    "spin-left",
	PresetSpinRight:   "spin-right",
}

func (p DirectionPreset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return fmt.Sprintf("DirectionPreset(%d)", int(p))
}

func ParseDirectionPreset(name string) (DirectionPreset, error) {
	name = strings.ToLower(name)
	for preset, presetName := range presetNames {
		if presetName == name {
			return preset, nil
		}
	}
	return PresetForward, fmt.Errorf("Unknown direction preset '%v'", name)
}

// Polarity of the drive motors in the order front left, front right, back left, back right
type polarity [numDriveMotors]Direction

var presetPolarities = map[DirectionPreset]polarity{
	PresetForward:     {Reverse, Forward, Reverse, Forward},
	PresetReverse:     {Forward, Reverse, Forward, Reverse},
	PresetStrafeLeft:  {Forward, Forward, Reverse, Reverse},
	PresetStrafeRight: {Reverse, Reverse, Forward, Forward},
	PresetSpinLeft:    {Forward, Forward, Forward, Forward},
	PresetSpinRight:   {Reverse, Reverse, Reverse, Reverse},
}

// SetDirection writes the polarity of the given preset to the four drive
// motors. Unknown presets fall back to PresetForward. Running motors are not
// stopped, only the sign of subsequent power commands changes.
func (d *Drivetrain) SetDirection(preset DirectionPreset) error {
	pol, ok := presetPolarities[preset]
	if !ok {
		log.Warnf("Unknown direction preset %v, using %v", preset, PresetForward)
		pol = presetPolarities[PresetForward]
	}
	log.Debugf("Setting motor directions to %v", preset)
	return d.eachDriveMotor(func(i int, m Motor) error {
		return m.SetDirection(pol[i])
	})
}

func (d *Drivetrain) SetDirectionForward() error {
	return d.SetDirection(PresetForward)
}

func (d *Drivetrain) SetDirectionReverse() error {
	return d.SetDirection(PresetReverse)
}

func (d *Drivetrain) SetDirectionStrafeLeft() error {
	return d.SetDirection(PresetStrafeLeft)
}

func (d *Drivetrain) SetDirectionStrafeRight() error {
	return d.SetDirection(PresetStrafeRight)
}

func (d *Drivetrain) SetDirectionSpinLeft() error {
	return d.SetDirection(PresetSpinLeft)
}

func (d *Drivetrain) SetDirectionSpinRight() error {
	return d.SetDirection(PresetSpinRight)
}
