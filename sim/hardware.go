package sim

import (
	"fmt"
	"sort"

	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/benbjohnson/clock"
)

// HardwareMap holds a fixed set of simulated motors.
type HardwareMap struct {
	motors map[string]*Motor
}

func NewHardwareMap(clk clock.Clock, names ...string) *HardwareMap {
	h := &HardwareMap{
		motors: make(map[string]*Motor, len(names)),
	}
	for _, name := range names {
		h.motors[name] = NewMotor(name, clk)
	}
	return h
}

// NewDrivetrainHardware simulates all motors required by the given names.
func NewDrivetrainHardware(clk clock.Clock, names drivetrain.MotorNames) *HardwareMap {
	return NewHardwareMap(clk, names.FrontLeft, names.FrontRight, names.BackLeft, names.BackRight, names.WeirdWheel)
}

func (h *HardwareMap) Motor(name string) (drivetrain.Motor, error) {
	if m, ok := h.motors[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("No motor named '%v' (available: %v)", name, h.Names())
}

// Get returns the simulated motor with the given name, or nil.
func (h *HardwareMap) Get(name string) *Motor {
	return h.motors[name]
}

func (h *HardwareMap) Names() []string {
	names := make([]string, 0, len(h.motors))
	for name := range h.motors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
