package main

import (
	"flag"
	"fmt"

	"github.com/splace/joysticks"
)

type JoystickAxis struct {
	AxisNumber int

	// Positions between these values are bound to zero
	ZeroFrom, ZeroTo float64

	InvertX bool
	InvertY bool

	// If true, scale the value range to adjust for zeroFrom/zeroTo and make the entire value range -1..1 available
	ScaleZeroFromTo bool
}

func (m *JoystickAxis) RegisterFlags(prefix string, desc string) {
	flag.IntVar(&m.AxisNumber, prefix, m.AxisNumber, "Index for joystick axis for "+desc)
	flag.BoolVar(&m.InvertX, prefix+"InvertX", m.InvertX, "Invert X direction of "+desc)
	flag.BoolVar(&m.InvertY, prefix+"InvertY", m.InvertY, "Invert Y direction of "+desc)
	flag.Float64Var(&m.ZeroFrom, prefix+"ZeroFrom", m.ZeroFrom, "Start of the zero interval of "+desc)
	flag.Float64Var(&m.ZeroTo, prefix+"ZeroTo", m.ZeroTo, "End of the zero interval of "+desc)
	flag.BoolVar(&m.ScaleZeroFromTo, prefix+"ScaleZeroFromTo", m.ScaleZeroFromTo, "Can be used to disable the value range adjustment after filtering based on zeroFrom/zeroTo for "+desc)
}

func (a *JoystickAxis) Notify(js *joysticks.HID, hook func(x, y float64)) error {
	if !js.HatExists(uint8(a.AxisNumber)) {
		return fmt.Errorf("Joystick axis (%v) does not exist on device", a.AxisNumber)
	}
	moved := js.OnMove(uint8(a.AxisNumber))
	go func() {
		for event := range moved {
			coords := event.(joysticks.CoordsEvent)
			hook(a.Convert(coords.X, coords.Y))
		}
	}()
	return nil
}

func (a *JoystickAxis) Convert(rawX, rawY float32) (x, y float64) {
	x, y = float64(rawX), float64(rawY)
	if a.InvertX {
		x = -x
	}
	if a.InvertY {
		y = -y
	}
	return a.convert(x), a.convert(y)
}

func (a *JoystickAxis) convert(val float64) float64 {
	if val >= a.ZeroFrom && val <= a.ZeroTo {
		val = 0
	} else if a.ScaleZeroFromTo {
		// Scale the value range from [-1..zeroFrom] and [zeroTo..1] to [-1..0] and [0..1]
		if val > 0 && a.ZeroTo < 1 {
			val = (val - a.ZeroTo) / (1 - a.ZeroTo)
		} else if val < 0 && a.ZeroFrom > -1 {
			val = (val - a.ZeroFrom) / (1 + a.ZeroFrom)
		}
	}
	return val
}

// TriggerAxis reads an analog trigger reported on one dimension of a joystick axis.
// The trigger rests at -1 and is fully pressed at 1, which is mapped to 0..1.
type TriggerAxis struct {
	JoystickAxis
	UseY bool
}

func (m *TriggerAxis) RegisterFlags(prefix string, desc string) {
	m.JoystickAxis.RegisterFlags(prefix, desc)
	flag.BoolVar(&m.UseY, prefix+"Y", m.UseY, "Use Y instead of X axis for "+desc)
}

func (a *TriggerAxis) Notify(js *joysticks.HID, hook func(val float64)) error {
	return a.JoystickAxis.Notify(js, func(x, y float64) {
		hook(a.value(x, y))
	})
}

func (a *TriggerAxis) Convert(rawX, rawY float32) float64 {
	return a.value(a.JoystickAxis.Convert(rawX, rawY))
}

func (a *TriggerAxis) value(x, y float64) float64 {
	val := x
	if a.UseY {
		val = y
	}
	return (val + 1) / 2
}
