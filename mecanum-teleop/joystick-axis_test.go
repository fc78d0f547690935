package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type P struct {
	x, y float64
}

func TestJoystickAxisConvert(t *testing.T) {
	a := assert.New(t)
	axis := JoystickAxis{
		ZeroFrom:        -0.2,
		ZeroTo:          0.1,
		ScaleZeroFromTo: true,
		InvertY:         true,
	}
	test := func(rawX, rawY float32, expectX, expectY float64) {
		x, y := axis.Convert(rawX, rawY)
		a.InDelta(expectX, x, 1e-6, "x of %v/%v", rawX, rawY)
		a.InDelta(expectY, y, 1e-6, "y of %v/%v", rawX, rawY)
	}

	// Dead zone
	test(0, 0, 0, 0)
	test(-0.2, 0.1, 0, 0)
	test(0.05, 0.15, 0, 0)

	// Full range is still available
	test(1, -1, 1, 1)
	test(-1, 1, -1, -1)

	// Scaled between the dead zone and the end of the range
	test(0.55, -0.55, 0.5, 0.5)
	test(-0.6, 0.6, -0.5, -0.5)

	axis.ScaleZeroFromTo = false
	test(0.55, -0.55, 0.55, 0.55)
}

func TestJoystickAxisInvert(t *testing.T) {
	axis := JoystickAxis{InvertX: true}
	x, y := axis.Convert(0.5, 0.5)
	assert.Equal(t, P{-0.5, 0.5}, P{x, y})
}

func TestTriggerAxis(t *testing.T) {
	a := assert.New(t)
	trigger := TriggerAxis{}
	a.Equal(0.0, trigger.Convert(-1, 1))
	a.Equal(1.0, trigger.Convert(1, -1))
	a.Equal(0.5, trigger.Convert(0, 0))

	trigger.UseY = true
	a.Equal(1.0, trigger.Convert(-1, 1))
	a.Equal(0.75, trigger.Convert(-1, 0.5))
}
