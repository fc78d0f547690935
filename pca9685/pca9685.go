// Package pca9685 encodes register values for the PCA9685 16-channel PWM driver.
package pca9685

import (
	"fmt"
	"math"
)

// Registers
const (
	MODE1 = byte(0x00)
	MODE2 = byte(0x01)

	// First register of output n is LED0 + n*BYTE_PER_OUTPUT.
	// Default for LEDn_...: all zero, except for FULL_OFF_BIT in LEDn_OFF_H.
	LED0 = byte(0x06)

	ALL_LEDS  = byte(0xFA)
	PRE_SCALE = byte(0xFE) // Only settable in SLEEP mode. Default value: 0x30
)

// Default values all zero, except ALLCALL and SLEEP
const (
	MODE1_ALLCALL = byte(1 << iota) // 1: Respond to ALLCALL address
	MODE1_SUB3                      // 1: Respond to SUB3 address
	MODE1_SUB2                      // 1: Respond to SUB2 address
	MODE1_SUB1                      // 1: Respond to SUB1 address
	MODE1_SLEEP                     // 0: normal mode 1: oscillator off, low power mode
	MODE1_AI                        // 1: Register auto increment
	MODE1_EXTCLK                    // 1: use EXTCLK pin as clock source
	MODE1_RESTART                   // Write 1: wake up from SLEEP
)

const (
	ADDRESS     = byte(0x40) // 0100 0000
	NUM_OUTPUTS = 16

	BYTE_PER_OUTPUT  = 4
	TIMER_MAX        = 4095
	TIMER_RESOLUTION = TIMER_MAX + 1

	FULL_ON_BIT  = 0x10 // bit 4 of LEDn_ON_H.
	FULL_OFF_BIT = 0x10 // bit 4 of LEDn_OFF_H. Takes precedence over the FULL_ON_BIT.

	FREQ_MIN          = 23.84185791
	FREQ_MAX          = 1525.87890625
	FREQ_MIN_PRESALE  = byte(0xFF)
	FREQ_MAX_PRESCALE = byte(0x03) // Minimum value asserted by hardware

	INTERNAL_OSCILLATOR = 25000000 // 25 MHz
)

// Output returns the first register of the given PWM output.
func Output(index int) byte {
	return LED0 + byte(index)*BYTE_PER_OUTPUT
}

// Values for one output register block. Duty cycles of exactly 0 and 1 use
// the full off/on bits.
func Values(onTime float64) (byte, byte, byte, byte) {
	switch onTime {
	case 0:
		return 0, 0, 0, FULL_OFF_BIT
	case 1:
		return 0, FULL_ON_BIT, 0, 0
	}
	return ValuesDelayed(0, onTime)
}

// delay and onTime must be in [0; 1]
func ValuesDelayed(delayTime, onTime float64) (onL, onH, offL, offH byte) {
	if delayTime < 0 || delayTime > 1 || onTime < 0 || onTime > 1 {
		panic(fmt.Sprintf("Invalid timer values delay=%v onTime=%v", delayTime, onTime))
	}
	delayCount := round(delayTime*TIMER_RESOLUTION - 1)
	onCount := round(onTime * TIMER_RESOLUTION) // The onCount is added to delayCount, so the -1 correction is not required anymore
	if delayTime == 0 {
		delayCount = 0
		if onCount > 0 {
			onCount-- // Apply -1 correction since delayCount is zero
		}
	}
	if onTime == 0 {
		onCount = 0
	}

	on := delayCount
	off := on + onCount
	if off > TIMER_RESOLUTION {
		// Because of the delay, the first on-time is pushed into the second PWM cycle, and must be corrected
		off -= TIMER_RESOLUTION
	}
	onL, onH = byte(on), byte(on>>8)
	offL, offH = byte(off), byte(off>>8)
	return
}

func round(f float64) int {
	return int(math.Floor(f + .5))
}

func PrescalerExternalClock(externalOscillator float64, frequency float64) byte {
	v := externalOscillator / (float64(TIMER_RESOLUTION) * frequency)
	return byte(round(v)) - 1
}

func Prescaler(frequency float64) byte {
	return PrescalerExternalClock(INTERNAL_OSCILLATOR, frequency)
}

// PwmOutput tracks the duty cycles deployed on a contiguous range of outputs,
// so that only changed outputs are written.
type PwmOutput struct {
	CurrentState   []float64
	OptimizeUpdate bool
}

// Update returns the bytes to write to the device (starting with the register
// address), or nil if the state is already deployed.
func (m *PwmOutput) Update(firstPwmOutput byte, newState []float64) []byte {
	if len(m.CurrentState) != len(newState) {
		m.CurrentState = make([]float64, len(newState))
		m.OptimizeUpdate = false
	}
	numPwmOutputs := len(newState)

	// Compute smallest possible range of values to be updated
	updateFrom := 0
	updateTo := numPwmOutputs
	if m.OptimizeUpdate {
		for i := range newState {
			if m.CurrentState[i] != newState[i] {
				break
			}
			updateFrom++
		}
		for i := numPwmOutputs - 1; i >= 0; i-- {
			if m.CurrentState[i] != newState[i] {
				break
			}
			updateTo--
		}
		if updateFrom >= updateTo {
			return nil
		}
	}
	copy(m.CurrentState, newState)
	m.OptimizeUpdate = true

	pwmValues := make([]byte, 1, 1+BYTE_PER_OUTPUT*(updateTo-updateFrom))
	pwmValues[0] = firstPwmOutput + byte(updateFrom)*BYTE_PER_OUTPUT
	for _, val := range newState[updateFrom:updateTo] {
		onL, onH, offL, offH := Values(val)
		pwmValues = append(pwmValues, onL, onH, offL, offH)
	}
	return pwmValues
}

// Invalidate forces the next Update to write all outputs.
func (m *PwmOutput) Invalidate() {
	m.OptimizeUpdate = false
}
