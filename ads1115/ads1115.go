// Package ads1115 contains register definitions for the ADS1115 16-bit analog/digital converter.
package ads1115

import (
	"fmt"
)

const (
	// The ADDR pin can be connected to one of the following 4 pins to select the respective I2C address
	ADDR_GND = byte(0x48)
	ADDR_VDD = byte(0x49)
	ADDR_SDA = byte(0x4A)
	ADDR_SCL = byte(0x4B)

	// Can be issued as second byte directly after an I2C general call to power down the device
	GENERAL_CALL_SHUTDOWN = byte(0x06)
)

// The addresses of the writable/readable registers
const (
	REG_CONVERSION = byte(iota)
	REG_CONFIG
	REG_LO_THRESH // Default: 0x8000, relevant for CONFIG_COMP_* bits
	REG_HI_THRESH // Default: 0x7FFF
)

// Bits for the CONFIG register

const (
	// Operational State. If written, starts a one-short conversion.
	// If read, indicates whether conversion is taking place (1 = NO operation)
	CONFIG_OS = uint16(0x8000)
)

// Selection of inputs. First number is the positive input, second number the negative input.
// Default: CONFIG_MUX_01
const (
	CONFIG_MUX_01 = uint16(iota) << 12
	CONFIG_MUX_03
	CONFIG_MUX_13
	CONFIG_MUX_23
	CONFIG_MUX_0GND
	CONFIG_MUX_1GND
	CONFIG_MUX_2GND
	CONFIG_MUX_3GND
)

// Selection of Full Scale (max input voltage values when converting)
// Default: CONFIG_PGA_2V
const (
	CONFIG_PGA_6V     = uint16(iota) << 9 // 6.144V
	CONFIG_PGA_4V                         // 4.096V
	CONFIG_PGA_2V                         // 2.048V
	CONFIG_PGA_1V                         // 1.024V
	CONFIG_PGA_0_5V                       // 0.512V
	CONFIG_PGA_0_25V1                     // 0.256V
	CONFIG_PGA_0_25V2                     // 0.256V
	CONFIG_PGA_0_25V3                     // 0.256V

	// Mode bit: 1 = single-shot mode/power down. 0 = continuous mode
	CONFIG_MODE = uint16(0x100)
)

// Data conversion rate (samples per second). higher rate -> lower accuracy/resolution
// Default: CONFIG_DR_128
const (
	CONFIG_DR_8 = uint16(iota) << 5
	CONFIG_DR_16
	CONFIG_DR_32
	CONFIG_DR_64
	CONFIG_DR_128
	CONFIG_DR_250
	CONFIG_DR_475
	CONFIG_DR_860
)

const (
	// Comparator mode. 0 = traditional comparator (default), 1 = window comparator
	CONFIG_COMP_MODE = uint16(0x10)

	// Polarity of ALERT/RDY pin. 0 = active low (default), 1 = active high
	CONFIG_COMP_POL = uint16(0x8)

	// 0 = nolatching comparator (default), 1 = latching comparator
	CONFIG_COMP_LAT = uint16(0x4)

	// Number of successive comparisons exceeding the thresholds, after which the ALERT/RDY pin will be activated
	// Default: CONFIG_COMP_QUE_OFF (ALERT/RDY pin set to high impedance)
	CONFIG_COMP_QUE_1   = uint16(0)
	CONFIG_COMP_QUE_2   = uint16(1)
	CONFIG_COMP_QUE_4   = uint16(2)
	CONFIG_COMP_QUE_OFF = uint16(3)
)

// Volts per LSB of the conversion register for the respective CONFIG_PGA_* setting
const (
	CONVERT_6V = 6.144 / 32768
	CONVERT_4V = 4.096 / 32768
	CONVERT_2V = 2.048 / 32768
	CONVERT_1V = 1.024 / 32768
)

// Bus is satisfied by periph.io/x/conn/v3/i2c.Bus.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

func WriteRegister(bus Bus, i2cAddr byte, register byte, val uint16) error {
	return bus.Tx(uint16(i2cAddr), []byte{register, byte(val >> 8), byte(val)}, nil)
}

// SelectRegister sets the register that subsequent ReadRegisterDirectly calls return.
func SelectRegister(bus Bus, i2cAddr byte, register byte) error {
	return bus.Tx(uint16(i2cAddr), []byte{register}, nil)
}

func ReadRegister(bus Bus, i2cAddr byte, register byte) (int16, error) {
	v := make([]byte, 2)
	if err := bus.Tx(uint16(i2cAddr), []byte{register}, v); err != nil {
		return 0, err
	}
	return ParseConversionRegister(v)
}

func ReadRegisterDirectly(bus Bus, i2cAddr byte) (int16, error) {
	v := make([]byte, 2)
	if err := bus.Tx(uint16(i2cAddr), nil, v); err != nil {
		return 0, err
	}
	return ParseConversionRegister(v)
}

// ParseConversionRegister decodes the big-endian two's complement register value.
func ParseConversionRegister(v []byte) (int16, error) {
	if len(v) != 2 {
		return 0, fmt.Errorf("ADS1115 read len %v (need 2 byte)", len(v))
	}
	return int16(uint16(v[0])<<8 | uint16(v[1])), nil
}
