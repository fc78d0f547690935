package motorboard

import (
	"flag"
	"math"

	"github.com/antongulenko/mecanum/ads1115"
	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Measure diff AIN0 to AIN3 continuously in 0..6V, comparator disabled
const batteryAdcConfig = ads1115.CONFIG_MUX_03 | ads1115.CONFIG_DR_32 | ads1115.CONFIG_PGA_6V | ads1115.CONFIG_COMP_QUE_OFF

var DefaultBattery = Battery{
	I2cAddr:      uint(ads1115.ADDR_GND),
	Min:          10.5,
	Max:          12.6,
	DividerRatio: 3,
}

// Battery monitors the drive battery through an ADS1115 behind a voltage divider.
type Battery struct {
	I2cAddr      uint
	Min          float64
	Max          float64
	DividerRatio float64
	Disabled     bool

	bus Bus
}

func (b *Battery) RegisterFlags() {
	flag.UintVar(&b.I2cAddr, "battery-addr", b.I2cAddr, "I2C address of the ADS1115 measuring the battery voltage")
	flag.Float64Var(&b.Min, "battery-min", b.Min, "Battery voltage considered empty")
	flag.Float64Var(&b.Max, "battery-max", b.Max, "Battery voltage considered full")
	flag.Float64Var(&b.DividerRatio, "battery-divider", b.DividerRatio, "Ratio of the voltage divider in front of the ADC")
	flag.BoolVar(&b.Disabled, "no-battery", b.Disabled, "Disable the battery voltage ADC")
}

func (b *Battery) Init(bus Bus) error {
	if b.Disabled {
		log.Println("Skipping initialization of battery ADC")
		return nil
	}
	addr := byte(b.I2cAddr)
	log.Printf("Initializing battery ADC at %#02x...", addr)
	err := ads1115.WriteRegister(bus, addr, ads1115.REG_CONFIG, batteryAdcConfig)
	if err == nil {
		// Configure the address of the register to be read by future reads
		err = ads1115.SelectRegister(bus, addr, ads1115.REG_CONVERSION)
	}
	if err != nil {
		return errors.Wrap(err, "failed to initialize battery ADC")
	}
	b.bus = bus
	return nil
}

func (b *Battery) Voltage() (float64, error) {
	if b.Disabled {
		return b.Max, nil
	}
	if b.bus == nil {
		return 0, errors.New("battery ADC is not initialized")
	}
	val, err := ads1115.ReadRegisterDirectly(b.bus, byte(b.I2cAddr))
	if err != nil {
		return 0, err
	}
	return float64(val) * ads1115.CONVERT_6V * b.DividerRatio, nil
}

// VoltageToPercentage maps the voltage linearly between Min and Max to [0, 1].
func (b *Battery) VoltageToPercentage(voltage float64) float64 {
	if b.Max <= b.Min {
		return 0
	}
	return math.Max(0, math.Min(1, (voltage-b.Min)/(b.Max-b.Min)))
}

func (b *Battery) Percentage() (float64, error) {
	val, err := b.Voltage()
	if err != nil {
		return 0, err
	}
	return b.VoltageToPercentage(val), nil
}

// Report adds the battery state to the telemetry without sending it.
func (b *Battery) Report(telemetry drivetrain.Telemetry) error {
	voltage, err := b.Voltage()
	if err != nil {
		return err
	}
	telemetry.AddData("battery voltage", voltage)
	telemetry.AddData("battery percentage", b.VoltageToPercentage(voltage))
	return nil
}
