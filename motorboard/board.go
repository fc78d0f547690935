// Package motorboard drives DC motors through a PCA9685 PWM board on a Linux I2C bus.
// Every motor uses two PWM outputs: one for the speed and one for the direction pin of the H-bridge.
package motorboard

import (
	"flag"
	"fmt"
	"sort"
	"sync"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/antongulenko/mecanum/pca9685"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

type MotorChannels struct {
	Speed     int
	Direction int
	Invert    bool

	// Optional, required for RunToPosition
	Encoder EncoderPins
}

// DefaultBoard returns the configuration of the robot's motor board: PCA9685
// at the default address, outputs 0-9 used for the five motors.
func DefaultBoard() Board {
	return Board{
		BusName:         "",
		I2cFreqKHz:      400,
		I2cRequestQueue: 20,
		PwmAddr:         uint(pca9685.ADDRESS),
		PwmFrequency:    1000,
		Motors: map[string]MotorChannels{
			drivetrain.FrontLeftName:  {Speed: 0, Direction: 1},
			drivetrain.FrontRightName: {Speed: 2, Direction: 3},
			drivetrain.BackLeftName:   {Speed: 4, Direction: 5},
			drivetrain.BackRightName:  {Speed: 6, Direction: 7},
			drivetrain.WeirdWheelName: {Speed: 8, Direction: 9},
		},
		Battery: DefaultBattery,
	}
}

type Board struct {
	BusName         string
	I2cFreqKHz      uint
	I2cRequestQueue int
	NoI2cSequencer  bool

	PwmAddr      uint
	PwmFrequency float64

	Motors  map[string]MotorChannels
	Battery Battery

	// Resolves encoder pin names, gpioreg.ByName if nil
	PinByName func(name string) gpio.PinIn

	closer    i2c.BusCloser
	sequencer *SequencedBus
	bus       Bus

	lock     sync.Mutex
	duty     [pca9685.NUM_OUTPUTS]float64
	pwm      pca9685.PwmOutput
	motors   map[string]*Motor
	encoders map[string]*QuadratureEncoder
}

func (b *Board) RegisterFlags() {
	flag.StringVar(&b.BusName, "i2c", b.BusName, "Name of the I2C bus (empty: first available bus)")
	flag.UintVar(&b.I2cFreqKHz, "freq", b.I2cFreqKHz, "The I2C bus frequency in kHz")
	flag.BoolVar(&b.NoI2cSequencer, "no-i2c-sequencer", b.NoI2cSequencer, "Disable the extra goroutine for sequencing I2C commands")
	flag.UintVar(&b.PwmAddr, "pwm-addr", b.PwmAddr, "I2C address of the PCA9685 PWM board")
	flag.Float64Var(&b.PwmFrequency, "pwm-freq", b.PwmFrequency, "PWM frequency of the motor outputs in Hz")
	for _, name := range b.motorNames() {
		name := name
		flag.Var(invertFlag{b, name}, "invert-"+name, "Invert the direction pin of motor "+name)
		flag.Var(encoderFlag{b, name}, "encoder-"+name, "GPIO pins <A>,<B> of the quadrature encoder of motor "+name)
	}
	b.Battery.RegisterFlags()
}

func (b *Board) motorNames() []string {
	names := make([]string, 0, len(b.Motors))
	for name := range b.Motors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open initializes the periph.io host drivers, opens the I2C bus and initializes the board.
func (b *Board) Open() error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize periph.io host drivers")
	}
	bus, err := i2creg.Open(b.BusName)
	if err != nil {
		return errors.Wrapf(err, "failed to open I2C bus '%v'", b.BusName)
	}
	if err := bus.SetSpeed(physic.Frequency(b.I2cFreqKHz) * physic.KiloHertz); err != nil {
		golib.Printerr(bus.Close())
		return errors.Wrap(err, "failed to set I2C bus speed")
	}
	log.Printf("Opened I2C bus %v", bus)
	b.closer = bus
	return b.Init(bus)
}

// Init configures the PWM board on the given bus and turns off all outputs.
func (b *Board) Init(bus Bus) error {
	if err := b.validateChannels(); err != nil {
		return err
	}
	if b.NoI2cSequencer {
		b.bus = bus
	} else {
		b.sequencer = NewSequencedBus(bus, b.I2cRequestQueue)
		b.bus = b.sequencer
	}
	b.motors = make(map[string]*Motor, len(b.Motors))
	if err := b.openEncoders(); err != nil {
		return err
	}

	addr := byte(b.PwmAddr)
	log.Printf("Initializing PWM driver at %#02x with %vHz...", addr, b.PwmFrequency)
	// The prescaler can only be written while sleeping
	if err := write(b.bus, addr, pca9685.MODE1, pca9685.MODE1_SLEEP); err != nil {
		return err
	}
	if err := write(b.bus, addr, pca9685.PRE_SCALE, pca9685.Prescaler(b.PwmFrequency)); err != nil {
		return err
	}
	if err := write(b.bus, addr, pca9685.MODE1, pca9685.MODE1_ALLCALL|pca9685.MODE1_AI); err != nil {
		return err
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	b.duty = [pca9685.NUM_OUTPUTS]float64{}
	b.pwm.Invalidate()
	if err := b.flush(); err != nil {
		return err
	}
	return b.Battery.Init(b.bus)
}

func (b *Board) validateChannels() error {
	used := make(map[int]string)
	for _, name := range b.motorNames() {
		ch := b.Motors[name]
		for _, out := range []int{ch.Speed, ch.Direction} {
			if out < 0 || out >= pca9685.NUM_OUTPUTS {
				return fmt.Errorf("Motor %v: invalid PWM output %v", name, out)
			}
			if other, ok := used[out]; ok {
				return fmt.Errorf("Motor %v: PWM output %v is already used by %v", name, out, other)
			}
			used[out] = name
		}
	}
	return nil
}

func (b *Board) openEncoders() (err error) {
	b.encoders = make(map[string]*QuadratureEncoder)
	defer func() {
		if err != nil {
			for _, enc := range b.encoders {
				enc.Close()
			}
			b.encoders = nil
		}
	}()
	for _, name := range b.motorNames() {
		pins := b.Motors[name].Encoder
		if !pins.Configured() {
			continue
		}
		a, err := b.pin(pins.A)
		if err != nil {
			return errors.Wrapf(err, "encoder of motor %v", name)
		}
		bPin, err := b.pin(pins.B)
		if err != nil {
			return errors.Wrapf(err, "encoder of motor %v", name)
		}
		enc, err := NewQuadratureEncoder(a, bPin)
		if err != nil {
			return errors.Wrapf(err, "encoder of motor %v", name)
		}
		log.Printf("Motor %v: counting %v", name, enc)
		b.encoders[name] = enc
	}
	return nil
}

func (b *Board) pin(name string) (gpio.PinIn, error) {
	var p gpio.PinIn
	if b.PinByName != nil {
		p = b.PinByName(name)
	} else if io := gpioreg.ByName(name); io != nil {
		p = io
	}
	if p == nil {
		return nil, fmt.Errorf("No GPIO pin named '%v'", name)
	}
	return p, nil
}

// MissingEncoders returns the given motors that have no encoder pins configured.
func (b *Board) MissingEncoders(names ...string) []string {
	var missing []string
	for _, name := range names {
		if !b.Motors[name].Encoder.Configured() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Motor implements drivetrain.HardwareMap.
func (b *Board) Motor(name string) (drivetrain.Motor, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.bus == nil {
		return nil, fmt.Errorf("Motor board is not initialized")
	}
	if m, ok := b.motors[name]; ok {
		return m, nil
	}
	ch, ok := b.Motors[name]
	if !ok {
		return nil, fmt.Errorf("No motor named '%v' configured on the motor board", name)
	}
	m := &Motor{
		name:      name,
		board:     b,
		channels:  ch,
		Tolerance: DefaultTolerance,
	}
	if enc, ok := b.encoders[name]; ok {
		m.encoder = enc
	}
	b.motors[name] = m
	return m, nil
}

// MotorHandle returns the concrete motor, for attaching a different encoder.
func (b *Board) MotorHandle(name string) (*Motor, error) {
	m, err := b.Motor(name)
	if err != nil {
		return nil, err
	}
	return m.(*Motor), nil
}

// motorList returns the motors created so far, ordered by name.
func (b *Board) motorList() []*Motor {
	b.lock.Lock()
	defer b.lock.Unlock()
	names := make([]string, 0, len(b.motors))
	for name := range b.motors {
		names = append(names, name)
	}
	sort.Strings(names)
	res := make([]*Motor, len(names))
	for i, name := range names {
		res[i] = b.motors[name]
	}
	return res
}

// seekAll moves every motor in RunToPosition mode toward its target, so that
// each motor stops at its own target however the motors are polled.
// Returns whether self is still busy. Errors of other motors are only logged,
// they are returned when those motors are polled themselves.
// Must be called without holding any motor lock.
func (b *Board) seekAll(self *Motor) (selfBusy bool, selfErr error) {
	for _, m := range b.motorList() {
		busy, err := m.seekTarget()
		if m == self {
			selfBusy, selfErr = busy, err
		} else if err != nil {
			log.Warnf("Motor %v: %v", m.name, err)
		}
	}
	return
}

func (b *Board) setOutputs(channels MotorChannels, speed float64, forward bool) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	dir := 0.0
	if forward != channels.Invert {
		dir = 1
	}
	b.duty[channels.Speed] = speed
	b.duty[channels.Direction] = dir
	return b.flush()
}

// Must be called with the lock held
func (b *Board) flush() error {
	values := b.pwm.Update(pca9685.LED0, b.duty[:])
	if values == nil {
		return nil
	}
	err := write(b.bus, byte(b.PwmAddr), values...)
	if err != nil {
		// Unknown state on the device, write everything next time
		b.pwm.Invalidate()
	}
	return err
}

// Close turns off all outputs and releases the bus.
func (b *Board) Close() error {
	for _, enc := range b.encoders {
		enc.Close()
	}
	var err error
	if b.bus != nil {
		b.lock.Lock()
		b.duty = [pca9685.NUM_OUTPUTS]float64{}
		err = b.flush()
		b.lock.Unlock()
	}
	if b.sequencer != nil {
		b.sequencer.Close()
	}
	if b.closer != nil {
		if closeErr := b.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

type invertFlag struct {
	b    *Board
	name string
}

func (f invertFlag) String() string {
	if f.b == nil {
		return "false"
	}
	return fmt.Sprint(f.b.Motors[f.name].Invert)
}

func (f invertFlag) Set(val string) error {
	ch := f.b.Motors[f.name]
	switch val {
	case "true", "1":
		ch.Invert = true
	case "false", "0":
		ch.Invert = false
	default:
		return fmt.Errorf("Invalid boolean value %q", val)
	}
	f.b.Motors[f.name] = ch
	return nil
}

func (f invertFlag) IsBoolFlag() bool {
	return true
}
