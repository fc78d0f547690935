package motorboard

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/antongulenko/mecanum/ads1115"
	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/antongulenko/mecanum/pca9685"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tx struct {
	addr  uint16
	write []byte
}

type fakeBus struct {
	lock    sync.Mutex
	txs     []tx
	readVal []byte
	err     error
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.err != nil {
		return b.err
	}
	b.txs = append(b.txs, tx{addr, append([]byte(nil), w...)})
	copy(r, b.readVal)
	return nil
}

func (b *fakeBus) take() []tx {
	b.lock.Lock()
	defer b.lock.Unlock()
	res := b.txs
	b.txs = nil
	return res
}

type fakeEncoder struct {
	pos    int
	resets int
}

func (e *fakeEncoder) Position() (int, error) {
	return e.pos, nil
}

func (e *fakeEncoder) Reset() error {
	e.pos = 0
	e.resets++
	return nil
}

func initBoard(t *testing.T) (*Board, *fakeBus) {
	board := DefaultBoard()
	board.NoI2cSequencer = true
	bus := new(fakeBus)
	require.NoError(t, board.Init(bus))
	bus.take()
	return &board, bus
}

func TestBoardInit(t *testing.T) {
	assert := assert.New(t)
	board := DefaultBoard()
	board.NoI2cSequencer = true
	bus := new(fakeBus)
	require.NoError(t, board.Init(bus))

	txs := bus.take()
	require.Len(t, txs, 6)
	pwm := uint16(pca9685.ADDRESS)
	assert.Equal(tx{pwm, []byte{pca9685.MODE1, pca9685.MODE1_SLEEP}}, txs[0])
	assert.Equal(tx{pwm, []byte{pca9685.PRE_SCALE, 5}}, txs[1])
	assert.Equal(tx{pwm, []byte{pca9685.MODE1, 0x21}}, txs[2])
	assert.Equal(pwm, txs[3].addr)
	assert.Len(txs[3].write, 1+pca9685.NUM_OUTPUTS*pca9685.BYTE_PER_OUTPUT)
	assert.Equal(pca9685.LED0, txs[3].write[0])

	adc := uint16(ads1115.ADDR_GND)
	assert.Equal(tx{adc, []byte{ads1115.REG_CONFIG, 0x10, 0x43}}, txs[4])
	assert.Equal(tx{adc, []byte{ads1115.REG_CONVERSION}}, txs[5])
}

func TestBoardInitError(t *testing.T) {
	board := DefaultBoard()
	board.NoI2cSequencer = true
	assert.Error(t, board.Init(&fakeBus{err: errors.New("nack")}))
}

func TestBoardValidateChannels(t *testing.T) {
	board := DefaultBoard()
	board.NoI2cSequencer = true
	board.Motors[drivetrain.WeirdWheelName] = MotorChannels{Speed: 0, Direction: 15}
	assert.Error(t, board.Init(new(fakeBus)))

	board = DefaultBoard()
	board.NoI2cSequencer = true
	board.Motors[drivetrain.WeirdWheelName] = MotorChannels{Speed: 16, Direction: 15}
	assert.Error(t, board.Init(new(fakeBus)))
}

func TestBoardMotorLookup(t *testing.T) {
	var uninitialized Board
	_, err := uninitialized.Motor(drivetrain.FrontLeftName)
	assert.Error(t, err)

	board, _ := initBoard(t)
	m1, err := board.Motor(drivetrain.FrontLeftName)
	require.NoError(t, err)
	m2, err := board.MotorHandle(drivetrain.FrontLeftName)
	require.NoError(t, err)
	assert.True(t, m1 == drivetrain.Motor(m2))
	_, err = board.Motor("nope")
	assert.Error(t, err)
}

func TestMotorOutputs(t *testing.T) {
	assert := assert.New(t)
	board, bus := initBoard(t)
	m, err := board.Motor(drivetrain.FrontLeftName)
	require.NoError(t, err)

	require.NoError(t, m.SetPower(0.5))
	assert.Equal([]tx{{0x40, []byte{pca9685.Output(0), 0, 0, 0xff, 0x07, 0, pca9685.FULL_ON_BIT, 0, 0}}}, bus.take())

	// Only the direction output changes
	require.NoError(t, m.SetPower(-0.5))
	assert.Equal([]tx{{0x40, []byte{pca9685.Output(1), 0, 0, 0, pca9685.FULL_OFF_BIT}}}, bus.take())

	// Reversing the motor flips the direction pin for the same power
	require.NoError(t, m.SetDirection(drivetrain.Reverse))
	assert.Equal([]tx{{0x40, []byte{pca9685.Output(1), 0, pca9685.FULL_ON_BIT, 0, 0}}}, bus.take())

	// Clipped to full power
	require.NoError(t, m.SetPower(-3))
	assert.Equal([]tx{{0x40, []byte{pca9685.Output(0), 0, pca9685.FULL_ON_BIT, 0, 0}}}, bus.take())

	require.NoError(t, m.SetPower(-1))
	assert.Empty(bus.take())
}

func TestMotorInvert(t *testing.T) {
	board := DefaultBoard()
	board.NoI2cSequencer = true
	require.NoError(t, invertFlag{&board, drivetrain.FrontRightName}.Set("true"))
	assert.Equal(t, "true", invertFlag{&board, drivetrain.FrontRightName}.String())
	assert.Error(t, invertFlag{&board, drivetrain.FrontRightName}.Set("maybe"))
	bus := new(fakeBus)
	require.NoError(t, board.Init(bus))
	bus.take()

	m, err := board.Motor(drivetrain.FrontRightName)
	require.NoError(t, err)
	require.NoError(t, m.SetPower(1))
	// Speed on output 2, direction pin on output 3 stays low
	assert.Equal(t, []tx{{0x40, []byte{pca9685.Output(2), 0, pca9685.FULL_ON_BIT, 0, 0}}}, bus.take())
}

func TestMotorWithoutEncoder(t *testing.T) {
	board, _ := initBoard(t)
	m, err := board.Motor(drivetrain.BackLeftName)
	require.NoError(t, err)
	require.NoError(t, m.SetPower(0.7))

	assert.Equal(t, ErrNoEncoder, m.SetRunMode(drivetrain.RunToPosition))
	require.NoError(t, m.SetRunMode(drivetrain.StopAndResetEncoder))
	pos, err := m.CurrentPosition()
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	busy, err := m.IsBusy()
	require.NoError(t, err)
	assert.False(t, busy)
	assert.Equal(t, 0.0, board.duty[4])
}

func TestMotorRunToPosition(t *testing.T) {
	assert := assert.New(t)
	board, _ := initBoard(t)
	m, err := board.MotorHandle(drivetrain.BackRightName)
	require.NoError(t, err)
	enc := &fakeEncoder{pos: 33}
	m.SetEncoder(enc)

	require.NoError(t, m.SetRunMode(drivetrain.StopAndResetEncoder))
	assert.Equal(1, enc.resets)
	require.NoError(t, m.SetTargetPosition(100))
	require.NoError(t, m.SetRunMode(drivetrain.RunToPosition))
	require.NoError(t, m.SetPower(-0.3))

	// Moving forward toward the target, regardless of the sign of the power
	assert.Equal(0.3, board.duty[6])
	assert.Equal(1.0, board.duty[7])
	busy, err := m.IsBusy()
	require.NoError(t, err)
	assert.True(busy)

	enc.pos = 150
	busy, err = m.IsBusy()
	require.NoError(t, err)
	assert.True(busy)
	assert.Equal(0.3, board.duty[6])
	assert.Equal(0.0, board.duty[7])

	enc.pos = 95
	busy, err = m.IsBusy()
	require.NoError(t, err)
	assert.False(busy)
	assert.Equal(0.0, board.duty[6])

	pos, err := m.CurrentPosition()
	require.NoError(t, err)
	assert.Equal(95, pos)
	require.NoError(t, m.SetDirection(drivetrain.Reverse))
	pos, err = m.CurrentPosition()
	require.NoError(t, err)
	assert.Equal(-95, pos)
}

func TestDrivetrainRunToPositionOnBoard(t *testing.T) {
	assert := assert.New(t)
	board, _ := initBoard(t)
	encoders := make(map[string]*fakeEncoder)
	for _, name := range []string{drivetrain.FrontLeftName, drivetrain.FrontRightName, drivetrain.BackLeftName, drivetrain.BackRightName} {
		m, err := board.MotorHandle(name)
		require.NoError(t, err)
		encoders[name] = new(fakeEncoder)
		m.SetEncoder(encoders[name])
	}
	config := drivetrain.DefaultConfig
	d, err := drivetrain.New(board, drivetrain.NewLogTelemetry(), config)
	require.NoError(t, err)
	speed := func() []float64 {
		return []float64{board.duty[0], board.duty[2], board.duty[4], board.duty[6]}
	}

	m := d.DistanceManeuver(10, drivetrain.PresetForward, 0.5)
	now := time.Now()
	state, err := m.Step(now)
	require.NoError(t, err)
	require.Equal(t, drivetrain.Settling, state)
	state, err = m.Step(now.Add(config.SettleDelay))
	require.NoError(t, err)
	require.Equal(t, drivetrain.Moving, state)
	assert.Equal([]float64{0.5, 0.5, 0.5, 0.5}, speed())

	// The left motors are reversed in the forward preset, their encoders count down
	encoders[drivetrain.FrontRightName].pos = 453
	moving, err := d.IsMoving()
	require.NoError(t, err)
	assert.True(moving)
	assert.Equal([]float64{0.5, 0, 0.5, 0.5}, speed())

	encoders[drivetrain.BackRightName].pos = 460
	moving, err = d.IsMoving()
	require.NoError(t, err)
	assert.True(moving)
	assert.Equal([]float64{0.5, 0, 0.5, 0}, speed())

	// Overshooting motors drive back
	encoders[drivetrain.FrontRightName].pos = 470
	encoders[drivetrain.FrontLeftName].pos = -450
	state, err = m.Step(now.Add(config.SettleDelay))
	require.NoError(t, err)
	assert.Equal(drivetrain.Moving, state)
	assert.Equal([]float64{0, 0.5, 0.5, 0}, speed())
	assert.Equal(0.0, board.duty[3])

	encoders[drivetrain.FrontRightName].pos = 455
	encoders[drivetrain.BackLeftName].pos = -453
	state, err = m.Step(now.Add(config.SettleDelay))
	require.NoError(t, err)
	assert.Equal(drivetrain.Stopped, state)
	assert.Equal([]float64{0, 0, 0, 0}, speed())
}

func TestMotorPositionPollSeeksAllMotors(t *testing.T) {
	board, _ := initBoard(t)
	left, err := board.MotorHandle(drivetrain.FrontLeftName)
	require.NoError(t, err)
	right, err := board.MotorHandle(drivetrain.FrontRightName)
	require.NoError(t, err)
	enc := new(fakeEncoder)
	right.SetEncoder(enc)
	require.NoError(t, right.SetTargetPosition(50))
	require.NoError(t, right.SetRunMode(drivetrain.RunToPosition))
	require.NoError(t, right.SetPower(1))
	assert.Equal(t, 1.0, board.duty[2])

	enc.pos = 48
	pos, err := left.CurrentPosition()
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 0.0, board.duty[2])
}

func TestMotorZeroPowerBehavior(t *testing.T) {
	board, bus := initBoard(t)
	m, err := board.MotorHandle(drivetrain.FrontLeftName)
	require.NoError(t, err)
	require.NoError(t, m.SetPower(0.5))
	bus.take()

	// The driver brakes at zero speed in both cases, only the setting is recorded
	require.NoError(t, m.SetZeroPowerBehavior(drivetrain.Brake))
	assert.Equal(t, drivetrain.Brake, m.ZeroPowerBehavior())
	assert.Empty(t, bus.take())
	require.NoError(t, m.SetPower(0))
	braking := bus.take()
	require.NoError(t, m.SetPower(0.5))
	bus.take()
	require.NoError(t, m.SetZeroPowerBehavior(drivetrain.Float))
	assert.Equal(t, drivetrain.Float, m.ZeroPowerBehavior())
	require.NoError(t, m.SetPower(0))
	assert.Equal(t, braking, bus.take())
}

func TestSequencedBus(t *testing.T) {
	bus := new(fakeBus)
	seq := NewSequencedBus(bus, 2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, write(seq, 0x10, byte(i)))
		}(i)
	}
	wg.Wait()
	assert.Len(t, bus.take(), 10)

	bus.err = errors.New("nack")
	assert.Error(t, write(seq, 0x10, 1))

	seq.Close()
	seq.Close()
	assert.Equal(t, ErrBusClosed, write(seq, 0x10, 1))
}

func TestBoardClose(t *testing.T) {
	board := DefaultBoard()
	bus := new(fakeBus)
	require.NoError(t, board.Init(bus))
	m, err := board.Motor(drivetrain.WeirdWheelName)
	require.NoError(t, err)
	require.NoError(t, m.SetPower(1))
	bus.take()

	require.NoError(t, board.Close())
	txs := bus.take()
	require.Len(t, txs, 1)
	assert.Equal(t, pca9685.Output(8), txs[0].write[0])
	assert.Equal(t, ErrBusClosed, m.SetPower(1))
}

func TestBattery(t *testing.T) {
	assert := assert.New(t)
	bat := DefaultBattery
	assert.Equal(0.0, bat.VoltageToPercentage(9))
	assert.Equal(1.0, bat.VoltageToPercentage(13))
	assert.InDelta(0.5, bat.VoltageToPercentage(11.55), 1e-9)

	_, err := bat.Voltage()
	assert.Error(err)

	// 4 V at the ADC pin, 12 V at the battery
	raw := int16(21333)
	bus := &fakeBus{readVal: []byte{byte(uint16(raw) >> 8), byte(raw)}}
	require.NoError(t, bat.Init(bus))
	v, err := bat.Voltage()
	require.NoError(t, err)
	assert.InDelta(12, v, 0.01)

	tel := drivetrain.NewLogTelemetry()
	require.NoError(t, bat.Report(tel))
	assert.Equal([]string{"battery voltage", "battery percentage"}, tel.Keys())

	disabled := DefaultBattery
	disabled.Disabled = true
	require.NoError(t, disabled.Init(nil))
	v, err = disabled.Voltage()
	require.NoError(t, err)
	assert.Equal(disabled.Max, v)
}
