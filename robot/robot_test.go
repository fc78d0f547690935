package robot

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/antongulenko/mecanum/motorboard"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBus struct {
	lock sync.Mutex
	txs  int
	err  error
}

func (b *countingBus) Tx(addr uint16, w, r []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.txs++
	return b.err
}

func TestDummySetup(t *testing.T) {
	assert := assert.New(t)
	r := DefaultRobot()
	r.Dummy = true
	r.Drivetrain.Clock = clock.NewMock()

	drive, err := r.Setup()
	require.NoError(t, err)
	require.NotNil(t, r.Sim())
	assert.Len(r.Sim().Names(), 5)
	assert.NoError(r.ReportBattery())

	require.NoError(t, drive.Drive(0, 1, 0))
	require.NoError(t, drive.WeirdWheelDrive(0.5, 0))
	assert.Equal(0.5, r.Sim().Get(drivetrain.FrontLeftName).Power())
	assert.Equal(0.5, r.Sim().Get(drivetrain.WeirdWheelName).Power())

	r.Cleanup()
	for _, name := range r.Sim().Names() {
		assert.Equal(0.0, r.Sim().Get(name).Power(), name)
	}
}

func TestBoardSetup(t *testing.T) {
	r := DefaultRobot()
	r.Board.NoI2cSequencer = true
	bus := new(countingBus)

	drive, err := r.SetupBus(bus)
	require.NoError(t, err)
	assert.Nil(t, r.Sim())
	initTxs := bus.txs

	require.NoError(t, drive.Drive(1, 0, 0))
	assert.True(t, bus.txs > initTxs)

	tel := drivetrain.NewLogTelemetry()
	r.Telemetry = tel
	require.NoError(t, r.ReportBattery())
	assert.Equal(t, []string{"battery voltage", "battery percentage"}, tel.Keys())

	r.Cleanup()
	// Closed twice is harmless
	r.Cleanup()
	assert.NoError(t, r.ReportBattery())
}

func TestBoardSetupError(t *testing.T) {
	r := DefaultRobot()
	r.Board.NoI2cSequencer = true
	_, err := r.SetupBus(&countingBus{err: errors.New("nack")})
	assert.Error(t, err)
}

func TestMissingMotor(t *testing.T) {
	r := DefaultRobot()
	r.Board.NoI2cSequencer = true
	delete(r.Board.Motors, drivetrain.BackRightName)
	_, err := r.SetupBus(new(countingBus))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), drivetrain.BackRightName)
}

func TestCheckEncoders(t *testing.T) {
	r := DefaultRobot()
	err := r.CheckEncoders()
	require.Error(t, err)
	assert.Contains(t, err.Error(), drivetrain.FrontLeftName)
	assert.Contains(t, err.Error(), "-encoder-")

	for i, name := range []string{drivetrain.FrontLeftName, drivetrain.FrontRightName, drivetrain.BackLeftName, drivetrain.BackRightName} {
		ch := r.Board.Motors[name]
		ch.Encoder = motorboard.EncoderPins{A: fmt.Sprintf("GPIO%v", 2*i), B: fmt.Sprintf("GPIO%v", 2*i+1)}
		r.Board.Motors[name] = ch
	}
	assert.NoError(t, r.CheckEncoders())

	dummy := DefaultRobot()
	dummy.Dummy = true
	assert.NoError(t, dummy.CheckEncoders())
}
