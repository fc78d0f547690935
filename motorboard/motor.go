package motorboard

import (
	"errors"
	"math"
	"sync"

	"github.com/antongulenko/mecanum/drivetrain"
	log "github.com/sirupsen/logrus"
)

const DefaultTolerance = 10

var ErrNoEncoder = errors.New("run-to-position requires an encoder, configure its pins with -encoder-<motor>")

// Encoder reports the raw position of a motor shaft in ticks.
type Encoder interface {
	Position() (int, error)
	Reset() error
}

// Motor is a DC motor on the board. Without an encoder, positions are
// always zero and RunToPosition is not available. With an encoder,
// RunToPosition drives toward the target and cuts the power once the position
// is within Tolerance. Polling IsBusy or CurrentPosition of any motor on the
// board advances all motors in RunToPosition mode.
//
// The driver of the board has a speed and a direction input only, it always
// brakes at zero speed. The ZeroPowerBehavior is recorded but does not change
// the outputs.
type Motor struct {
	name     string
	board    *Board
	channels MotorChannels

	Tolerance int

	lock      sync.Mutex
	encoder   Encoder
	power     float64
	direction drivetrain.Direction
	mode      drivetrain.RunMode
	zeroPower drivetrain.ZeroPowerBehavior
	target    int
}

func (m *Motor) SetEncoder(enc Encoder) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.encoder = enc
}

func (m *Motor) SetPower(power float64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.power = math.Max(-1, math.Min(power, 1))
	if m.mode == drivetrain.StopAndResetEncoder {
		return nil
	}
	if m.mode == drivetrain.RunToPosition {
		_, err := m.seek()
		return err
	}
	return m.apply(m.power)
}

// Must be called with the lock held
func (m *Motor) apply(power float64) error {
	forward := power >= 0
	if m.direction == drivetrain.Reverse {
		forward = !forward
	}
	return m.board.setOutputs(m.channels, math.Abs(power), forward)
}

func (m *Motor) SetDirection(dir drivetrain.Direction) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if dir == m.direction {
		return nil
	}
	m.direction = dir
	if m.mode == drivetrain.RunWithoutEncoder || m.mode == drivetrain.RunUsingEncoder {
		return m.apply(m.power)
	}
	return nil
}

func (m *Motor) SetRunMode(mode drivetrain.RunMode) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	switch mode {
	case drivetrain.StopAndResetEncoder:
		m.power = 0
		if err := m.apply(0); err != nil {
			return err
		}
		if m.encoder != nil {
			if err := m.encoder.Reset(); err != nil {
				return err
			}
		}
	case drivetrain.RunToPosition:
		if m.encoder == nil {
			return ErrNoEncoder
		}
	}
	log.Debugf("Motor %v: %v", m.name, mode)
	m.mode = mode
	return nil
}

func (m *Motor) SetTargetPosition(ticks int) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.target = ticks
	return nil
}

func (m *Motor) CurrentPosition() (int, error) {
	if _, err := m.board.seekAll(m); err != nil {
		return 0, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.position()
}

// Must be called with the lock held
func (m *Motor) position() (int, error) {
	if m.encoder == nil {
		return 0, nil
	}
	pos, err := m.encoder.Position()
	if m.direction == drivetrain.Reverse {
		pos = -pos
	}
	return pos, err
}

func (m *Motor) IsBusy() (bool, error) {
	return m.board.seekAll(m)
}

func (m *Motor) seekTarget() (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.mode != drivetrain.RunToPosition {
		return false, nil
	}
	return m.seek()
}

// Must be called with the lock held
func (m *Motor) seek() (bool, error) {
	pos, err := m.position()
	if err != nil {
		return false, err
	}
	diff := m.target - pos
	if diff >= -m.Tolerance && diff <= m.Tolerance {
		return false, m.apply(0)
	}
	return true, m.apply(math.Copysign(math.Abs(m.power), float64(diff)))
}

func (m *Motor) SetZeroPowerBehavior(behavior drivetrain.ZeroPowerBehavior) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.zeroPower = behavior
	return nil
}

func (m *Motor) ZeroPowerBehavior() drivetrain.ZeroPowerBehavior {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.zeroPower
}
