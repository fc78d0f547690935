// Package sim simulates motors with encoders, for running without hardware and for tests.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

const (
	// No-load speed of a 312 rpm motor with 537.7 ticks per revolution
	DefaultTicksPerSecond = 2796
	DefaultTolerance      = 10
)

// Motor integrates the encoder position from the applied power over time.
// Positions are reported in the frame of the configured direction, like on
// the real motor controllers.
type Motor struct {
	Name           string
	TicksPerSecond float64
	Tolerance      int

	// If set, returned from every call
	Err error

	clock      clock.Clock
	lock       sync.Mutex
	lastUpdate time.Time

	power     float64
	direction drivetrain.Direction
	mode      drivetrain.RunMode
	zeroPower drivetrain.ZeroPowerBehavior
	target    int
	position  float64
}

func NewMotor(name string, clk clock.Clock) *Motor {
	if clk == nil {
		clk = clock.New()
	}
	return &Motor{
		Name:           name,
		TicksPerSecond: DefaultTicksPerSecond,
		Tolerance:      DefaultTolerance,
		clock:          clk,
		lastUpdate:     clk.Now(),
	}
}

// Must be called with the lock held
func (m *Motor) update() {
	now := m.clock.Now()
	elapsed := now.Sub(m.lastUpdate).Seconds()
	m.lastUpdate = now
	if elapsed <= 0 || m.power == 0 {
		return
	}
	step := m.power * m.TicksPerSecond * elapsed
	switch m.mode {
	case drivetrain.RunToPosition:
		diff := float64(m.target) - m.position
		step = math.Abs(step)
		if math.Abs(diff) <= step {
			m.position = float64(m.target)
		} else {
			m.position += math.Copysign(step, diff)
		}
	case drivetrain.StopAndResetEncoder:
	default:
		m.position += step
	}
}

func (m *Motor) SetPower(power float64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.update()
	m.power = math.Max(-1, math.Min(power, 1))
	log.Debugf("Sim motor %v: power %.2f", m.Name, m.power)
	return nil
}

func (m *Motor) SetDirection(dir drivetrain.Direction) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.update()
	if dir != m.direction {
		m.position = -m.position
		m.target = -m.target
	}
	m.direction = dir
	return nil
}

func (m *Motor) SetRunMode(mode drivetrain.RunMode) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.update()
	if mode == drivetrain.StopAndResetEncoder {
		m.power = 0
		m.position = 0
	}
	m.mode = mode
	return nil
}

func (m *Motor) SetTargetPosition(ticks int) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.update()
	m.target = ticks
	return nil
}

func (m *Motor) CurrentPosition() (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	m.update()
	return int(math.Round(m.position)), nil
}

// IsBusy is true while running to a position that is not yet within the tolerance.
func (m *Motor) IsBusy() (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	m.update()
	return m.isBusy(), nil
}

func (m *Motor) isBusy() bool {
	if m.mode != drivetrain.RunToPosition {
		return false
	}
	return math.Abs(float64(m.target)-m.position) > float64(m.Tolerance)
}

func (m *Motor) SetZeroPowerBehavior(behavior drivetrain.ZeroPowerBehavior) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.zeroPower = behavior
	return nil
}

func (m *Motor) Power() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.power
}

func (m *Motor) Direction() drivetrain.Direction {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.direction
}

func (m *Motor) RunMode() drivetrain.RunMode {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.mode
}

func (m *Motor) TargetPosition() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.target
}

func (m *Motor) ZeroPowerBehavior() drivetrain.ZeroPowerBehavior {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.zeroPower
}
