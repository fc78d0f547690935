package motorboard

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/gpio"
)

// EdgeTimeout bounds every WaitForEdge call, so that Close does not block on a motor standing still.
var EdgeTimeout = 100 * time.Millisecond

// QuadratureEncoder counts the edges of the A and B channels of an incremental
// encoder on two GPIO pins. Every edge is one transition of the 2-bit state
// aLevel | bLevel<<1, two transitions make one tick.
type QuadratureEncoder struct {
	a, b gpio.PinIn

	lock  sync.Mutex
	state int
	raw   atomic.Int64

	stopped atomic.Bool
	wg      sync.WaitGroup
}

// NewQuadratureEncoder configures both pins for edge detection and starts counting in the background.
func NewQuadratureEncoder(a, b gpio.PinIn) (*QuadratureEncoder, error) {
	for _, pin := range []gpio.PinIn{a, b} {
		if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return nil, errors.Wrapf(err, "failed to configure encoder pin %v", pin)
		}
	}
	e := &QuadratureEncoder{a: a, b: b}
	e.state = levelBit(a.Read()) | levelBit(b.Read())<<1
	e.wg.Add(2)
	go e.watch(a)
	go e.watch(b)
	return e, nil
}

func (e *QuadratureEncoder) String() string {
	return fmt.Sprintf("quadrature encoder (%v, %v)", e.a, e.b)
}

func (e *QuadratureEncoder) watch(pin gpio.PinIn) {
	defer e.wg.Done()
	for !e.stopped.Load() {
		if pin.WaitForEdge(EdgeTimeout) {
			e.update(e.a.Read(), e.b.Read())
		}
	}
}

func levelBit(l gpio.Level) int {
	if l == gpio.High {
		return 1
	}
	return 0
}

func (e *QuadratureEncoder) update(a, b gpio.Level) {
	e.lock.Lock()
	defer e.lock.Unlock()
	next := levelBit(a) | levelBit(b)<<1
	switch e.state<<2 | next {
	case 0b0001, 0b0111, 0b1000, 0b1110:
		e.raw.Dec()
	case 0b0010, 0b0100, 0b1011, 0b1101:
		e.raw.Inc()
	}
	// Unchanged levels and skipped states (both channels flipped) are not counted
	e.state = next
}

// Position implements Encoder.
func (e *QuadratureEncoder) Position() (int, error) {
	return int(e.raw.Load() >> 1), nil
}

// Reset implements Encoder. The half tick of the current state is kept.
func (e *QuadratureEncoder) Reset() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.raw.Store(e.raw.Load() & 1)
	return nil
}

// Close stops counting. It returns after both pin watchers have stopped.
func (e *QuadratureEncoder) Close() {
	if e.stopped.CompareAndSwap(false, true) {
		e.wg.Wait()
	}
}

// EncoderPins names the GPIO pins of the A and B encoder channels of a motor.
type EncoderPins struct {
	A string
	B string
}

func (p EncoderPins) Configured() bool {
	return p.A != "" && p.B != ""
}

func (p EncoderPins) String() string {
	if !p.Configured() {
		return ""
	}
	return p.A + "," + p.B
}

func parseEncoderPins(val string) (EncoderPins, error) {
	if val == "" {
		return EncoderPins{}, nil
	}
	parts := strings.Split(val, ",")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return EncoderPins{}, fmt.Errorf("Invalid encoder pins %q, expected <pinA>,<pinB>", val)
	}
	return EncoderPins{A: strings.TrimSpace(parts[0]), B: strings.TrimSpace(parts[1])}, nil
}

type encoderFlag struct {
	b    *Board
	name string
}

func (f encoderFlag) String() string {
	if f.b == nil {
		return ""
	}
	return f.b.Motors[f.name].Encoder.String()
}

func (f encoderFlag) Set(val string) error {
	pins, err := parseEncoderPins(val)
	if err != nil {
		return err
	}
	ch := f.b.Motors[f.name]
	ch.Encoder = pins
	f.b.Motors[f.name] = ch
	return nil
}
