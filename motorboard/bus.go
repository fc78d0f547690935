package motorboard

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Bus is an I2C bus, as implemented by periph.io/x/conn/v3/i2c.Bus.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

var ErrBusClosed = errors.New("I2C bus is closed")

type i2cRequest struct {
	addr  uint16
	write []byte
	read  []byte
	err   error

	done bool
	wait *sync.Cond
}

func newI2cRequest(addr uint16, w, r []byte) *i2cRequest {
	return &i2cRequest{
		addr:  addr,
		write: w,
		read:  r,
		wait:  &sync.Cond{L: new(sync.Mutex)},
	}
}

func (r *i2cRequest) Wait() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	for !r.done {
		r.wait.Wait()
	}
}

func (r *i2cRequest) notifyDone() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	r.done = true
	r.wait.Broadcast()
}

// SequencedBus executes all transactions on a single goroutine, so the motor
// control loop and the battery monitor never interleave on the wire.
type SequencedBus struct {
	bus   Bus
	queue chan *i2cRequest

	lock   sync.RWMutex
	closed bool
}

func NewSequencedBus(bus Bus, queueSize int) *SequencedBus {
	s := &SequencedBus{
		bus:   bus,
		queue: make(chan *i2cRequest, queueSize),
	}
	go s.handleI2cRequests()
	return s
}

func (s *SequencedBus) handleI2cRequests() {
	for req := range s.queue {
		req.err = s.bus.Tx(req.addr, req.write, req.read)
		if req.err != nil {
			log.Debugf("I2C transaction with %#02x failed: %v", req.addr, req.err)
		}
		req.notifyDone()
	}
}

func (s *SequencedBus) Tx(addr uint16, w, r []byte) error {
	req := newI2cRequest(addr, w, r)
	s.lock.RLock()
	if s.closed {
		s.lock.RUnlock()
		return ErrBusClosed
	}
	s.queue <- req
	s.lock.RUnlock()
	req.Wait()
	return req.err
}

// Close stops the sequencing goroutine after all queued transactions are done.
// The underlying bus is not closed.
func (s *SequencedBus) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

func write(bus Bus, addr byte, data ...byte) error {
	return bus.Tx(uint16(addr), data, nil)
}
