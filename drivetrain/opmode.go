package drivetrain

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// ContextOpMode is an OpMode that stays active until its parent context is
// done or Stop is called.
type ContextOpMode struct {
	ctx     context.Context
	cancel  context.CancelFunc
	clock   clock.Clock
	stopped atomic.Bool
}

func NewContextOpMode(ctx context.Context, clk clock.Clock) *ContextOpMode {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &ContextOpMode{
		ctx:    ctx,
		cancel: cancel,
		clock:  clk,
	}
}

func (o *ContextOpMode) IsActive() bool {
	return !o.stopped.Load() && o.ctx.Err() == nil
}

// Stop deactivates the op mode and wakes up a running Sleep. Safe to call from any goroutine.
func (o *ContextOpMode) Stop() {
	o.stopped.Store(true)
	o.cancel()
}

// Sleep blocks for the given duration, or until the op mode is stopped.
func (o *ContextOpMode) Sleep(d time.Duration) {
	if d <= 0 || !o.IsActive() {
		return
	}
	timer := o.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-o.ctx.Done():
	}
}
