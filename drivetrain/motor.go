package drivetrain

import (
	"fmt"
	"time"
)

type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

type RunMode int

const (
	RunWithoutEncoder RunMode = iota
	RunUsingEncoder
	RunToPosition
	StopAndResetEncoder
)

func (m RunMode) String() string {
	switch m {
	case RunWithoutEncoder:
		return "run-without-encoder"
	case RunUsingEncoder:
		return "run-using-encoder"
	case RunToPosition:
		return "run-to-position"
	case StopAndResetEncoder:
		return "stop-and-reset-encoder"
	default:
		return fmt.Sprintf("RunMode(%d)", int(m))
	}
}

type ZeroPowerBehavior int

const (
	Float ZeroPowerBehavior = iota
	Brake
)

func (b ZeroPowerBehavior) String() string {
	if b == Brake {
		return "brake"
	}
	return "float"
}

// Motor is a handle to one DC motor with a built-in encoder. Power values are
// in -1..1, positions in encoder ticks. A Reverse direction flips the sign of
// both power and position.
type Motor interface {
	SetPower(power float64) error
	SetDirection(dir Direction) error
	SetRunMode(mode RunMode) error
	SetTargetPosition(ticks int) error
	CurrentPosition() (int, error)
	IsBusy() (bool, error)
	SetZeroPowerBehavior(behavior ZeroPowerBehavior) error
}

// HardwareMap resolves configured device names to motor handles.
type HardwareMap interface {
	Motor(name string) (Motor, error)
}

// Telemetry collects diagnostic key/value pairs and publishes them on Update.
type Telemetry interface {
	AddData(key string, value interface{})
	Update() error
}

// OpMode is the operating mode running the drivetrain. Sleep must return early
// once the op mode is no longer active.
type OpMode interface {
	IsActive() bool
	Sleep(d time.Duration)
}
