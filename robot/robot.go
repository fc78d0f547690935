// Package robot wires the mecanum drivetrain to either the real motor board or simulated motors.
package robot

import (
	"flag"
	"fmt"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/antongulenko/mecanum/motorboard"
	"github.com/antongulenko/mecanum/sim"
	log "github.com/sirupsen/logrus"
)

func DefaultRobot() *Robot {
	return &Robot{
		Board:      motorboard.DefaultBoard(),
		Drivetrain: drivetrain.DefaultConfig,
	}
}

type Robot struct {
	Board      motorboard.Board
	Drivetrain drivetrain.Config
	Dummy      bool

	// Receives drivetrain telemetry. Logged through logrus if nil.
	Telemetry drivetrain.Telemetry

	drive *drivetrain.Drivetrain
	sim   *sim.HardwareMap
	board *motorboard.Board
}

func (r *Robot) RegisterFlags() {
	r.Board.RegisterFlags()
	r.Drivetrain.RegisterFlags()
	flag.BoolVar(&r.Dummy, "dummy", r.Dummy, "Disable I2C peripherals, simulate all motors")
}

// Setup opens the motor board (or the simulation in dummy mode) and creates the drivetrain.
func (r *Robot) Setup() (*drivetrain.Drivetrain, error) {
	if r.Dummy {
		log.Println("Dummy robot: skipping initialization of I2C peripherals")
		r.sim = sim.NewDrivetrainHardware(r.Drivetrain.Clock, r.Drivetrain.Names)
		return r.setupDrivetrain(r.sim)
	}
	if err := r.Board.Open(); err != nil {
		return nil, err
	}
	r.board = &r.Board
	log.Println("Successfully initialized I2C peripherals")
	return r.setupDrivetrain(r.board)
}

// CheckEncoders fails if a drive motor on the motor board has no encoder pins configured.
// Simulated motors always have encoders.
func (r *Robot) CheckEncoders() error {
	if r.Dummy {
		return nil
	}
	names := r.Drivetrain.Names
	missing := r.Board.MissingEncoders(names.FrontLeft, names.FrontRight, names.BackLeft, names.BackRight)
	if len(missing) > 0 {
		return fmt.Errorf("Distance driving needs encoders, but none are configured for motors %v (use -encoder-<motor> <pinA>,<pinB>)", missing)
	}
	return nil
}

// SetupBus is like Setup, but initializes the motor board on an already opened bus.
func (r *Robot) SetupBus(bus motorboard.Bus) (*drivetrain.Drivetrain, error) {
	if err := r.Board.Init(bus); err != nil {
		return nil, err
	}
	r.board = &r.Board
	return r.setupDrivetrain(r.board)
}

func (r *Robot) setupDrivetrain(hw drivetrain.HardwareMap) (*drivetrain.Drivetrain, error) {
	if r.Telemetry == nil {
		r.Telemetry = drivetrain.NewLogTelemetry()
	}
	drive, err := drivetrain.New(hw, r.Telemetry, r.Drivetrain)
	if err != nil {
		golib.Printerr(r.closeBoard())
		return nil, err
	}
	r.drive = drive
	return drive, nil
}

// Sim returns the simulated motors in dummy mode, nil otherwise.
func (r *Robot) Sim() *sim.HardwareMap {
	return r.sim
}

// ReportBattery adds the battery state to the telemetry. Without a motor board, nothing is reported.
func (r *Robot) ReportBattery() error {
	if r.board == nil || r.Telemetry == nil {
		return nil
	}
	return r.Board.Battery.Report(r.Telemetry)
}

// Cleanup stops all motors and releases the motor board.
func (r *Robot) Cleanup() {
	if r.drive != nil {
		golib.Printerr(r.drive.Stop())
		golib.Printerr(r.drive.WeirdWheelDrive(0, 0))
	}
	golib.Printerr(r.closeBoard())
}

func (r *Robot) closeBoard() error {
	if r.board == nil {
		return nil
	}
	r.board = nil
	return r.Board.Close()
}
