package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/antongulenko/mecanum/robot"
	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"github.com/splace/joysticks"
	"go.uber.org/atomic"
)

func main() {
	leftStick := JoystickAxis{
		AxisNumber:      1,
		ZeroFrom:        -0.2,
		ZeroTo:          0.1,
		ScaleZeroFromTo: true,
		InvertY:         true,
	}
	rightStick := leftStick
	rightStick.AxisNumber = 2
	trigger := TriggerAxis{
		JoystickAxis: JoystickAxis{AxisNumber: 3},
	}
	reverseTrigger := trigger
	reverseTrigger.UseY = true

	controller := teleopController{
		joystickIndex:         1,
		joystickRetryDuration: 2 * time.Second,
		stopButton:            1,
		robot:                 robot.DefaultRobot(),
		clock:                 clock.New(),
		loopInterval:          50 * time.Millisecond,
		batteryInterval:       5 * time.Second,
		ramp: Ramp{
			AccelSlopeTime: 400 * time.Millisecond,
			DecelSlopeTime: 300 * time.Millisecond,
		},
		MoveAxis:           leftStick,
		RotateAxis:         rightStick,
		ForwardTrigger:     trigger,
		ReverseTrigger:     reverseTrigger,
		stopControlLoop:    make(chan struct{}),
		controlLoopStopped: make(chan struct{}),
	}

	controller.registerFlags()
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()

	// "Clean" shutdown with Ctrl-C signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(controller.stop)
	}
	defer cleanup()
	go func() {
		fmt.Println("Received signal", <-c)
		cleanup()
		os.Exit(0)
	}()

	controller.run() // Does not return
}

type teleopController struct {
	joystickIndex         int
	joystickRetryDuration time.Duration
	stopButton            int

	robot *robot.Robot
	drive *drivetrain.Drivetrain
	clock clock.Clock

	loopInterval    time.Duration
	batteryInterval time.Duration
	ramp            Ramp

	// Left stick: strafe (X) and forward (Y). Right stick: rotation (X).
	MoveAxis       JoystickAxis
	RotateAxis     JoystickAxis
	ForwardTrigger TriggerAxis
	ReverseTrigger TriggerAxis

	x, y, rotation   SmoothAxis
	forward, reverse SmoothAxis
	brake            atomic.Bool

	stopControlLoop    chan struct{}
	controlLoopStopped chan struct{}
}

func (c *teleopController) registerFlags() {
	c.robot.RegisterFlags()
	c.ramp.RegisterFlags()
	c.MoveAxis.RegisterFlags("move", "strafing and driving")
	c.RotateAxis.RegisterFlags("rotate", "rotation")
	c.ForwardTrigger.RegisterFlags("weirdForward", "driving the weird wheels forward")
	c.ReverseTrigger.RegisterFlags("weirdReverse", "driving the weird wheels in reverse")
	flag.IntVar(&c.joystickIndex, "js", c.joystickIndex, "Joystick device index")
	flag.DurationVar(&c.joystickRetryDuration, "js-retry", c.joystickRetryDuration, "Time to retry joystick initialization")
	flag.IntVar(&c.stopButton, "stop-button", c.stopButton, "Joystick button index that stops and brakes all motors")
	flag.DurationVar(&c.loopInterval, "control-interval", c.loopInterval, "Interval of the motor control loop")
	flag.DurationVar(&c.batteryInterval, "battery-interval", c.batteryInterval, "Interval of battery telemetry (0 disables)")
}

func (c *teleopController) run() {
	drive, err := c.robot.Setup()
	golib.Checkerr(err)
	c.drive = drive

	go c.waitAndInitJoysticks()
	go c.controlLoop()
	c.batteryLoop() // Does not return
}

func (c *teleopController) waitAndInitJoysticks() {
	// Wait until Joysticks can be initialized successfully
	var js *joysticks.HID
	var err error
	for {
		if js, err = c.setupJoysticks(); err != nil {
			log.Errorf("Failed to setup Joysticks: %v. Retrying in %v...", err, c.joystickRetryDuration)
			time.Sleep(c.joystickRetryDuration)
		} else {
			log.Printf("Opened joystick device index %v (%v buttons, %v axes, %v events)", c.joystickIndex, len(js.Buttons), len(js.HatAxes), len(js.Events))
			break
		}
	}

	// Start receiving joystick events
	js.ParcelOutEvents() // Does not return
}

func (c *teleopController) setupJoysticks() (*joysticks.HID, error) {
	js := joysticks.Connect(c.joystickIndex)
	if js == nil {
		return nil, fmt.Errorf("Failed to open joystick with index %v", c.joystickIndex)
	}

	stopButton := uint8(c.stopButton)
	if !js.ButtonExists(stopButton) {
		return nil, fmt.Errorf("Stop button (index %v) does not exist on joystick", stopButton)
	}
	stop := js.OnButton(stopButton)
	go func() {
		for range stop {
			log.Println("Stop button pressed")
			c.resetAxes()
		}
	}()

	if err := c.MoveAxis.Notify(js, func(x, y float64) {
		c.x.Set(x)
		c.y.Set(y)
	}); err != nil {
		return nil, err
	}
	if err := c.RotateAxis.Notify(js, func(x, _ float64) {
		c.rotation.Set(x)
	}); err != nil {
		return nil, err
	}
	if err := c.ForwardTrigger.Notify(js, c.forward.Set); err != nil {
		return nil, err
	}
	if err := c.ReverseTrigger.Notify(js, c.reverse.Set); err != nil {
		return nil, err
	}
	return js, nil
}

func (c *teleopController) resetAxes() {
	for _, axis := range []*SmoothAxis{&c.x, &c.y, &c.rotation, &c.forward, &c.reverse} {
		axis.Reset()
	}
	c.brake.Store(true)
}

func (c *teleopController) controlLoop() {
	defer close(c.controlLoopStopped)
	ticker := c.clock.Ticker(c.loopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopControlLoop:
			return
		case <-ticker.C:
			if err := c.controlStep(); err != nil {
				log.Errorln("Error controlling motors:", err)
			}
		}
	}
}

// controlStep ramps all axes one step toward their joystick positions and applies them to the motors.
func (c *teleopController) controlStep() error {
	if c.brake.CompareAndSwap(true, false) {
		if err := c.drive.ApplyBrake(); err != nil {
			return err
		}
	}
	accelStep, decelStep := c.ramp.Steps(c.loopInterval)
	x := c.x.Step(accelStep, decelStep)
	y := c.y.Step(accelStep, decelStep)
	rotation := c.rotation.Step(accelStep, decelStep)
	if err := c.drive.Drive(x, y, rotation); err != nil {
		return err
	}
	// The triggers are not ramped, WeirdWheelDrive applies its own threshold
	forward := c.forward.Step(1, 1)
	reverse := c.reverse.Step(1, 1)
	return c.drive.WeirdWheelDrive(forward, reverse)
}

func (c *teleopController) batteryLoop() {
	if c.batteryInterval <= 0 {
		select {}
	}
	for {
		golib.Printerr(c.robot.ReportBattery())
		golib.Printerr(c.robot.Telemetry.Update())
		c.clock.Sleep(c.batteryInterval)
	}
}

func (c *teleopController) stop() {
	close(c.stopControlLoop)
	if c.drive != nil {
		<-c.controlLoopStopped
	}
	c.robot.Cleanup()
}
