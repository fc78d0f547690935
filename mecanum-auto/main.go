package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/mecanum/drivetrain"
	"github.com/antongulenko/mecanum/robot"
	"github.com/antongulenko/mecanum/routine"
	log "github.com/sirupsen/logrus"
)

var (
	r      = robot.DefaultRobot()
	dryRun bool
)

func main() {
	r.RegisterFlags()
	flag.BoolVar(&dryRun, "n", dryRun, "Only parse and print the routine, do not drive")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %v [flags] step...\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Steps: inches:<preset>:<inches>:<power> time:<power>:<seconds> preset:<preset> brake stop pause:<duration>")
		fmt.Fprintln(flag.CommandLine.Output(), "Presets: forward reverse strafe-left strafe-right spin-left spin-right")
		flag.PrintDefaults()
	}
	golib.RegisterLogFlags()
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func doMain() error {
	steps, err := routine.Parse(flag.Args())
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("No routine steps given, see -help")
	}
	log.Printf("Routine: %v", steps)
	if steps.NeedsEncoders() {
		if err := r.CheckEncoders(); err != nil {
			return err
		}
	}
	if dryRun {
		return nil
	}

	drive, err := r.Setup()
	if err != nil {
		return err
	}
	defer r.Cleanup()

	op := drivetrain.NewContextOpMode(context.Background(), r.Drivetrain.Clock)
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		if sig, ok := <-c; ok {
			log.Warnln("Received signal", sig)
			op.Stop()
		}
	}()

	if err := steps.Run(drive, op); err != nil {
		return err
	}
	if op.IsActive() {
		log.Println("Routine finished")
	}
	op.Stop()
	return nil
}
