package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/focsim/internal/commander"
	"github.com/san-kum/focsim/internal/foc"
	"github.com/san-kum/focsim/internal/hw"
	"github.com/san-kum/focsim/internal/rig"
)

var (
	serialPort string
	baudRate   int
	gpioChip   string
	gpioLines  string
	pullUp     bool
	debounce   time.Duration
	listPorts  bool
)

func commanderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commander",
		Short: "drive the loop with commander lines from stdin or a serial port",
		Long: `commander runs the velocity loop in real time and reads commander
lines (P0.2, T50, ?, ...) from stdin, or from a serial port with --port.

With --chip and --lines it reads a physical quadrature encoder over the
Linux GPIO character device instead of simulating the motor.`,
		Args: cobra.NoArgs,
		RunE: runCommander,
	}
	rigFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&serialPort, "port", "", "serial port to read commands from")
	f.IntVar(&baudRate, "baud", 115200, "serial baud rate")
	f.BoolVar(&listPorts, "list-ports", false, "list serial ports and exit")
	f.StringVar(&gpioChip, "chip", "", "GPIO chip of a hardware encoder, e.g. gpiochip0")
	f.StringVar(&gpioLines, "lines", "", "encoder A,B line offsets")
	f.BoolVar(&pullUp, "pull-up", false, "bias encoder lines high")
	f.DurationVar(&debounce, "debounce", 0, "encoder line debounce period")
	return cmd
}

func runCommander(cmd *cobra.Command, args []string) error {
	if listPorts {
		ports, err := commander.SerialPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		in  io.Reader = os.Stdin
		out io.Writer = os.Stdout
	)
	if serialPort != "" {
		port, err := commander.OpenSerial(serialPort, baudRate)
		if err != nil {
			return err
		}
		defer port.Close()
		in, out = port, port
		log.Printf("commander: listening on %s at %d baud", serialPort, baudRate)
	}

	if gpioChip != "" {
		return runHardware(ctx, cmd, in, out)
	}
	return runSimulated(ctx, cmd, in, out)
}

// runSimulated paces the rig against the wall clock. Commands are read
// between control steps, so the rig itself stays single threaded.
func runSimulated(ctx context.Context, cmd *cobra.Command, in io.Reader, out io.Writer) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	r, err := rig.New(cfg)
	if err != nil {
		return err
	}

	c := commander.ForLoop(out, r,
		commander.WithPID(r.PID()),
		commander.WithFilter(r.Filter()),
		commander.WithEncoder(r.EncoderView()),
	)
	c.Welcome()

	ticker := time.NewTicker(time.Duration(cfg.Dt * float64(time.Second)))
	defer ticker.Stop()
	input := commander.Stream(ctx, in)

	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-input:
			if !ok {
				return nil
			}
			if err := c.HandleByte(b); errors.Is(err, commander.ErrInterrupted) {
				return nil
			}
		case <-ticker.C:
			if _, err := r.Step(); err != nil {
				return err
			}
		}
	}
}

// hardwareView reports the velocity cached by the control loop so that
// status queries do not advance the estimator.
type hardwareView struct {
	enc      *foc.Encoder
	velocity float64
}

func (v *hardwareView) Angle() float64    { return v.enc.Angle() }
func (v *hardwareView) Position() int32   { return v.enc.Position() }
func (v *hardwareView) Velocity() float64 { return v.velocity }

// runHardware estimates the velocity of a real encoder and runs the PID on
// it. The PID output is only reported since no driver stage is attached.
func runHardware(ctx context.Context, cmd *cobra.Command, in io.Reader, out io.Writer) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	a, b, err := parseLines(gpioLines)
	if err != nil {
		return err
	}

	dev, err := hw.Open(hw.Config{Chip: gpioChip, LineA: a, LineB: b, PullUp: pullUp, Debounce: debounce})
	if err != nil {
		return err
	}
	defer dev.Close()

	enc, err := foc.NewEncoder(dev, cfg.CPR)
	if err != nil {
		return err
	}
	pid := foc.NewPID(cfg.PID.P, cfg.PID.I, cfg.PID.D, cfg.PID.Ramp, cfg.PID.Limit)
	lpf := foc.NewLowPass(cfg.Filter.Tf)
	view := &hardwareView{enc: enc}

	c := commander.New(out,
		commander.WithPID(pid),
		commander.WithFilter(lpf),
		commander.WithEncoder(view),
	)
	_ = c.Add("Z", func(string) error {
		if err := enc.SetAngle(0); err != nil {
			return err
		}
		pid.Reset()
		lpf.Reset()
		c.SetTarget(0)
		fmt.Fprintln(out, "Encoder zeroed")
		return nil
	}, "Zero encoder")
	_ = c.Add("O", func(string) error {
		fmt.Fprintf(out, "Output: %.3f V\n", pid.Output())
		return nil
	}, "PID output")
	c.Welcome()

	ticker := time.NewTicker(time.Duration(cfg.Dt * float64(time.Second)))
	defer ticker.Stop()
	input := commander.Stream(ctx, in)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ch, ok := <-input:
			if !ok {
				return nil
			}
			if err := c.HandleByte(ch); errors.Is(err, commander.ErrInterrupted) {
				return nil
			}
		case <-ticker.C:
			enc.Update()
			view.velocity = lpf.Step(enc.Velocity())
			pid.Step(c.Target() - view.velocity)
		}
	}
}

func parseLines(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("--lines: want A,B offsets, got %q", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("--lines: %w", err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("--lines: %w", err)
	}
	return a, b, nil
}
