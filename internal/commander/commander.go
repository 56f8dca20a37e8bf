// Package commander implements the SimpleFOC Commander line protocol.
//
// A command is one line. Its first character is the command id, matched
// case-insensitively, and the rest is the value:
//
//	P1.5   set the PID proportional gain
//	P      print it
//	T100   set the target
//	?      print status
//
// Custom commands registered with Add take priority over the built-ins.
// A Commander is not safe for concurrent use; feed it from the goroutine
// that owns the primitives it tunes.
package commander

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInterrupted is returned by HandleByte on Ctrl-C.
var ErrInterrupted = errors.New("commander: interrupted")

const rule = "=================================================="

// Tunable exposes named parameters. foc.PID and foc.LowPass implement it.
type Tunable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// EncoderReader is the read side of foc.Encoder.
type EncoderReader interface {
	Angle() float64
	Velocity() float64
	Position() int32
}

// Handler runs a custom command with the text after the id.
type Handler func(value string) error

type custom struct {
	fn    Handler
	label string
}

type Commander struct {
	w        io.Writer
	pid      Tunable
	lpf      Tunable
	encoder  EncoderReader
	verbose  bool
	decimals int

	target   float64
	onTarget func(float64)
	targetOf func() float64

	callbacks map[byte]custom
	order     []byte

	line []byte
}

type Option func(*Commander)

func WithPID(t Tunable) Option { return func(c *Commander) { c.pid = t } }

func WithFilter(t Tunable) Option { return func(c *Commander) { c.lpf = t } }

func WithEncoder(e EncoderReader) Option { return func(c *Commander) { c.encoder = e } }

func WithVerbose(v bool) Option { return func(c *Commander) { c.verbose = v } }

// WithDecimals sets the decimal places used when printing numbers.
func WithDecimals(n int) Option {
	return func(c *Commander) {
		if n >= 0 {
			c.decimals = n
		}
	}
}

// OnTarget registers a hook that runs whenever T sets a new target.
func OnTarget(fn func(float64)) Option { return func(c *Commander) { c.onTarget = fn } }

// WithTargetSource makes Target, T and ? report fn instead of the value
// last set through the commander.
func WithTargetSource(fn func() float64) Option { return func(c *Commander) { c.targetOf = fn } }

// New returns a commander writing its responses to w. Verbose is on and
// numbers print with 3 decimals unless overridden.
func New(w io.Writer, opts ...Option) *Commander {
	c := &Commander{
		w:         w,
		verbose:   true,
		decimals:  3,
		callbacks: make(map[byte]custom),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add registers a custom command. A label, if given, is listed by the help
// screens. Registering an id again replaces the handler.
func (c *Commander) Add(id string, fn Handler, label string) error {
	if len(id) != 1 || id[0] < 33 || id[0] > 126 {
		return fmt.Errorf("commander: command id must be a single printable character, got %q", id)
	}
	if fn == nil {
		return fmt.Errorf("commander: nil handler for %q", id)
	}
	key := upper(id[0])
	if _, ok := c.callbacks[key]; !ok {
		c.order = append(c.order, key)
	}
	c.callbacks[key] = custom{fn: fn, label: label}
	return nil
}

func (c *Commander) Target() float64 {
	if c.targetOf != nil {
		return c.targetOf()
	}
	return c.target
}

// SetTarget changes the target without printing or running the hook.
func (c *Commander) SetTarget(v float64) { c.target = v }

func (c *Commander) Verbose() bool { return c.verbose }

// HandleByte feeds one input byte. CR or LF runs the buffered line,
// backspace and DEL erase, Ctrl-C returns ErrInterrupted, other control
// bytes are dropped.
func (c *Commander) HandleByte(b byte) error {
	switch {
	case b == '\n' || b == '\r':
		if len(c.line) > 0 {
			line := string(c.line)
			c.line = c.line[:0]
			c.Process(line)
		}
	case b == 0x03:
		c.line = c.line[:0]
		return ErrInterrupted
	case b == 0x08 || b == 0x7f:
		if len(c.line) > 0 {
			c.line = c.line[:len(c.line)-1]
		}
	case b >= 32 && b < 127:
		c.line = append(c.line, b)
	}
	return nil
}

// Pending returns the partially typed line.
func (c *Commander) Pending() string { return string(c.line) }

// Process runs one complete command line.
func (c *Commander) Process(line string) {
	if line == "" {
		return
	}
	id := upper(line[0])
	value := strings.TrimSpace(line[1:])

	if cb, ok := c.callbacks[id]; ok {
		if err := cb.fn(value); err != nil {
			c.printf("Error in custom command '%c': %v\n", id, err)
		}
		return
	}

	switch {
	case id == 'P' && c.pid != nil:
		c.param(c.pid, "P", value, "P gain", "P")
	case id == 'I' && c.pid != nil:
		c.param(c.pid, "I", value, "I gain", "I")
	case id == 'D' && c.pid != nil:
		c.param(c.pid, "D", value, "D gain", "D")
	case id == 'R' && c.pid != nil:
		c.param(c.pid, "ramp", value, "Output ramp", "Ramp")
	case id == 'L' && c.pid != nil:
		c.param(c.pid, "limit", value, "Output limit", "Limit")
	case id == 'F' && c.lpf != nil:
		c.filter(value)
	case id == 'E' && c.encoder != nil:
		c.printf("Encoder:\n")
		c.printEncoder()
	case id == 'T':
		c.handleTarget(value)
	case id == '?':
		c.printStatus()
	case id == 'V':
		c.verbose = !c.verbose
		if c.verbose {
			c.printf("Verbose: ON\n")
		} else {
			c.printf("Verbose: OFF\n")
		}
	case id == '@':
		c.printCommands()
	default:
		c.printf("Unknown command: %c\n", id)
	}
}

func (c *Commander) param(t Tunable, name, value, setLabel, getLabel string) {
	if value == "" {
		c.printf("%s: %s\n", getLabel, c.num(t.GetParams()[name]))
		return
	}
	v, ok := c.parse(value)
	if !ok {
		return
	}
	if err := t.SetParam(name, v); err != nil {
		c.printf("Error: %v\n", err)
		return
	}
	if c.verbose {
		c.printf("%s: %s\n", setLabel, c.num(v))
	}
}

func (c *Commander) filter(value string) {
	if value == "" {
		c.printf("Tf: %s\n", c.num(c.lpf.GetParams()["Tf"]))
		return
	}
	v, ok := c.parse(value)
	if !ok {
		return
	}
	if err := c.lpf.SetParam("Tf", v); err != nil {
		c.printf("Error: %v\n", err)
		return
	}
	if c.verbose {
		c.printf("Filter Tf: %s s\n", c.num(v))
	}
}

func (c *Commander) handleTarget(value string) {
	if value == "" {
		c.printf("Target: %s\n", c.num(c.Target()))
		return
	}
	v, ok := c.parse(value)
	if !ok {
		return
	}
	c.target = v
	if c.onTarget != nil {
		c.onTarget(v)
	}
	if c.verbose {
		c.printf("Target: %s\n", c.num(v))
	}
}

func (c *Commander) parse(value string) (float64, bool) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.printf("Error: Invalid number\n")
		return 0, false
	}
	return v, true
}

func (c *Commander) num(v float64) string {
	return strconv.FormatFloat(v, 'f', c.decimals, 64)
}

func (c *Commander) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
