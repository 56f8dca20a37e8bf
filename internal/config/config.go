package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.001
	DefaultDuration = 2.0
	DefaultTiming   = TimingExplicit
	DefaultCPR      = 2048
	DefaultP        = 0.1
	DefaultI        = 5.0
	DefaultD        = 0.0
	DefaultRamp     = 1000.0
	DefaultLimit    = 12.0
	DefaultTf       = 0.005
	DefaultMinDt    = 0.001
	DefaultSubsteps = 10
	DefaultTarget   = 100.0
)

// Timing modes for the control loop.
const (
	// TimingExplicit passes the configured dt to every primitive.
	TimingExplicit = "explicit"
	// TimingInternal lets the PID and filter time themselves from the rig clock.
	TimingInternal = "internal"
)

type Config struct {
	Name      string           `yaml:"name,omitempty"`
	Dt        float64          `yaml:"dt"`
	Duration  float64          `yaml:"duration"`
	Timing    string           `yaml:"timing"`
	CPR       int32            `yaml:"cpr"`
	PID       PIDConfig        `yaml:"pid"`
	Filter    FilterConfig     `yaml:"filter"`
	Speed     SpeedConfig      `yaml:"speed"`
	Motor     MotorConfig      `yaml:"motor"`
	Setpoints []SetpointConfig `yaml:"setpoints"`
}

type PIDConfig struct {
	P     float64 `yaml:"p"`
	I     float64 `yaml:"i"`
	D     float64 `yaml:"d"`
	Ramp  float64 `yaml:"ramp"`
	Limit float64 `yaml:"limit"`
}

type FilterConfig struct {
	Tf float64 `yaml:"tf"`
}

type SpeedConfig struct {
	MinDt float64 `yaml:"min_dt"`
}

// MotorConfig describes a brushed DC motor. SI units throughout.
type MotorConfig struct {
	Resistance float64 `yaml:"resistance"`
	Inductance float64 `yaml:"inductance"`
	Kt         float64 `yaml:"kt"`
	Ke         float64 `yaml:"ke"`
	Inertia    float64 `yaml:"inertia"`
	Damping    float64 `yaml:"damping"`
	Load       float64 `yaml:"load"`
	Substeps   int     `yaml:"substeps"`
}

// SetpointConfig switches the velocity target to Value (rad/s) at time At.
type SetpointConfig struct {
	At    float64 `yaml:"at"`
	Value float64 `yaml:"value"`
}

func DefaultMotor() MotorConfig {
	return MotorConfig{
		Resistance: 2.0,
		Inductance: 1e-3,
		Kt:         0.05,
		Ke:         0.05,
		Inertia:    2e-5,
		Damping:    1e-5,
		Substeps:   DefaultSubsteps,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Timing:   DefaultTiming,
		CPR:      DefaultCPR,
		PID: PIDConfig{
			P:     DefaultP,
			I:     DefaultI,
			D:     DefaultD,
			Ramp:  DefaultRamp,
			Limit: DefaultLimit,
		},
		Filter:    FilterConfig{Tf: DefaultTf},
		Speed:     SpeedConfig{MinDt: DefaultMinDt},
		Motor:     DefaultMotor(),
		Setpoints: []SetpointConfig{{At: 0, Value: DefaultTarget}},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Setpoints = append([]SetpointConfig(nil), c.Setpoints...)
	return &out
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}
	if c.Timing != TimingExplicit && c.Timing != TimingInternal {
		return fmt.Errorf("timing must be %q or %q, got %q", TimingExplicit, TimingInternal, c.Timing)
	}
	if c.CPR <= 0 {
		return fmt.Errorf("cpr must be positive, got %d", c.CPR)
	}
	if c.PID.Ramp < 0 || c.PID.Limit < 0 {
		return fmt.Errorf("pid ramp and limit must not be negative")
	}
	m := c.Motor
	if m.Resistance <= 0 || m.Inductance <= 0 || m.Inertia <= 0 {
		return fmt.Errorf("motor resistance, inductance and inertia must be positive")
	}
	if m.Kt <= 0 || m.Ke <= 0 {
		return fmt.Errorf("motor kt and ke must be positive")
	}
	if m.Damping < 0 {
		return fmt.Errorf("motor damping must not be negative, got %f", m.Damping)
	}
	if m.Substeps < 1 {
		return fmt.Errorf("motor substeps must be at least 1, got %d", m.Substeps)
	}
	for i := 1; i < len(c.Setpoints); i++ {
		if c.Setpoints[i].At < c.Setpoints[i-1].At {
			return fmt.Errorf("setpoints must be sorted by time (entry %d)", i)
		}
	}
	return nil
}

// Target returns the scheduled setpoint at time t. Before the first entry
// the target is 0.
func (c *Config) Target(t float64) float64 {
	target := 0.0
	for _, sp := range c.Setpoints {
		if sp.At > t {
			break
		}
		target = sp.Value
	}
	return target
}

// Steps is the number of control cycles in one run.
func (c *Config) Steps() int {
	return int(c.Duration/c.Dt + 0.5)
}

// SortSetpoints orders the schedule by time, keeping the order of equal entries.
func (c *Config) SortSetpoints() {
	sort.SliceStable(c.Setpoints, func(i, j int) bool {
		return c.Setpoints[i].At < c.Setpoints[j].At
	})
}
