package config

import "sort"

var Presets = map[string]*Config{
	"step": {
		Name: "step", Dt: 0.001, Duration: 1.0, Timing: TimingExplicit, CPR: 2048,
		PID:       PIDConfig{P: 0.1, I: 5.0, Ramp: 1000, Limit: 12},
		Filter:    FilterConfig{Tf: 0.005},
		Speed:     SpeedConfig{MinDt: 0.001},
		Setpoints: []SetpointConfig{{At: 0, Value: 100}},
	},
	"staircase": {
		Name: "staircase", Dt: 0.001, Duration: 3.0, Timing: TimingExplicit, CPR: 2048,
		PID:    PIDConfig{P: 0.1, I: 5.0, Ramp: 1000, Limit: 12},
		Filter: FilterConfig{Tf: 0.005},
		Speed:  SpeedConfig{MinDt: 0.001},
		Setpoints: []SetpointConfig{
			{At: 0, Value: 50}, {At: 1, Value: 150}, {At: 2, Value: -50},
		},
	},
	"low_speed": {
		Name: "low_speed", Dt: 0.001, Duration: 2.0, Timing: TimingExplicit, CPR: 500,
		PID:       PIDConfig{P: 0.1, I: 5.0, Ramp: 500, Limit: 12},
		Filter:    FilterConfig{Tf: 0.02},
		Speed:     SpeedConfig{MinDt: 0.01},
		Setpoints: []SetpointConfig{{At: 0, Value: 2}},
	},
	"self_timed": {
		Name: "self_timed", Dt: 0.001, Duration: 1.0, Timing: TimingInternal, CPR: 2048,
		PID:       PIDConfig{P: 0.1, I: 5.0, Ramp: 1000, Limit: 12},
		Filter:    FilterConfig{Tf: 0.005},
		Speed:     SpeedConfig{MinDt: 0.001},
		Setpoints: []SetpointConfig{{At: 0, Value: 100}},
	},
	"loaded": {
		Name: "loaded", Dt: 0.001, Duration: 2.0, Timing: TimingExplicit, CPR: 2048,
		PID:       PIDConfig{P: 0.1, I: 5.0, Ramp: 1000, Limit: 12},
		Filter:    FilterConfig{Tf: 0.005},
		Speed:     SpeedConfig{MinDt: 0.001},
		Motor:     MotorConfig{Load: 0.02},
		Setpoints: []SetpointConfig{{At: 0, Value: 80}},
	},
}

// GetPreset returns a copy of the named preset with unset motor
// parameters filled from DefaultMotor, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := p.Clone()
	load := cfg.Motor.Load
	if cfg.Motor.Resistance == 0 {
		cfg.Motor = DefaultMotor()
		cfg.Motor.Load = load
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
