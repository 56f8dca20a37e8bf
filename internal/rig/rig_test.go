package rig

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/focsim/internal/config"
)

func mean(samples []Sample, field func(Sample) float64) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += field(s)
	}
	return sum / float64(len(samples))
}

func TestRigTracksStep(t *testing.T) {
	r, err := New(config.GetPreset("step"))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 1000 {
		t.Errorf("expected 1000 steps, got %d", result.StepsTaken)
	}

	tail := result.Samples[len(result.Samples)-200:]
	v := mean(tail, func(s Sample) float64 { return s.Velocity })
	if math.Abs(v-100) > 2 {
		t.Errorf("expected settled velocity near 100 rad/s, got %f", v)
	}
	est := mean(tail, func(s Sample) float64 { return s.Estimated })
	if math.Abs(est-v) > 2 {
		t.Errorf("encoder estimate %f drifts from true velocity %f", est, v)
	}
	finite := mean(tail, func(s Sample) float64 { return s.Finite })
	if math.Abs(finite-v) > 2 {
		t.Errorf("finite difference %f drifts from true velocity %f", finite, v)
	}

	for _, name := range []string{"tracking_rmse", "estimator_rmse", "control_effort", "overshoot"} {
		if _, ok := result.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
}

func TestRigRespectsOutputLimit(t *testing.T) {
	cfg := config.GetPreset("step")
	cfg.PID.Limit = 3
	cfg.PID.Ramp = 200
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	prev := 0.0
	for i, s := range result.Samples {
		if math.Abs(s.Output) > 3+1e-12 {
			t.Fatalf("sample %d: output %f exceeds limit", i, s.Output)
		}
		if math.Abs(s.Output-prev) > 200*cfg.Dt+1e-9 {
			t.Fatalf("sample %d: output slew %f exceeds ramp", i, s.Output-prev)
		}
		prev = s.Output
	}
}

func TestRigTimingModesAgree(t *testing.T) {
	explicit := config.GetPreset("step")
	explicit.Duration = 0.2
	internal := explicit.Clone()
	internal.Timing = config.TimingInternal

	a, err := New(explicit)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(internal)
	if err != nil {
		t.Fatal(err)
	}

	ra, err := a.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	rb, err := b.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for i := range ra.Samples {
		if math.Abs(ra.Samples[i].Output-rb.Samples[i].Output) > 1e-9 {
			t.Fatalf("sample %d: explicit %f vs internal %f", i, ra.Samples[i].Output, rb.Samples[i].Output)
		}
	}
}

func TestRigCancelled(t *testing.T) {
	r, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 {
		t.Errorf("expected no steps, got %d", result.StepsTaken)
	}
}

func TestRigUnstable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PID = config.PIDConfig{P: -1}

	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Run(context.Background())
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if stepErr.Step != result.StepsTaken+1 {
		t.Errorf("error at step %d, but %d steps were recorded", stepErr.Step, result.StepsTaken)
	}
}

func TestRigRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero dt", func(c *config.Config) { c.Dt = 0 }},
		{"sub-microsecond dt", func(c *config.Config) { c.Dt = 1e-7 }},
		{"zero cpr", func(c *config.Config) { c.CPR = 0 }},
		{"bad timing", func(c *config.Config) { c.Timing = "" }},
	}

	for _, tt := range tests {
		cfg := config.DefaultConfig()
		tt.mutate(cfg)
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestRigSetTargetAndReset(t *testing.T) {
	r, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	r.SetTarget(-40)
	for i := 0; i < 500; i++ {
		s, err := r.Step()
		if err != nil {
			t.Fatal(err)
		}
		if s.Setpoint != -40 {
			t.Fatalf("expected manual target, got %f", s.Setpoint)
		}
	}
	if r.State()[IdxVelocity] >= 0 {
		t.Errorf("expected reverse rotation, got %f", r.State()[IdxVelocity])
	}

	r.Reset()
	if r.Time() != 0 {
		t.Errorf("expected time 0 after reset, got %f", r.Time())
	}
	if r.Target() != config.DefaultTarget {
		t.Errorf("expected scheduled target after reset, got %f", r.Target())
	}
	if r.Encoder().Position() != 0 || r.PID().Integral() != 0 {
		t.Error("expected primitives cleared after reset")
	}
}

func TestRigCopiesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Dt = 1
	if r.Config().Dt != config.DefaultDt {
		t.Error("rig must not alias the caller's config")
	}
}

func TestEncoderViewDoesNotQueryEstimator(t *testing.T) {
	a, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	view := a.EncoderView()
	for i := 0; i < 300; i++ {
		sa, err := a.Step()
		if err != nil {
			t.Fatal(err)
		}
		sb, err := b.Step()
		if err != nil {
			t.Fatal(err)
		}
		if view.Velocity() != sa.Estimated || view.Position() != a.Encoder().Position() {
			t.Fatalf("step %d: view out of sync", i)
		}
		if sa != sb {
			t.Fatalf("step %d: reading the view changed the loop", i)
		}
	}
	if a.Last() != b.Last() {
		t.Error("expected identical last samples")
	}
}

func TestRigRaisedLimitIsNotUnstable(t *testing.T) {
	cfg := config.GetPreset("step")
	cfg.Duration = 1.0
	cfg.PID.Limit = 0.3

	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	// At 0.3 V the motor cannot reach 100 rad/s; the live limit change must
	// widen the instability bound with it.
	r.PID().SetLimit(12)

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed after raising the limit: %v", err)
	}
	tail := result.Samples[len(result.Samples)-200:]
	v := mean(tail, func(s Sample) float64 { return s.Velocity })
	if math.Abs(v-100) > 2 {
		t.Errorf("expected settled velocity near 100 rad/s, got %f", v)
	}
}
