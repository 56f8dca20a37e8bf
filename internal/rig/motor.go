package rig

import (
	"math"

	"github.com/san-kum/focsim/internal/config"
)

// Motor is a brushed DC motor with a constant load torque:
//
//	dθ/dt = ω
//	J dω/dt = Kt i - b ω - τ
//	L di/dt = u - R i - Ke ω
type Motor struct {
	R, L   float64
	Kt, Ke float64
	J, B   float64
	Load   float64
}

func NewMotor(cfg config.MotorConfig) *Motor {
	return &Motor{
		R:    cfg.Resistance,
		L:    cfg.Inductance,
		Kt:   cfg.Kt,
		Ke:   cfg.Ke,
		J:    cfg.Inertia,
		B:    cfg.Damping,
		Load: cfg.Load,
	}
}

func (m *Motor) DeriveInto(dx, x State, u float64, t float64) {
	omega := x[IdxVelocity]
	current := x[IdxCurrent]

	dx[IdxAngle] = omega
	dx[IdxVelocity] = (m.Kt*current - m.B*omega - m.Load) / m.J
	dx[IdxCurrent] = (u - m.R*current - m.Ke*omega) / m.L
}

// SteadyVelocity is the no-transient speed for a constant voltage u.
func (m *Motor) SteadyVelocity(u float64) float64 {
	return (m.Kt*u - m.R*m.Load) / (m.R*m.B + m.Kt*m.Ke)
}

// MaxVelocity is the speed at which the rig declares the loop unstable.
func (m *Motor) MaxVelocity(limit float64) float64 {
	if limit <= 0 {
		limit = 1000
	}
	return 10 * math.Abs(m.SteadyVelocity(limit))
}
