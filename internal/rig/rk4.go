package rig

// RK4 is a classical fourth-order Runge-Kutta step with reused scratch buffers.
type RK4 struct {
	k1, k2, k3, k4 State
	scratch        State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(State, n)
		r.k2 = make(State, n)
		r.k3 = make(State, n)
		r.k4 = make(State, n)
		r.scratch = make(State, n)
	}
}

// Step advances x in place by dt under a constant input u. It does not
// allocate once the buffers match len(x).
func (r *RK4) Step(sys System, x State, u, t, dt float64) {
	n := len(x)
	r.ensureScratch(n)

	sys.DeriveInto(r.k1, x, u, t)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	sys.DeriveInto(r.k2, r.scratch, u, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	sys.DeriveInto(r.k3, r.scratch, u, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	sys.DeriveInto(r.k4, r.scratch, u, t+dt)

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		x[i] += dt6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}
