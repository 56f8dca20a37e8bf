package commander

func (c *Commander) Welcome() {
	c.printf("\n%s\n", rule)
	c.printf("SimpleFOC Commander - focsim\n")
	c.printf("%s\n", rule)
	c.printf("Available commands:\n")
	if c.pid != nil {
		c.printf("  P[val]  - PID Proportional gain\n")
		c.printf("  I[val]  - PID Integral gain\n")
		c.printf("  D[val]  - PID Derivative gain\n")
		c.printf("  R[val]  - PID Output ramp\n")
		c.printf("  L[val]  - PID Output limit\n")
	}
	if c.lpf != nil {
		c.printf("  F[val]  - LowPass Filter time constant\n")
	}
	if c.encoder != nil {
		c.printf("  E       - Encoder status\n")
	}
	c.printf("  T[val]  - Set target value\n")
	c.printf("  ?       - Print status\n")
	c.printf("  V       - Toggle verbose mode\n")
	c.printf("  @       - Scan registered commands\n")

	if c.hasLabels() {
		c.printf("\nCustom commands:\n")
		c.eachLabel(func(id byte, label string) {
			c.printf("  %c       - %s\n", id, label)
		})
	}

	c.printf("%s\n", rule)
	c.printf("Ready! Type command and press Enter.\n\n")
}

func (c *Commander) printCommands() {
	c.printf("\n%s\n", rule)
	c.printf("Registered Commands:\n")
	c.printf("%s\n", rule)

	if c.pid != nil {
		c.printf("PID Controller:\n")
		c.printf("  P - Proportional gain\n")
		c.printf("  I - Integral gain\n")
		c.printf("  D - Derivative gain\n")
		c.printf("  R - Output ramp\n")
		c.printf("  L - Output limit\n")
	}
	if c.lpf != nil {
		c.printf("\nLowPass Filter:\n")
		c.printf("  F - Time constant (Tf)\n")
	}
	if c.encoder != nil {
		c.printf("\nEncoder:\n")
		c.printf("  E - Status and readings\n")
	}

	c.printf("\nGeneral:\n")
	c.printf("  T - Target value\n")
	c.printf("  ? - Print status\n")
	c.printf("  V - Toggle verbose mode\n")
	c.printf("  @ - Scan commands (this help)\n")

	if c.hasLabels() {
		c.printf("\nCustom Commands:\n")
		c.eachLabel(func(id byte, label string) {
			c.printf("  %c - %s\n", id, label)
		})
	}
	c.printf("%s\n\n", rule)
}

func (c *Commander) printStatus() {
	c.printf("\n%s\n", rule)
	c.printf("System Status:\n")
	c.printf("%s\n", rule)

	c.printf("Target: %s\n", c.num(c.Target()))

	if c.pid != nil {
		p := c.pid.GetParams()
		c.printf("\nPID Controller:\n")
		c.printf("  P:     %s\n", c.num(p["P"]))
		c.printf("  I:     %s\n", c.num(p["I"]))
		c.printf("  D:     %s\n", c.num(p["D"]))
		c.printf("  Ramp:  %s\n", c.num(p["ramp"]))
		c.printf("  Limit: %s\n", c.num(p["limit"]))
	}
	if c.lpf != nil {
		c.printf("\nLowPass Filter:\n")
		c.printf("  Tf: %s s\n", c.num(c.lpf.GetParams()["Tf"]))
	}
	if c.encoder != nil {
		c.printf("\nEncoder:\n")
		c.printEncoder()
	}
	c.printf("%s\n\n", rule)
}

func (c *Commander) printEncoder() {
	angle := c.encoder.Angle()
	velocity := c.encoder.Velocity()
	c.printf("  Position: %d counts\n", c.encoder.Position())
	c.printf("  Angle:    %s rad\n", c.num(angle))
	c.printf("  Velocity: %s rad/s\n", c.num(velocity))
}

func (c *Commander) hasLabels() bool {
	for _, id := range c.order {
		if c.callbacks[id].label != "" {
			return true
		}
	}
	return false
}

func (c *Commander) eachLabel(fn func(id byte, label string)) {
	for _, id := range c.order {
		if label := c.callbacks[id].label; label != "" {
			fn(id, label)
		}
	}
}
