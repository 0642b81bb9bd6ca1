package circuit

// Stamp primitives take unified indices. Anything touching index 0 (ground)
// is dropped. Calls made from Element.Stamp land in the original system;
// calls made from DoStep land in the working copy for this sub-iteration.

func (c *Circuit) StampMatrix(i, j int, x float64) {
	if i <= 0 || j <= 0 {
		return
	}
	if c.stamping {
		c.origMatrix[i-1][j-1] += x
		return
	}
	if !c.circuitNonLinear {
		// a DoStep matrix write without StampNonLinear; the working copy still
		// equals the original here, so switch to per-iteration refactoring
		c.circuitNonLinear = true
		c.factored = false
		c.logger.Debug("matrix changed during step; refactoring every sub-iteration", "row", i)
	}
	c.matrix[i-1][j-1] += x
}

func (c *Circuit) StampRightSide(i int, x float64) {
	if i <= 0 {
		return
	}
	if c.stamping {
		c.origRightSide[i-1] += x
		return
	}
	c.rightSide[i-1] += x
}

// MarkRightSideChanging records that row i gets a new RHS value every step.
func (c *Circuit) MarkRightSideChanging(i int) {
	if i > 0 {
		c.rightSideChanges[i-1] = true
	}
}

// StampNonLinear marks node n's row as rebuilt every sub-iteration.
func (c *Circuit) StampNonLinear(n int) {
	if n > 0 {
		c.nonLinearRows[n-1] = true
		c.circuitNonLinear = true
	}
}

func (c *Circuit) StampConductance(a, b int, g float64) {
	c.StampMatrix(a, a, g)
	c.StampMatrix(b, b, g)
	c.StampMatrix(a, b, -g)
	c.StampMatrix(b, a, -g)
}

func (c *Circuit) StampResistor(a, b int, r float64) {
	c.StampConductance(a, b, 1/r)
}

// StampVoltageSource forces V(a) - V(b) = v. The source's unknown is the
// current entering it at a.
func (c *Circuit) StampVoltageSource(a, b, vs int, v float64) {
	c.stampVoltageSourceMatrix(a, b, vs)
	c.StampRightSide(c.VoltageSourceNode(vs), v)
}

// StampVaryingVoltageSource is StampVoltageSource for a source whose value is
// supplied each step with UpdateVoltageSource.
func (c *Circuit) StampVaryingVoltageSource(a, b, vs int) {
	c.stampVoltageSourceMatrix(a, b, vs)
	c.MarkRightSideChanging(c.VoltageSourceNode(vs))
}

func (c *Circuit) stampVoltageSourceMatrix(a, b, vs int) {
	vn := c.VoltageSourceNode(vs)
	c.StampMatrix(vn, a, 1)
	c.StampMatrix(vn, b, -1)
	c.StampMatrix(a, vn, 1)
	c.StampMatrix(b, vn, -1)
}

func (c *Circuit) UpdateVoltageSource(vs int, v float64) {
	c.StampRightSide(c.VoltageSourceNode(vs), v)
}

// StampCurrentSource drives i from a through the source into b.
func (c *Circuit) StampCurrentSource(a, b int, i float64) {
	c.StampRightSide(a, -i)
	c.StampRightSide(b, i)
}

// StampVCCurrentSource drives g*(V(ctrl)-V(ref)) from out+ through the source
// into out-.
func (c *Circuit) StampVCCurrentSource(outP, outN, ctrl, ref int, g float64) {
	c.StampMatrix(outP, ctrl, g)
	c.StampMatrix(outN, ref, g)
	c.StampMatrix(outP, ref, -g)
	c.StampMatrix(outN, ctrl, -g)
}

// StampCCCS drives gain times the current of voltage source vs from a
// through the source into b.
func (c *Circuit) StampCCCS(a, b, vs int, gain float64) {
	vn := c.VoltageSourceNode(vs)
	c.StampMatrix(a, vn, gain)
	c.StampMatrix(b, vn, -gain)
}
