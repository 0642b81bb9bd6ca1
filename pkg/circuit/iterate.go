package circuit

import (
	"fmt"
	"math"

	"github.com/edp1096/circuitsim/internal/consts"
)

// DoIteration advances the circuit by one timestep: it re-linearizes and
// solves until every element reports convergence, then calls StepFinished
// and moves Time forward. During DC analysis Time does not move.
func (c *Circuit) DoIteration() error {
	if c.needsAnalyze || c.solver == nil {
		if err := c.analyze(); err != nil {
			return err
		}
	}
	if !c.stamped || c.TimeStep != c.stampedTimeStep || c.DcAnalysisFlag != c.stampedDC {
		c.stamp()
	}

	for _, e := range c.elements {
		e.StartIteration(c)
	}

	if c.size > 0 {
		if err := c.iterate(); err != nil {
			return err
		}
	}

	for _, e := range c.elements {
		e.StepFinished(c)
	}
	if err := c.checkRunaway(); err != nil {
		return err
	}

	if !c.DcAnalysisFlag {
		c.Time += c.TimeStep
	}
	return nil
}

func (c *Circuit) iterate() error {
	limit := c.cfg.MaxSubIterations
	for c.SubIterations = 0; c.SubIterations < limit; c.SubIterations++ {
		c.Converged = true

		copy(c.rightSide, c.origRightSide)
		if c.circuitNonLinear || !c.factored {
			for i := range c.matrix {
				copy(c.matrix[i], c.origMatrix[i])
			}
		}

		for _, e := range c.elements {
			e.DoStep(c)
		}

		if c.circuitNonLinear || !c.factored {
			if err := c.checkMatrix(); err != nil {
				return err
			}
			if err := c.solver.Factor(c.matrix); err != nil {
				return c.fail(err, "")
			}
			c.Factorizations++
			c.factored = !c.circuitNonLinear
		}

		if c.canReuseSolution() {
			break
		}
		x, err := c.solver.Solve(c.rightSide)
		if err != nil {
			return c.fail(err, "")
		}
		c.applySolution(x)
		c.solved = true

		if !c.circuitNonLinear {
			break
		}
		if c.Converged && c.SubIterations > 0 {
			break
		}
		if c.SubIterations == consts.GminStepStart+1 {
			c.logger.Warn("slow convergence, widening gmin", "time", c.Time)
		}
	}

	if c.SubIterations >= limit {
		return c.fail(ErrNonConvergence, "")
	}
	if c.SubIterations > 5 {
		c.logger.Debug("converged", "time", c.Time, "subIterations", c.SubIterations)
	}
	return nil
}

// canReuseSolution reports whether the previous solution still holds: a
// linear system already factored whose right side never changes.
func (c *Circuit) canReuseSolution() bool {
	if c.circuitNonLinear || !c.factored || !c.solved {
		return false
	}
	for _, changes := range c.rightSideChanges {
		if changes {
			return false
		}
	}
	return true
}

// applySolution pushes node voltages and source currents into the elements.
func (c *Circuit) applySolution(x []float64) {
	for n := 1; n < c.nodeCount; n++ {
		v := x[n-1]
		if math.IsNaN(v) {
			c.Converged = false
			v = 0
		}
		c.nodeVoltages[n] = v
		for _, l := range c.links[n] {
			l.elm.SetNodeVoltage(l.post, v)
		}
	}
	for k, e := range c.vsOwners {
		e.SetCurrent(k, x[c.nodeCount-1+k])
	}
}

func (c *Circuit) checkMatrix() error {
	for i, row := range c.matrix {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return c.fail(fmt.Errorf("%w: non-finite matrix entry at (%d,%d)", ErrRunaway, i+1, j+1), "")
			}
		}
	}
	for i, v := range c.rightSide {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return c.fail(fmt.Errorf("%w: non-finite right side at row %d", ErrRunaway, i+1), "")
		}
	}
	return nil
}

func (c *Circuit) checkRunaway() error {
	for _, e := range c.elements {
		for p := 0; p < e.PostCount(); p++ {
			i := e.GetCurrentIntoNode(p)
			if math.IsNaN(i) || math.Abs(i) > c.cfg.MaxCurrent {
				return c.fail(ErrRunaway, e.GetName())
			}
		}
	}
	return nil
}

func (c *Circuit) fail(err error, element string) error {
	c.factored = false
	c.logger.Error("simulation halted", "time", c.Time, "subIterations", c.SubIterations, "element", element, "err", err)
	return &SimulationError{
		Time:          c.Time,
		SubIterations: c.SubIterations,
		Element:       element,
		Err:           err,
	}
}

// SolveOperatingPoint finds the DC solution with capacitors open and
// inductors shorted, leaving element state as the initial condition for a
// transient run.
func (c *Circuit) SolveOperatingPoint() error {
	c.DcAnalysisFlag = true
	defer func() { c.DcAnalysisFlag = false }()
	return c.DoIteration()
}

// Run performs DoIteration until Time reaches stop.
func (c *Circuit) Run(stop float64, each func(c *Circuit)) error {
	for c.Time+c.TimeStep/2 < stop {
		if err := c.DoIteration(); err != nil {
			return err
		}
		if each != nil {
			each(c)
		}
	}
	return nil
}
