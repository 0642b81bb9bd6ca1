package circuit

// Element is anything that can be placed in a Circuit. Posts are numbered
// 0..PostCount-1; internal nodes follow at PostCount..PostCount+InternalNodeCount-1.
//
// Stamp adds contributions that stay fixed for a topology, timestep and DC
// flag. DoStep runs on every sub-iteration and adds the contributions that
// depend on the previous solution or on time. Elements clear c.Converged from
// DoStep when their operating point is still moving.
type Element interface {
	GetName() string
	GetType() string

	PostCount() int
	InternalNodeCount() int
	VoltageSourceCount() int
	NonLinear() bool

	SetNode(p, node int)
	GetNode(p int) int
	SetVoltageSource(idx, vs int)

	Reset()
	Stamp(c *Circuit)
	StartIteration(c *Circuit)
	DoStep(c *Circuit)
	StepFinished(c *Circuit)

	SetNodeVoltage(n int, v float64)
	SetCurrent(vs int, amps float64)
	// GetCurrentIntoNode is the current flowing out of the element into the
	// circuit at post n.
	GetCurrentIntoNode(n int) float64
}
