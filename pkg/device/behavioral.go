package device

import (
	"fmt"
	"math"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/expr"
)

// behavioralTol is how far an input may move between sub-iterations and
// still count as converged. It loosens as a stubborn step drags on.
func behavioralTol(subIterations int) float64 {
	switch {
	case subIterations < consts.BehavioralMidAt:
		return consts.BehavioralTolLo
	case subIterations < consts.BehavioralHiAt:
		return consts.BehavioralTolMid
	default:
		return consts.BehavioralTolHi
	}
}

// partial is the central difference of e in variable i at s.
func partial(e *expr.Expression, s *expr.State, i int) float64 {
	x := s.Values[i]
	s.Values[i] = x + consts.FiniteDiffStep
	hi := e.Eval(s)
	s.Values[i] = x - consts.FiniteDiffStep
	lo := e.Eval(s)
	s.Values[i] = x
	dx := (hi - lo) / (2 * consts.FiniteDiffStep)
	if math.IsNaN(dx) || math.IsInf(dx, 0) {
		dx = 0
	}
	return atLeast(dx, consts.MinDerivative)
}

// formula carries what all behavioral sources share: an expression of the
// variables a..i and t, and the input values of the last sub-iteration.
type formula struct {
	fn     *expr.Expression
	inputs int
	state  expr.State
	last   [expr.NumVars]float64
	output float64
}

func newFormula(name string, e *expr.Expression, inputs int) (formula, error) {
	if e == nil {
		return formula{}, fmt.Errorf("%s: missing expression", name)
	}
	if inputs < 0 || inputs > expr.NumVars {
		return formula{}, fmt.Errorf("%s: %d inputs, at most %d supported", name, inputs, expr.NumVars)
	}
	if e.Inputs() > inputs {
		return formula{}, fmt.Errorf("%s: expression uses %d variables but the source has %d inputs", name, e.Inputs(), inputs)
	}
	return formula{fn: e, inputs: inputs}, nil
}

// load copies the inputs into the evaluation state and clears c.Converged
// if any of them moved by more than tol.
func (f *formula) load(c *circuit.Circuit, values []float64, tol float64) {
	for i, v := range values {
		v = finite(v)
		if math.Abs(v-f.last[i]) > tol {
			c.Converged = false
		}
		f.state.Values[i] = v
		f.last[i] = v
	}
	f.state.T = c.SolveTime()
}

func (f *formula) eval() float64 {
	f.output = finite(f.fn.Eval(&f.state))
	return f.output
}

func (f *formula) reset() {
	f.state = expr.State{}
	f.last = [expr.NumVars]float64{}
	f.output = 0
}

// VCCS drives f(inputs, t) out of post "out+" through the circuit back into
// "out-". Posts are the input nodes followed by out+ and out-.
type VCCS struct {
	BaseDevice
	formula
}

var _ circuit.Element = (*VCCS)(nil)

func NewVCCS(name string, e *expr.Expression, inputs int) (*VCCS, error) {
	f, err := newFormula(name, e, inputs)
	if err != nil {
		return nil, err
	}
	return &VCCS{BaseDevice: newBaseDevice(name, KindVCCS, inputs+2), formula: f}, nil
}

func (g *VCCS) NonLinear() bool { return true }

func (g *VCCS) outputs() (int, int) {
	return g.Nodes[g.inputs], g.Nodes[g.inputs+1]
}

func (g *VCCS) Reset() {
	g.BaseDevice.Reset()
	g.reset()
}

func (g *VCCS) Stamp(c *circuit.Circuit) {
	op, on := g.outputs()
	c.StampNonLinear(op)
	c.StampNonLinear(on)
}

func (g *VCCS) DoStep(c *circuit.Circuit) {
	g.load(c, g.Volts[:g.inputs], behavioralTol(c.SubIterations))
	op, on := g.outputs()

	rs := g.eval()
	for i := 0; i < g.inputs; i++ {
		dx := partial(g.fn, &g.state, i)
		c.StampVCCurrentSource(on, op, g.Nodes[i], 0, dx)
		rs -= dx * g.state.Values[i]
	}
	c.StampCurrentSource(on, op, rs)
}

// Current is the output current delivered at out+.
func (g *VCCS) Current() float64 { return g.output }

func (g *VCCS) GetCurrentIntoNode(n int) float64 {
	switch n {
	case g.inputs:
		return g.output
	case g.inputs + 1:
		return -g.output
	}
	return 0
}

// CCCS senses the current from in+ to in- through a 0 V ammeter and drives
// f(a, t) out of out+. Posts are (in+, in-, out+, out-).
type CCCS struct {
	BaseDevice
	formula
	vs     int
	sensed float64
}

var _ circuit.Element = (*CCCS)(nil)

func NewCCCS(name string, e *expr.Expression) (*CCCS, error) {
	f, err := newFormula(name, e, 1)
	if err != nil {
		return nil, err
	}
	return &CCCS{BaseDevice: newBaseDevice(name, KindCCCS, 4), formula: f}, nil
}

func (f *CCCS) NonLinear() bool              { return true }
func (f *CCCS) VoltageSourceCount() int      { return 1 }
func (f *CCCS) SetVoltageSource(idx, vs int) { f.vs = vs }
func (f *CCCS) SetCurrent(vs int, amps float64) {
	f.sensed = amps
}

func (f *CCCS) Reset() {
	f.BaseDevice.Reset()
	f.reset()
	f.sensed = 0
}

func (f *CCCS) Stamp(c *circuit.Circuit) {
	c.StampVoltageSource(f.Nodes[0], f.Nodes[1], f.vs, 0)
	c.StampNonLinear(f.Nodes[2])
	c.StampNonLinear(f.Nodes[3])
}

func (f *CCCS) DoStep(c *circuit.Circuit) {
	// currents are judged on a scale ten times finer than voltages
	f.load(c, []float64{f.sensed}, behavioralTol(c.SubIterations)*0.1)
	op, on := f.Nodes[2], f.Nodes[3]

	f0 := f.eval()
	dx := partial(f.fn, &f.state, 0)
	c.StampCCCS(on, op, f.vs, dx)
	c.StampCurrentSource(on, op, f0-dx*f.state.Values[0])
}

// Sensed is the controlling current, flowing from in+ to in-.
func (f *CCCS) Sensed() float64  { return f.sensed }
func (f *CCCS) Current() float64 { return f.output }

func (f *CCCS) GetCurrentIntoNode(n int) float64 {
	switch n {
	case 0:
		return -f.sensed
	case 1:
		return f.sensed
	case 2:
		return f.output
	default:
		return -f.output
	}
}

// VCVS forces V(out+) - V(out-) = f(inputs, t). Posts are the input nodes
// followed by out+ and out-.
type VCVS struct {
	BaseDevice
	formula
	vs      int
	current float64 // entering out+
}

var _ circuit.Element = (*VCVS)(nil)

func NewVCVS(name string, e *expr.Expression, inputs int) (*VCVS, error) {
	f, err := newFormula(name, e, inputs)
	if err != nil {
		return nil, err
	}
	return &VCVS{BaseDevice: newBaseDevice(name, KindVCVS, inputs+2), formula: f}, nil
}

func (e *VCVS) NonLinear() bool                 { return true }
func (e *VCVS) VoltageSourceCount() int         { return 1 }
func (e *VCVS) SetVoltageSource(idx, vs int)    { e.vs = vs }
func (e *VCVS) SetCurrent(vs int, amps float64) { e.current = amps }

func (e *VCVS) Reset() {
	e.BaseDevice.Reset()
	e.reset()
	e.current = 0
}

func (e *VCVS) Stamp(c *circuit.Circuit) {
	c.StampVaryingVoltageSource(e.Nodes[e.inputs], e.Nodes[e.inputs+1], e.vs)
	c.StampNonLinear(c.VoltageSourceNode(e.vs))
}

func (e *VCVS) DoStep(c *circuit.Circuit) {
	e.load(c, e.Volts[:e.inputs], behavioralTol(c.SubIterations))
	vn := c.VoltageSourceNode(e.vs)

	rs := e.eval()
	for i := 0; i < e.inputs; i++ {
		dx := partial(e.fn, &e.state, i)
		c.StampMatrix(vn, e.Nodes[i], -dx)
		rs -= dx * e.state.Values[i]
	}
	c.UpdateVoltageSource(e.vs, rs)
}

func (e *VCVS) GetCurrentIntoNode(n int) float64 {
	switch n {
	case e.inputs:
		return -e.current
	case e.inputs + 1:
		return e.current
	}
	return 0
}

// CCVS forces V(out+) - V(out-) = f(a, t), a being the current from in+ to
// in- through a 0 V ammeter. Posts are (in+, in-, out+, out-).
type CCVS struct {
	BaseDevice
	formula
	vsSense, vsOut int
	sensed         float64
	current        float64 // entering out+
}

var _ circuit.Element = (*CCVS)(nil)

func NewCCVS(name string, e *expr.Expression) (*CCVS, error) {
	f, err := newFormula(name, e, 1)
	if err != nil {
		return nil, err
	}
	return &CCVS{BaseDevice: newBaseDevice(name, KindCCVS, 4), formula: f}, nil
}

func (h *CCVS) NonLinear() bool         { return true }
func (h *CCVS) VoltageSourceCount() int { return 2 }

func (h *CCVS) SetVoltageSource(idx, vs int) {
	if idx == 0 {
		h.vsSense = vs
	} else {
		h.vsOut = vs
	}
}

func (h *CCVS) SetCurrent(vs int, amps float64) {
	if vs == h.vsSense {
		h.sensed = amps
	} else {
		h.current = amps
	}
}

func (h *CCVS) Reset() {
	h.BaseDevice.Reset()
	h.reset()
	h.sensed, h.current = 0, 0
}

func (h *CCVS) Stamp(c *circuit.Circuit) {
	c.StampVoltageSource(h.Nodes[0], h.Nodes[1], h.vsSense, 0)
	c.StampVaryingVoltageSource(h.Nodes[2], h.Nodes[3], h.vsOut)
	c.StampNonLinear(c.VoltageSourceNode(h.vsOut))
}

func (h *CCVS) DoStep(c *circuit.Circuit) {
	h.load(c, []float64{h.sensed}, behavioralTol(c.SubIterations)*0.1)

	f0 := h.eval()
	dx := partial(h.fn, &h.state, 0)
	c.StampMatrix(c.VoltageSourceNode(h.vsOut), c.VoltageSourceNode(h.vsSense), -dx)
	c.UpdateVoltageSource(h.vsOut, f0-dx*h.state.Values[0])
}

func (h *CCVS) Sensed() float64 { return h.sensed }

func (h *CCVS) GetCurrentIntoNode(n int) float64 {
	switch n {
	case 0:
		return -h.sensed
	case 1:
		return h.sensed
	case 2:
		return -h.current
	default:
		return h.current
	}
}
