package device

import (
	"fmt"
	"math"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/circuit"
)

type MosfetParams struct {
	Vt           float64 // threshold (V), positive for both polarities
	Beta         float64 // A/V^2
	PNP          bool
	BodyDiode    bool
	BodyTerminal bool // expose the body as a fourth post
}

type MosfetMode int

const (
	ModeCutoff MosfetMode = iota
	ModeLinear
	ModeSaturation
)

func (m MosfetMode) String() string {
	switch m {
	case ModeLinear:
		return "linear"
	case ModeSaturation:
		return "saturation"
	default:
		return "cutoff"
	}
}

// SquareLaw evaluates the channel for vds >= 0 in the n-channel frame.
func SquareLaw(vgs, vds, vt, beta float64) (ids, gm, gds float64, mode MosfetMode) {
	switch {
	case vgs < vt:
		gds = consts.MosfetLeakage
		return vds * gds, 0, gds, ModeCutoff
	case vds < vgs-vt:
		ids = beta * ((vgs-vt)*vds - vds*vds*0.5)
		gm = beta * vds
		gds = beta * (vgs - vds - vt)
		return ids, gm, gds, ModeLinear
	default:
		gm = beta * (vgs - vt)
		gds = consts.MosfetLeakage
		ids = 0.5*beta*(vgs-vt)*(vgs-vt) + (vds-(vgs-vt))*gds
		return ids, gm, gds, ModeSaturation
	}
}

// Mosfet has posts (gate, source, drain) and optionally body.
type Mosfet struct {
	BaseDevice
	Params MosfetParams

	pnp     float64
	lastv   [3]float64
	mode    MosfetMode
	gm, gds float64

	drainCurrent float64 // into the drain post from the circuit

	diodeB1, diodeB2 Junction // body-source, body-drain
	diodeCurrent1    float64
	diodeCurrent2    float64
}

var _ circuit.Element = (*Mosfet)(nil)

func NewMosfet(name string, p MosfetParams, bodyModel *DiodeModel) (*Mosfet, error) {
	if p.Vt == 0 {
		p.Vt = 1.5
	}
	if p.Beta == 0 {
		p.Beta = 0.02
	}
	if !(p.Beta > 0) {
		return nil, fmt.Errorf("mosfet %s: beta must be positive, got %g", name, p.Beta)
	}
	if p.BodyDiode && bodyModel == nil {
		return nil, fmt.Errorf("mosfet %s: body diode needs a model", name)
	}
	posts := 3
	if p.BodyTerminal {
		posts = 4
	}
	m := &Mosfet{
		BaseDevice: newBaseDevice(name, KindMOSFET, posts),
		Params:     p,
		diodeB1:    Junction{Model: bodyModel},
		diodeB2:    Junction{Model: bodyModel},
	}
	m.setup()
	return m, nil
}

func (m *Mosfet) setup() {
	m.pnp = 1
	if m.Params.PNP {
		m.pnp = -1
	}
}

func (m *Mosfet) NonLinear() bool { return true }

func (m *Mosfet) Mode() MosfetMode { return m.mode }

func (m *Mosfet) bodyPost() int {
	if m.Params.BodyTerminal {
		return 3
	}
	return 1
}

func (m *Mosfet) hasSourceDiode() bool {
	return m.Params.BodyDiode && m.Params.BodyTerminal
}

func (m *Mosfet) Reset() {
	m.BaseDevice.Reset()
	m.setup()
	m.lastv = [3]float64{}
	m.mode = ModeCutoff
	m.gm, m.gds, m.drainCurrent = 0, 0, 0
	m.diodeB1.Reset()
	m.diodeB2.Reset()
	m.diodeCurrent1, m.diodeCurrent2 = 0, 0
}

// diodeEnds orders (body, other) as (anode, cathode) for the channel type.
func (m *Mosfet) diodeEnds(body, other int) (int, int) {
	if m.pnp > 0 {
		return body, other
	}
	return other, body
}

func (m *Mosfet) Stamp(c *circuit.Circuit) {
	m.setup()
	c.StampNonLinear(m.Nodes[1])
	c.StampNonLinear(m.Nodes[2])
	if !m.Params.BodyDiode {
		return
	}
	body := m.Nodes[m.bodyPost()]
	if m.hasSourceDiode() {
		a, k := m.diodeEnds(body, m.Nodes[1])
		m.diodeB1.Stamp(c, a, k)
	}
	a, k := m.diodeEnds(body, m.Nodes[2])
	m.diodeB2.Stamp(c, a, k)
}

// nonConvergence reports whether a terminal voltage is still moving, with a
// band that widens as the sub-iteration count grows.
func (m *Mosfet) nonConvergence(c *circuit.Circuit, last, now float64) bool {
	diff := math.Abs(last - now)
	if m.Params.Beta > consts.MosfetHighBetaCutoff {
		diff *= consts.MosfetHighBetaScale
	}
	if diff < consts.MosfetAbsTol {
		return false
	}
	if c.SubIterations > consts.MosfetRelTolStart && diff < math.Abs(now)*consts.MosfetRelTol {
		return false
	}
	if c.SubIterations > consts.MosfetLooseStart && diff < consts.MosfetAbsTol+float64(c.SubIterations-consts.MosfetLooseStart)*consts.MosfetLooseRate {
		return false
	}
	return true
}

func (m *Mosfet) DoStep(c *circuit.Circuit) {
	var v [3]float64
	v[0] = finite(m.Volts[0])
	v[1] = limitAround(finite(m.Volts[1]), m.lastv[1], consts.MosfetMaxStep)
	v[2] = limitAround(finite(m.Volts[2]), m.lastv[2], consts.MosfetMaxStep)

	source, drain := 1, 2
	if m.pnp*v[1] > m.pnp*v[2] {
		source, drain = 2, 1
	}
	for i := range v {
		if m.nonConvergence(c, m.lastv[i], v[i]) {
			c.Converged = false
		}
	}
	m.lastv = v

	realvgs := v[0] - v[source]
	realvds := v[drain] - v[source]
	ids, gm, gds, mode := SquareLaw(m.pnp*realvgs, m.pnp*realvds, m.Params.Vt, m.Params.Beta)
	m.mode, m.gm, m.gds = mode, gm, gds

	if m.Params.BodyDiode {
		m.stepBodyDiodes(c)
	}

	rs := -m.pnp*ids + gds*realvds + gm*realvgs
	g, s, d := m.Nodes[0], m.Nodes[source], m.Nodes[drain]
	c.StampMatrix(d, d, gds)
	c.StampMatrix(d, s, -gds-gm)
	c.StampMatrix(d, g, gm)
	c.StampMatrix(s, d, -gds)
	c.StampMatrix(s, s, gds+gm)
	c.StampMatrix(s, g, -gm)
	c.StampRightSide(d, rs)
	c.StampRightSide(s, -rs)

	// pnp*ids enters the current drain; map it back to the drain post
	m.drainCurrent = m.pnp * ids
	if drain == 1 {
		m.drainCurrent = -m.drainCurrent
	}
}

func (m *Mosfet) stepBodyDiodes(c *circuit.Circuit) {
	bp := m.bodyPost()
	body := m.Nodes[bp]
	if m.hasSourceDiode() {
		a, k := m.diodeEnds(body, m.Nodes[1])
		m.diodeB1.DoStep(c, a, k, m.pnp*m.VoltageDiff(bp, 1))
	}
	a, k := m.diodeEnds(body, m.Nodes[2])
	m.diodeB2.DoStep(c, a, k, m.pnp*m.VoltageDiff(bp, 2))
}

func (m *Mosfet) SetNodeVoltage(n int, v float64) {
	m.Volts[n] = v
	if !m.Params.BodyDiode {
		return
	}
	bp := m.bodyPost()
	if m.hasSourceDiode() {
		m.diodeCurrent1 = m.pnp * m.diodeB1.Current(m.pnp*m.VoltageDiff(bp, 1))
	}
	m.diodeCurrent2 = m.pnp * m.diodeB2.Current(m.pnp*m.VoltageDiff(bp, 2))
}

// DrainCurrent is the current flowing into the drain post.
func (m *Mosfet) DrainCurrent() float64 { return m.drainCurrent }

func (m *Mosfet) GetCurrentIntoNode(n int) float64 {
	switch n {
	case 0:
		return 0
	case 1:
		i := m.drainCurrent + m.diodeCurrent1
		if !m.Params.BodyTerminal {
			i -= m.diodeCurrent2
		}
		return i
	case 2:
		return -m.drainCurrent + m.diodeCurrent2
	default:
		return -(m.diodeCurrent1 + m.diodeCurrent2)
	}
}
