package device

import (
	"fmt"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/util"
)

// InductorCompanion is the Norton equivalent of an inductor for one timestep.
type InductorCompanion struct {
	Inductance float64
	Method     util.IntegrationMethod

	CompResistance float64
	CurSource      float64
	Current        float64
}

func (ic *InductorCompanion) Stamp(dt float64) float64 {
	ic.CompResistance = util.CompanionCoeff(ic.Method) * ic.Inductance / dt
	return ic.CompResistance
}

func (ic *InductorCompanion) StartIteration(voltdiff float64) {
	if ic.Method == util.Trapezoidal {
		ic.CurSource = voltdiff/ic.CompResistance + ic.Current
	} else {
		ic.CurSource = ic.Current
	}
}

func (ic *InductorCompanion) CalculateCurrent(voltdiff float64) {
	if ic.CompResistance > 0 {
		ic.Current = voltdiff/ic.CompResistance + ic.CurSource
	}
}

type Inductor struct {
	BaseDevice
	InductorCompanion
	InitialCurrent float64 // applied when a transient starts without an operating point
	voltdiff       float64
	pendingIC      bool
}

var _ circuit.Element = (*Inductor)(nil)

func NewInductor(name string, inductance float64, method util.IntegrationMethod) (*Inductor, error) {
	if !(inductance > 0) {
		return nil, fmt.Errorf("inductor %s: inductance must be positive, got %g", name, inductance)
	}
	return &Inductor{
		BaseDevice:        newBaseDevice(name, KindInductor, 2),
		InductorCompanion: InductorCompanion{Inductance: inductance, Method: method},
		pendingIC:         true,
	}, nil
}

func (l *Inductor) Reset() {
	l.BaseDevice.Reset()
	l.voltdiff = 0
	l.CurSource = 0
	l.Current = 0
	l.pendingIC = true
}

func (l *Inductor) Stamp(c *circuit.Circuit) {
	n0, n1 := l.Nodes[0], l.Nodes[1]
	if c.DcAnalysisFlag {
		l.CompResistance = 0
		l.CurSource = 0
		c.StampResistor(n0, n1, consts.InductorDCResistance)
		return
	}
	c.StampResistor(n0, n1, l.InductorCompanion.Stamp(c.TimeStep))
	c.MarkRightSideChanging(n0)
	c.MarkRightSideChanging(n1)
}

func (l *Inductor) StartIteration(c *circuit.Circuit) {
	if c.DcAnalysisFlag {
		l.pendingIC = false
		return
	}
	if l.pendingIC {
		l.voltdiff = 0
		l.Current = l.InitialCurrent
		l.pendingIC = false
	}
	l.InductorCompanion.StartIteration(l.voltdiff)
}

func (l *Inductor) DoStep(c *circuit.Circuit) {
	if !c.DcAnalysisFlag {
		c.StampCurrentSource(l.Nodes[0], l.Nodes[1], l.CurSource)
	}
}

func (l *Inductor) SetNodeVoltage(n int, v float64) {
	l.Volts[n] = v
	l.voltdiff = l.VoltageDiff(0, 1)
	if l.CompResistance > 0 {
		l.CalculateCurrent(l.voltdiff)
	} else {
		l.Current = l.voltdiff / consts.InductorDCResistance
	}
}

func (l *Inductor) GetCurrentIntoNode(n int) float64 {
	if n == 0 {
		return -l.Current
	}
	return l.Current
}
