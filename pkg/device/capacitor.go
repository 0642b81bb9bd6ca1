package device

import (
	"fmt"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/util"
)

// CapacitorCompanion is the Norton equivalent of a capacitor for one
// timestep: a resistor in parallel with a current source.
type CapacitorCompanion struct {
	Capacitance float64
	Method      util.IntegrationMethod

	CompResistance float64
	CurSource      float64
	Current        float64
}

// Stamp computes the companion resistance for timestep dt.
func (cc *CapacitorCompanion) Stamp(dt float64) float64 {
	cc.CompResistance = dt / (util.CompanionCoeff(cc.Method) * cc.Capacitance)
	return cc.CompResistance
}

// StartIteration sets the source from the voltage and current at the end of
// the previous step.
func (cc *CapacitorCompanion) StartIteration(voltdiff float64) {
	if cc.Method == util.Trapezoidal {
		cc.CurSource = -voltdiff/cc.CompResistance - cc.Current
	} else {
		cc.CurSource = -voltdiff / cc.CompResistance
	}
}

func (cc *CapacitorCompanion) CalculateCurrent(voltdiff float64) {
	if cc.CompResistance > 0 {
		cc.Current = voltdiff/cc.CompResistance + cc.CurSource
	}
}

type Capacitor struct {
	BaseDevice
	CapacitorCompanion
	InitialVoltage float64 // applied when a transient starts without an operating point
	voltdiff       float64
	pendingIC      bool
}

var _ circuit.Element = (*Capacitor)(nil)

func NewCapacitor(name string, capacitance float64, method util.IntegrationMethod) (*Capacitor, error) {
	if !(capacitance > 0) {
		return nil, fmt.Errorf("capacitor %s: capacitance must be positive, got %g", name, capacitance)
	}
	return &Capacitor{
		BaseDevice:         newBaseDevice(name, KindCapacitor, 2),
		CapacitorCompanion: CapacitorCompanion{Capacitance: capacitance, Method: method},
		pendingIC:          true,
	}, nil
}

func (cp *Capacitor) Reset() {
	cp.BaseDevice.Reset()
	cp.Current = 0
	cp.CurSource = 0
	cp.voltdiff = 0
	cp.pendingIC = true
}

func (cp *Capacitor) Stamp(c *circuit.Circuit) {
	n0, n1 := cp.Nodes[0], cp.Nodes[1]
	if c.DcAnalysisFlag {
		cp.CompResistance = 0
		cp.CurSource = 0
		c.StampResistor(n0, n1, consts.CapacitorDCResistance)
		return
	}
	c.StampResistor(n0, n1, cp.CapacitorCompanion.Stamp(c.TimeStep))
	c.MarkRightSideChanging(n0)
	c.MarkRightSideChanging(n1)
}

func (cp *Capacitor) StartIteration(c *circuit.Circuit) {
	if c.DcAnalysisFlag {
		cp.pendingIC = false
		return
	}
	if cp.pendingIC {
		cp.voltdiff = cp.InitialVoltage
		cp.Current = 0
		cp.pendingIC = false
	}
	cp.CapacitorCompanion.StartIteration(cp.voltdiff)
}

func (cp *Capacitor) DoStep(c *circuit.Circuit) {
	if !c.DcAnalysisFlag {
		c.StampCurrentSource(cp.Nodes[0], cp.Nodes[1], cp.CurSource)
	}
}

func (cp *Capacitor) SetNodeVoltage(n int, v float64) {
	cp.Volts[n] = v
	cp.voltdiff = cp.VoltageDiff(0, 1)
	if cp.CompResistance > 0 {
		cp.CalculateCurrent(cp.voltdiff)
	} else {
		cp.Current = cp.voltdiff / consts.CapacitorDCResistance
	}
}

func (cp *Capacitor) Voltage() float64 { return cp.voltdiff }

func (cp *Capacitor) GetCurrentIntoNode(n int) float64 {
	if n == 0 {
		return -cp.Current
	}
	return cp.Current
}
