package device

import (
	"github.com/edp1096/circuitsim/pkg/circuit"
)

// Diode has posts (anode, cathode). A model with series resistance adds an
// internal node between the junction and the cathode.
type Diode struct {
	BaseDevice
	junction Junction
	current  float64
}

var _ circuit.Element = (*Diode)(nil)

func NewDiode(name string, model *DiodeModel) *Diode {
	return &Diode{
		BaseDevice: newBaseDevice(name, KindDiode, 2),
		junction:   Junction{Model: model},
	}
}

func (d *Diode) Model() *DiodeModel { return d.junction.Model }

func (d *Diode) SetModel(m *DiodeModel) { d.junction.Model = m }

func (d *Diode) NonLinear() bool { return true }

func (d *Diode) InternalNodeCount() int {
	if d.junction.Model.SeriesResistance > 0 {
		return 1
	}
	return 0
}

// junctionEnd is the node index of the junction's cathode side. Until the
// circuit is re-analyzed after an Rs change the old layout is kept.
func (d *Diode) junctionEnd() int {
	if d.InternalNodeCount() > 0 && len(d.Nodes) > 2 {
		return 2
	}
	return 1
}

func (d *Diode) Reset() {
	d.BaseDevice.Reset()
	d.junction.Reset()
	d.current = 0
}

func (d *Diode) Stamp(c *circuit.Circuit) {
	end := d.junctionEnd()
	if end == 2 {
		c.StampResistor(d.Nodes[2], d.Nodes[1], d.junction.Model.SeriesResistance)
	}
	d.junction.Stamp(c, d.Nodes[0], d.Nodes[end])
}

func (d *Diode) DoStep(c *circuit.Circuit) {
	end := d.junctionEnd()
	d.junction.DoStep(c, d.Nodes[0], d.Nodes[end], d.VoltageDiff(0, end))
}

func (d *Diode) SetNodeVoltage(n int, v float64) {
	d.Volts[n] = v
	if end := d.junctionEnd(); end < len(d.Volts) {
		d.current = d.junction.Current(d.VoltageDiff(0, end))
	}
}

// Current flows from anode to cathode.
func (d *Diode) Current() float64 { return d.current }

func (d *Diode) GetCurrentIntoNode(n int) float64 {
	if n == 0 {
		return -d.current
	}
	return d.current
}
