package device

import (
	"github.com/edp1096/circuitsim/pkg/circuit"
)

type Kind int

const (
	KindResistor Kind = iota
	KindCapacitor
	KindInductor
	KindVoltageSource
	KindCurrentSource
	KindDiode
	KindBJT
	KindMOSFET
	KindVCCS
	KindCCCS
	KindVCVS
	KindCCVS
)

var kindTags = [...]string{"R", "C", "L", "V", "I", "D", "Q", "M", "G", "F", "E", "H"}

// String returns the SPICE type letter.
func (k Kind) String() string {
	if int(k) < len(kindTags) {
		return kindTags[k]
	}
	return "?"
}

// BaseDevice provides the Element defaults: a linear element with no
// internal nodes, no voltage sources and nothing to do per step.
type BaseDevice struct {
	Name  string
	Kind  Kind
	Nodes []int     // posts then internal nodes
	Volts []float64 // last solved voltage of each entry in Nodes
	posts int
}

func newBaseDevice(name string, kind Kind, posts int) BaseDevice {
	return BaseDevice{
		Name:  name,
		Kind:  kind,
		Nodes: make([]int, posts),
		Volts: make([]float64, posts),
		posts: posts,
	}
}

func (d *BaseDevice) GetName() string { return d.Name }
func (d *BaseDevice) GetType() string { return d.Kind.String() }

func (d *BaseDevice) PostCount() int          { return d.posts }
func (d *BaseDevice) InternalNodeCount() int  { return 0 }
func (d *BaseDevice) VoltageSourceCount() int { return 0 }
func (d *BaseDevice) NonLinear() bool         { return false }

func (d *BaseDevice) SetNode(p, node int) {
	for p >= len(d.Nodes) {
		d.Nodes = append(d.Nodes, 0)
		d.Volts = append(d.Volts, 0)
	}
	d.Nodes[p] = node
}

func (d *BaseDevice) GetNode(p int) int {
	if p < len(d.Nodes) {
		return d.Nodes[p]
	}
	return 0
}

func (d *BaseDevice) SetVoltageSource(idx, vs int) {}

func (d *BaseDevice) Reset() { clear(d.Volts) }

func (d *BaseDevice) Stamp(c *circuit.Circuit)          {}
func (d *BaseDevice) StartIteration(c *circuit.Circuit) {}
func (d *BaseDevice) DoStep(c *circuit.Circuit)         {}
func (d *BaseDevice) StepFinished(c *circuit.Circuit)   {}

func (d *BaseDevice) SetNodeVoltage(n int, v float64) { d.Volts[n] = v }
func (d *BaseDevice) SetCurrent(vs int, amps float64) {}
func (d *BaseDevice) GetCurrentIntoNode(n int) float64 {
	return 0
}

// VoltageDiff is the voltage from post a to post b.
func (d *BaseDevice) VoltageDiff(a, b int) float64 {
	return d.Volts[a] - d.Volts[b]
}
