package device

import (
	"fmt"

	"github.com/edp1096/circuitsim/pkg/circuit"
)

type Resistor struct {
	BaseDevice
	Resistance float64
	current    float64
}

var _ circuit.Element = (*Resistor)(nil)

func NewResistor(name string, r float64) (*Resistor, error) {
	if !(r > 0) {
		return nil, fmt.Errorf("resistor %s: resistance must be positive, got %g", name, r)
	}
	return &Resistor{BaseDevice: newBaseDevice(name, KindResistor, 2), Resistance: r}, nil
}

func (r *Resistor) Stamp(c *circuit.Circuit) {
	c.StampResistor(r.Nodes[0], r.Nodes[1], r.Resistance)
}

func (r *Resistor) SetNodeVoltage(n int, v float64) {
	r.Volts[n] = v
	r.current = r.VoltageDiff(0, 1) / r.Resistance
}

func (r *Resistor) Reset() {
	r.BaseDevice.Reset()
	r.current = 0
}

// Current flows from post 0 to post 1.
func (r *Resistor) Current() float64 { return r.current }

func (r *Resistor) GetCurrentIntoNode(n int) float64 {
	if n == 0 {
		return -r.current
	}
	return r.current
}
