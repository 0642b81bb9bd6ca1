package device

import (
	"github.com/edp1096/circuitsim/pkg/circuit"
)

// CurrentSource drives Current from post 0 through the source into post 1.
type CurrentSource struct {
	BaseDevice
	Current float64
}

var _ circuit.Element = (*CurrentSource)(nil)

func NewCurrentSource(name string, amps float64) *CurrentSource {
	return &CurrentSource{BaseDevice: newBaseDevice(name, KindCurrentSource, 2), Current: amps}
}

func (s *CurrentSource) Stamp(c *circuit.Circuit) {
	c.StampCurrentSource(s.Nodes[0], s.Nodes[1], s.Current)
}

func (s *CurrentSource) GetCurrentIntoNode(n int) float64 {
	if n == 0 {
		return -s.Current
	}
	return s.Current
}

func (s *CurrentSource) Value() float64 { return s.Current }

// SetValue changes the source current and has c restamp before its next
// iteration.
func (s *CurrentSource) SetValue(c *circuit.Circuit, amps float64) {
	s.Current = amps
	c.Restamp()
}
