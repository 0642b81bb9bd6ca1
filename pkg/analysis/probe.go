package analysis

import (
	"fmt"

	"github.com/edp1096/circuitsim/pkg/circuit"
)

// Probe is one named trace read from the circuit after each stored step.
type Probe struct {
	Name string
	Read func(ckt *circuit.Circuit) float64
}

func NodeVoltage(name string, node int) Probe {
	return Probe{
		Name: fmt.Sprintf("V(%s)", name),
		Read: func(ckt *circuit.Circuit) float64 { return ckt.NodeVoltage(node) },
	}
}

// ElementCurrents probes the current flowing into e at each post. A
// two-terminal element gets the single trace I(name), positive from post 0
// through the element to post 1.
func ElementCurrents(e circuit.Element) []Probe {
	if e.PostCount() == 2 {
		return []Probe{{
			Name: fmt.Sprintf("I(%s)", e.GetName()),
			Read: func(*circuit.Circuit) float64 { return -e.GetCurrentIntoNode(0) },
		}}
	}

	probes := make([]Probe, e.PostCount())
	for p := range probes {
		probes[p] = Probe{
			Name: fmt.Sprintf("I(%s:%d)", e.GetName(), p),
			Read: func(*circuit.Circuit) float64 { return -e.GetCurrentIntoNode(p) },
		}
	}
	return probes
}
