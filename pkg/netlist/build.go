package netlist

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/edp1096/circuitsim/pkg/analysis"
	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/device"
)

// Simulation is a netlist turned into a wired circuit and its analysis.
type Simulation struct {
	Circuit  *circuit.Circuit
	Context  *device.SimulationContext
	Elements []circuit.Element
	Analysis analysis.Analysis
	Probes   []analysis.Probe
}

// Build creates every element, wires it to the circuit and prepares the
// requested analysis with a voltage trace per node and a current trace per
// element.
func (nd *NetlistData) Build(cfg circuit.Config) (*Simulation, error) {
	sim := &Simulation{
		Circuit: circuit.New(cfg),
		Context: device.NewSimulationContext(),
	}

	if err := nd.defineDiodeModels(sim.Context); err != nil {
		return nil, err
	}

	for _, elem := range nd.Elements {
		e, nodes, err := CreateDevice(elem, nd.Models, sim.Context, cfg.Method)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", elem.Name, err)
		}
		idx := make([]int, len(nodes))
		for i, n := range nodes {
			idx[i] = nd.NodeIndex(n)
		}
		if err := sim.Circuit.AddElement(e, idx...); err != nil {
			return nil, err
		}
		sim.Elements = append(sim.Elements, e)
	}

	for _, name := range nd.NodeNames() {
		sim.Probes = append(sim.Probes, analysis.NodeVoltage(name, nd.Nodes[name]))
	}
	for _, e := range sim.Elements {
		sim.Probes = append(sim.Probes, analysis.ElementCurrents(e)...)
	}

	switch nd.Analysis {
	case AnalysisTRAN:
		tp := nd.TranParam
		sim.Analysis = analysis.NewTransient(tp.TStart, tp.TStop, tp.TStep, tp.UIC, sim.Probes...)
	case AnalysisDC:
		sim.Analysis = analysis.NewDCSweep(nd.DCParam, sim.Probes...)
	default:
		sim.Analysis = analysis.NewOP(sim.Probes...)
	}

	return sim, nil
}

func (nd *NetlistData) defineDiodeModels(ctx *device.SimulationContext) error {
	// SPICE defaults, no breakdown
	base := device.DiodeParams{SaturationCurrent: 1e-14, EmissionCoefficient: 1}
	for _, mp := range nd.Models {
		if mp.Type != "D" {
			continue
		}
		if _, err := ctx.DefineDiodeModel(mp.Name, device.DiodeParamsFromModel(mp, base)); err != nil {
			return fmt.Errorf("model %s: %w", mp.Name, err)
		}
	}
	return nil
}

func (nd *NetlistData) NodeIndex(name string) int {
	name = strings.ToLower(name)
	if IsGround(name) {
		return 0
	}
	return nd.Nodes[name]
}

// NodeNames lists the non-ground nodes in index order.
func (nd *NetlistData) NodeNames() []string {
	names := slices.Collect(maps.Keys(nd.Nodes))
	names = slices.DeleteFunc(names, IsGround)
	slices.SortFunc(names, func(a, b string) int { return cmp.Compare(nd.Nodes[a], nd.Nodes[b]) })
	return names
}
