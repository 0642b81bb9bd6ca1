package analysis

import (
	"fmt"

	"github.com/edp1096/circuitsim/pkg/circuit"
)

type OperatingPoint struct{ BaseAnalysis }

func NewOP(probes ...Probe) *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(probes),
	}
}

func (op *OperatingPoint) Setup(ckt *circuit.Circuit) error {
	return op.BaseAnalysis.Setup(ckt)
}

// Execute solves the DC operating point with capacitors open and inductors
// shorted. Element state is left as the initial condition for a transient.
func (op *OperatingPoint) Execute() error {
	if op.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}
	if err := op.Circuit.SolveOperatingPoint(); err != nil {
		return fmt.Errorf("operating point: %w", err)
	}
	op.StoreTimeResult(op.Circuit.Time)
	return nil
}
