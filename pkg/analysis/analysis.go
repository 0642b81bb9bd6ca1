package analysis

import (
	"errors"
	"fmt"
	"slices"

	"github.com/edp1096/circuitsim/pkg/circuit"
)

// ErrInvalidParameter marks an analysis set up with unusable parameters.
var ErrInvalidParameter = errors.New("invalid analysis parameter")

// Result traces written by the analyses themselves.
var reservedTraces = []string{"TIME", "SWEEP1", "SWEEP2"}

type Analysis interface {
	Setup(ckt *circuit.Circuit) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Circuit *circuit.Circuit
	probes  []Probe
	results map[string][]float64 // key: trace name, value: sample per stored time
}

func NewBaseAnalysis(probes []Probe) *BaseAnalysis {
	return &BaseAnalysis{
		probes:  probes,
		results: make(map[string][]float64),
	}
}

func (a *BaseAnalysis) Setup(ckt *circuit.Circuit) error {
	if ckt == nil {
		return fmt.Errorf("circuit not set")
	}
	for _, p := range a.probes {
		if slices.Contains(reservedTraces, p.Name) {
			return fmt.Errorf("%w: probe name %q is reserved", ErrInvalidParameter, p.Name)
		}
	}
	a.Circuit = ckt
	return nil
}

// StoreTimeResult samples every probe at the circuit's current state.
func (a *BaseAnalysis) StoreTimeResult(time float64) {
	if times := a.results["TIME"]; len(times) > 0 && times[len(times)-1] == time {
		return
	}

	a.results["TIME"] = append(a.results["TIME"], time)
	for _, p := range a.probes {
		a.results[p.Name] = append(a.results[p.Name], p.Read(a.Circuit))
	}
}

// StoreSweepResult records the swept source values as SWEEP1, SWEEP2 and
// samples every probe.
func (a *BaseAnalysis) StoreSweepResult(values ...float64) {
	for i, v := range values {
		key := fmt.Sprintf("SWEEP%d", i+1)
		a.results[key] = append(a.results[key], v)
	}
	for _, p := range a.probes {
		a.results[p.Name] = append(a.results[p.Name], p.Read(a.Circuit))
	}
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

// TraceNames lists the recorded traces in probe order, without TIME.
func (a *BaseAnalysis) TraceNames() []string {
	names := make([]string, 0, len(a.probes))
	for _, p := range a.probes {
		if !slices.Contains(names, p.Name) {
			names = append(names, p.Name)
		}
	}
	return names
}
