package analysis

import (
	"fmt"
	"math"

	"github.com/edp1096/circuitsim/pkg/circuit"
)

// SweepSource is an independent source whose value a DC sweep can step.
type SweepSource interface {
	circuit.Element
	Value() float64
	SetValue(c *circuit.Circuit, v float64)
}

// Sweep steps Source from Start to Stop by Increment.
type Sweep struct {
	Source    string
	Start     float64
	Stop      float64
	Increment float64
}

// Values lists the sweep points. The last point is Stop when the span is a
// whole number of increments.
func (s Sweep) Values() ([]float64, error) {
	if s.Increment == 0 || math.IsNaN(s.Increment) {
		return nil, fmt.Errorf("%w: %s increment must be non-zero", ErrInvalidParameter, s.Source)
	}
	steps := (s.Stop - s.Start) / s.Increment
	if steps < 0 {
		return nil, fmt.Errorf("%w: %s increment %g never reaches %g", ErrInvalidParameter, s.Source, s.Increment, s.Stop)
	}
	n := int(math.Floor(steps+1e-9)) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = s.Start + float64(i)*s.Increment
	}
	return values, nil
}

// DCSweep solves the operating point for every value of one source, or of
// two nested sources with the second stepping fastest.
type DCSweep struct {
	BaseAnalysis
	sweeps   []Sweep
	sources  []SweepSource
	points   [][]float64
	origVals []float64
}

func NewDCSweep(sweeps []Sweep, probes ...Probe) *DCSweep {
	return &DCSweep{
		BaseAnalysis: *NewBaseAnalysis(probes),
		sweeps:       sweeps,
	}
}

func (dc *DCSweep) Setup(ckt *circuit.Circuit) error {
	if err := dc.BaseAnalysis.Setup(ckt); err != nil {
		return err
	}
	if len(dc.sweeps) == 0 || len(dc.sweeps) > 2 {
		return fmt.Errorf("dc sweep: %w: %d sources, want 1 or 2", ErrInvalidParameter, len(dc.sweeps))
	}

	dc.sources = dc.sources[:0]
	dc.points = dc.points[:0]
	dc.origVals = dc.origVals[:0]
	for _, s := range dc.sweeps {
		e := ckt.FindElement(s.Source)
		if e == nil {
			return fmt.Errorf("dc sweep: %w: source %s not found", ErrInvalidParameter, s.Source)
		}
		src, ok := e.(SweepSource)
		if !ok {
			return fmt.Errorf("dc sweep: %w: %s is not an independent source", ErrInvalidParameter, s.Source)
		}
		values, err := s.Values()
		if err != nil {
			return fmt.Errorf("dc sweep: %w", err)
		}
		dc.sources = append(dc.sources, src)
		dc.points = append(dc.points, values)
		dc.origVals = append(dc.origVals, src.Value())
	}
	return nil
}

// Execute runs every sweep point and restores the source values afterwards.
func (dc *DCSweep) Execute() error {
	ckt := dc.Circuit
	if ckt == nil || len(dc.sources) == 0 {
		return fmt.Errorf("circuit not set")
	}
	defer func() {
		for i, src := range dc.sources {
			src.SetValue(ckt, dc.origVals[i])
		}
	}()

	inner := []float64{math.NaN()}
	if len(dc.sources) == 2 {
		inner = dc.points[1]
	}

	for _, v1 := range dc.points[0] {
		dc.sources[0].SetValue(ckt, v1)
		for _, v2 := range inner {
			values := []float64{v1}
			if len(dc.sources) == 2 {
				dc.sources[1].SetValue(ckt, v2)
				values = append(values, v2)
			}

			if err := ckt.SolveOperatingPoint(); err != nil {
				return fmt.Errorf("dc sweep at %s: %w", dc.pointName(values), err)
			}
			dc.StoreSweepResult(values...)
		}
	}
	return nil
}

func (dc *DCSweep) pointName(values []float64) string {
	name := fmt.Sprintf("%s=%g", dc.sweeps[0].Source, values[0])
	if len(values) > 1 {
		name += fmt.Sprintf(", %s=%g", dc.sweeps[1].Source, values[1])
	}
	return name
}
