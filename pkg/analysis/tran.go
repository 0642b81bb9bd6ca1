package analysis

import (
	"fmt"

	"github.com/edp1096/circuitsim/pkg/circuit"
)

// Transient steps the circuit with a fixed timestep and stores every probe
// from startTime on.
type Transient struct {
	BaseAnalysis
	op        *OperatingPoint
	startTime float64
	stopTime  float64
	timeStep  float64
	useUIC    bool // skip the operating point and start from initial conditions
}

func NewTransient(tStart, tStop, tStep float64, uic bool, probes ...Probe) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(probes),
		op:           NewOP(),
		startTime:    tStart,
		stopTime:     tStop,
		timeStep:     tStep,
		useUIC:       uic,
	}
}

func (tr *Transient) Setup(ckt *circuit.Circuit) error {
	if err := tr.BaseAnalysis.Setup(ckt); err != nil {
		return err
	}
	if tr.timeStep <= 0 {
		return fmt.Errorf("transient: %w: timestep must be positive, got %g", ErrInvalidParameter, tr.timeStep)
	}
	if tr.startTime < 0 || tr.startTime >= tr.stopTime {
		return fmt.Errorf("transient: %w: interval [%g, %g]", ErrInvalidParameter, tr.startTime, tr.stopTime)
	}

	ckt.Reset()
	ckt.TimeStep = tr.timeStep

	if !tr.useUIC {
		if err := tr.op.Setup(ckt); err != nil {
			return fmt.Errorf("operating point setup error: %w", err)
		}
		if err := tr.op.Execute(); err != nil {
			return err
		}
	}
	return nil
}

func (tr *Transient) Execute() error {
	ckt := tr.Circuit
	if ckt == nil {
		return fmt.Errorf("circuit not set")
	}

	// without an operating point the t=0 sample is only known after the
	// first step applies the initial conditions
	if !tr.useUIC && tr.startTime == 0 {
		tr.StoreTimeResult(ckt.Time)
	}

	err := ckt.Run(tr.stopTime, func(ckt *circuit.Circuit) {
		if ckt.Time >= tr.startTime-tr.timeStep/2 {
			tr.StoreTimeResult(ckt.Time)
		}
	})
	if err != nil {
		return fmt.Errorf("transient: %w", err)
	}
	return nil
}
