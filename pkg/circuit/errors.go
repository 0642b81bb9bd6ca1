package circuit

import (
	"errors"
	"fmt"

	"github.com/edp1096/circuitsim/pkg/matrix"
)

var (
	// ErrSingularMatrix indicates an unsolvable topology such as a floating
	// node or a loop of ideal voltage sources.
	ErrSingularMatrix = matrix.ErrSingular

	// ErrNonConvergence indicates the sub-iteration cap was reached.
	ErrNonConvergence = errors.New("convergence failed")

	// ErrRunaway indicates a current above the sanity bound or a non-finite
	// matrix entry.
	ErrRunaway = errors.New("maximum current exceeded")
)

// SimulationError wraps a halt with the timestep context it happened in.
type SimulationError struct {
	Time          float64
	SubIterations int
	Element       string // offending element, when known
	Err           error
}

func (e *SimulationError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("t=%g: %s: %v", e.Time, e.Element, e.Err)
	}
	return fmt.Sprintf("t=%g: %v", e.Time, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}
