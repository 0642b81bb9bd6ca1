package util

import (
	"fmt"
	"strings"
)

type IntegrationMethod int

const (
	Trapezoidal   IntegrationMethod = iota // 2nd order, may ring
	BackwardEuler                          // 1st order, damped
)

func (m IntegrationMethod) String() string {
	switch m {
	case BackwardEuler:
		return "euler"
	default:
		return "trap"
	}
}

func ParseIntegrationMethod(s string) (IntegrationMethod, error) {
	switch strings.ToLower(s) {
	case "trap", "trapezoidal", "tr":
		return Trapezoidal, nil
	case "euler", "be", "gear":
		return BackwardEuler, nil
	}
	return Trapezoidal, fmt.Errorf("unknown integration method %q", s)
}

// CompanionCoeff returns the factor k such that the companion resistance of a
// capacitor is dt/(k*C) and of an inductor k*L/dt.
func CompanionCoeff(method IntegrationMethod) float64 {
	if method == BackwardEuler {
		return 1.0
	}
	return 2.0
}
