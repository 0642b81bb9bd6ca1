package matrix

import (
	"errors"
	"fmt"
	"strings"
)

var ErrSingular = errors.New("matrix is singular")

// MaxCondition is the largest condition number the dense backend accepts.
const MaxCondition = 1e16

// Solver factors a square system once and solves it for any number of
// right-hand sides until the next Factor call. Row and column indices are
// 0-based.
type Solver interface {
	Factor(a [][]float64) error
	Solve(rhs []float64) ([]float64, error)
	Destroy()
}

type Backend string

const (
	BackendSparse Backend = "sparse"
	BackendDense  Backend = "dense"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case BackendSparse, BackendDense:
		return b, nil
	}
	return "", fmt.Errorf("unknown matrix backend %q", s)
}

func New(b Backend) (Solver, error) {
	switch b {
	case BackendSparse, "":
		return NewSparse(), nil
	case BackendDense:
		return NewDense(), nil
	}
	return nil, fmt.Errorf("unknown matrix backend %q", b)
}
