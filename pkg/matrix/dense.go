package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DenseMatrix factors with LAPACK-style LU and partial pivoting.
type DenseMatrix struct {
	Size           int
	Factorizations int
	lu             mat.LU
	factored       bool
}

var _ Solver = (*DenseMatrix)(nil)

func NewDense() *DenseMatrix {
	return &DenseMatrix{}
}

func (m *DenseMatrix) Factor(a [][]float64) error {
	size := len(a)
	if size == 0 {
		return fmt.Errorf("%w: empty system", ErrSingular)
	}

	data := make([]float64, 0, size*size)
	for _, row := range a {
		data = append(data, row...)
	}

	m.factored = false
	m.Size = size
	m.lu.Factorize(mat.NewDense(size, size, data))
	if cond := m.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > MaxCondition {
		return fmt.Errorf("%w: condition number %g", ErrSingular, cond)
	}
	m.factored = true
	m.Factorizations++
	return nil
}

func (m *DenseMatrix) Solve(rhs []float64) ([]float64, error) {
	if !m.factored {
		return nil, fmt.Errorf("matrix is not factored")
	}
	if len(rhs) != m.Size {
		return nil, fmt.Errorf("rhs size %d does not match matrix size %d", len(rhs), m.Size)
	}

	b := mat.NewVecDense(m.Size, append([]float64(nil), rhs...))
	var x mat.VecDense
	if err := m.lu.SolveVecTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	solution := x.RawVector().Data
	for i, v := range solution {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite solution at row %d", ErrSingular, i)
		}
	}
	return solution, nil
}

func (m *DenseMatrix) Destroy() {
	m.lu = mat.LU{}
	m.factored = false
}
