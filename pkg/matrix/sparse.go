package matrix

import (
	"fmt"
	"math"

	"github.com/edp1096/sparse"
)

// SparseMatrix factors MNA systems with Markowitz-ordered sparse LU. The pivot
// order found on the first factorization is reused; when a reused pivot fails
// the relative threshold the library reorders from that step on.
type SparseMatrix struct {
	Size           int
	Factorizations int
	matrix         *sparse.Matrix
	elements       [][]*sparse.Element // nil where structurally zero
	rhs            []float64           // 1-based
	config         *sparse.Configuration
}

var _ Solver = (*SparseMatrix)(nil)

func NewSparse() *SparseMatrix {
	return &SparseMatrix{
		config: &sparse.Configuration{
			Real:           true,
			Complex:        false,
			Expandable:     true,
			Translate:      false,
			ModifiedNodal:  true,
			TiesMultiplier: 5,
			PrinterWidth:   140,
		},
	}
}

func (m *SparseMatrix) setup(a [][]float64) error {
	m.Destroy()

	size := len(a)
	mat, err := sparse.Create(int64(size), m.config)
	if err != nil {
		return fmt.Errorf("creating sparse matrix: %v", err)
	}

	m.Size = size
	m.matrix = mat
	m.rhs = make([]float64, size+1)
	m.elements = make([][]*sparse.Element, size)
	for i := range a {
		m.elements[i] = make([]*sparse.Element, size)
		for j, v := range a[i] {
			if v != 0 {
				m.elements[i][j] = mat.GetElement(int64(i+1), int64(j+1))
			}
		}
	}
	return nil
}

// covers reports whether every nonzero of a already has an element. Element
// handles stay valid across reordering, so a new nonzero forces a rebuild.
func (m *SparseMatrix) covers(a [][]float64) bool {
	if m.matrix == nil || len(a) != m.Size {
		return false
	}
	for i, row := range a {
		for j, v := range row {
			if v != 0 && m.elements[i][j] == nil {
				return false
			}
		}
	}
	return true
}

func (m *SparseMatrix) Factor(a [][]float64) error {
	if len(a) == 0 {
		return fmt.Errorf("%w: empty system", ErrSingular)
	}
	if !m.covers(a) {
		if err := m.setup(a); err != nil {
			return err
		}
	}

	m.matrix.Clear()
	for i, row := range m.elements {
		for j, element := range row {
			if element != nil {
				element.Real = a[i][j]
			}
		}
	}

	if err := m.matrix.OrderAndFactor(nil, 0, 0, true); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	m.Factorizations++
	return nil
}

func (m *SparseMatrix) Solve(rhs []float64) ([]float64, error) {
	if m.matrix == nil || !m.matrix.Factored {
		return nil, fmt.Errorf("matrix is not factored")
	}
	if len(rhs) != m.Size {
		return nil, fmt.Errorf("rhs size %d does not match matrix size %d", len(rhs), m.Size)
	}

	m.rhs[0] = 0
	copy(m.rhs[1:], rhs)
	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %v", err)
	}

	x := make([]float64, m.Size)
	copy(x, solution[1:])
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite solution at row %d", ErrSingular, i)
		}
	}
	return x, nil
}

func (m *SparseMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
	m.elements = nil
}
