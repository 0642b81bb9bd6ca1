package matrix

import (
	"errors"
	"math"
	"testing"
)

func backends(t *testing.T) map[Backend]Solver {
	t.Helper()
	out := map[Backend]Solver{}
	for _, b := range []Backend{BackendSparse, BackendDense} {
		s, err := New(b)
		if err != nil {
			t.Fatalf("New(%s): %v", b, err)
		}
		out[b] = s
	}
	return out
}

// Voltage divider with a source branch: V1=10 between node 1 and ground,
// R1=1k from 1 to 2, R2=1k from 2 to ground.
func dividerSystem() ([][]float64, []float64) {
	g := 1e-3
	a := [][]float64{
		{g, -g, 1},
		{-g, 2 * g, 0},
		{1, 0, 0},
	}
	b := []float64{0, 0, 10}
	return a, b
}

func TestSolveDivider(t *testing.T) {
	for name, s := range backends(t) {
		a, b := dividerSystem()
		if err := s.Factor(a); err != nil {
			t.Fatalf("%s: Factor: %v", name, err)
		}
		x, err := s.Solve(b)
		if err != nil {
			t.Fatalf("%s: Solve: %v", name, err)
		}
		want := []float64{10, 5, -5e-3}
		for i := range want {
			if math.Abs(x[i]-want[i]) > 1e-9 {
				t.Errorf("%s: x[%d] = %g, want %g", name, i, x[i], want[i])
			}
		}
		s.Destroy()
	}
}

func TestResolveReusesFactorization(t *testing.T) {
	a, b := dividerSystem()
	s := NewSparse()
	if err := s.Factor(a); err != nil {
		t.Fatal(err)
	}
	for _, v := range []float64{1, 2, 3} {
		b[2] = v
		x, err := s.Solve(b)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(x[1]-v/2) > 1e-12 {
			t.Errorf("V(2) = %g, want %g", x[1], v/2)
		}
	}
	if s.Factorizations != 1 {
		t.Errorf("Factorizations = %d, want 1", s.Factorizations)
	}
}

func TestRefactorWithNewValues(t *testing.T) {
	for name, s := range backends(t) {
		a, b := dividerSystem()
		if err := s.Factor(a); err != nil {
			t.Fatal(err)
		}
		// R2 becomes 3k, same structure
		a[1][1] = 1e-3 + 1.0/3000
		if err := s.Factor(a); err != nil {
			t.Fatalf("%s: refactor: %v", name, err)
		}
		x, err := s.Solve(b)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(x[1]-7.5) > 1e-9 {
			t.Errorf("%s: V(2) = %g, want 7.5", name, x[1])
		}
	}
}

func TestNewNonzeroRebuildsStructure(t *testing.T) {
	s := NewSparse()
	a := [][]float64{{2, 0}, {0, 4}}
	if err := s.Factor(a); err != nil {
		t.Fatal(err)
	}
	a[0][1] = 1
	if err := s.Factor(a); err != nil {
		t.Fatal(err)
	}
	x, err := s.Solve([]float64{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x[1]-1) > 1e-12 || math.Abs(x[0]-1) > 1e-12 {
		t.Errorf("x = %v, want [1 1]", x)
	}
}

func TestSingular(t *testing.T) {
	systems := [][][]float64{
		{{1, 1}, {1, 1}},
		{{1, 0}, {0, 0}},
	}
	for name, s := range backends(t) {
		for _, a := range systems {
			err := s.Factor(a)
			if err == nil {
				t.Errorf("%s: expected singular error for %v", name, a)
				continue
			}
			if !errors.Is(err, ErrSingular) {
				t.Errorf("%s: error %v does not wrap ErrSingular", name, err)
			}
		}
	}
}

func TestParseBackend(t *testing.T) {
	if b, err := ParseBackend("Dense"); err != nil || b != BackendDense {
		t.Errorf("ParseBackend(Dense) = %q, %v", b, err)
	}
	if _, err := ParseBackend("klu"); err == nil {
		t.Error("expected error")
	}
	if _, err := New("klu"); err == nil {
		t.Error("expected error")
	}
}
