package device

import (
	"errors"
	"math"
	"testing"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/matrix"
)

func mustModel(t *testing.T, ctx *SimulationContext, name string) *DiodeModel {
	t.Helper()
	m, err := ctx.DiodeModel(name)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestJunctionLinearizeMatchesCurrent(t *testing.T) {
	ctx := NewSimulationContext()
	for _, name := range []string{"default", "default-zener", "1N4148", "1N4733"} {
		j := Junction{Model: mustModel(t, ctx, name)}
		for _, v := range []float64{-7, -5.6, -5.1, -1, -0.01, 0, 0.2, 0.5, 0.7} {
			for _, gmin := range []float64{0, 1e-12, 1e-3} {
				geq, nc := j.Linearize(v, gmin)
				want := j.Current(v)
				got := geq*v + nc
				if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
					t.Errorf("%s v=%g gmin=%g: geq*v+nc = %g, want %g", name, v, gmin, got, want)
				}
				if geq <= 0 {
					t.Errorf("%s v=%g: geq = %g, want positive", name, v, geq)
				}
			}
		}
	}
}

func TestZenerCurrentAtBreakdown(t *testing.T) {
	ctx := NewSimulationContext()
	for _, name := range []string{"default-zener", "1N4733"} {
		m := mustModel(t, ctx, name)
		got := m.Current(-m.BreakdownVoltage)
		if math.Abs(got-consts.ZenerCurrent) > 1e-9 {
			t.Errorf("%s: I(-Vz) = %g, want %g", name, got, consts.ZenerCurrent)
		}
	}
}

func TestLimitStep(t *testing.T) {
	ctx := NewSimulationContext()
	j := Junction{Model: mustModel(t, ctx, "default")}

	if v, limited := j.LimitStep(0.3, 0.29); limited || v != 0.3 {
		t.Errorf("small step: got %g limited=%v", v, limited)
	}
	v, limited := j.LimitStep(5, 0.5)
	if !limited {
		t.Fatal("large forward step was not limited")
	}
	if v <= 0.5 || v >= 5 {
		t.Errorf("limited step = %g, want between 0.5 and 5", v)
	}
	if v, limited := j.LimitStep(-3, 0); limited || v != -3 {
		t.Errorf("reverse step without breakdown: got %g limited=%v", v, limited)
	}

	z := Junction{Model: mustModel(t, ctx, "default-zener")}
	v, limited = z.LimitStep(-10, -5.5)
	if !limited {
		t.Fatal("large breakdown step was not limited")
	}
	if v >= -5.5 || v <= -10 {
		t.Errorf("limited breakdown step = %g, want between -10 and -5.5", v)
	}
}

func TestGminEscalation(t *testing.T) {
	ctx := NewSimulationContext()
	j := Junction{Model: mustModel(t, ctx, "default")}

	base := j.Gmin(0, consts.DiodeGminStepSpan)
	if want := math.Max(j.Model.SaturationCurrent*0.01, 1e-12); base != want {
		t.Errorf("Gmin(0) = %g, want %g", base, want)
	}
	prev := 0.0
	for _, n := range []int{101, 500, 1000, 2000} {
		g := j.Gmin(n, consts.DiodeGminStepSpan)
		if g <= prev {
			t.Errorf("Gmin(%d) = %g did not grow past %g", n, g, prev)
		}
		prev = g
	}
	if g := j.Gmin(4000, consts.DiodeGminStepSpan); g != consts.GminStepMax {
		t.Errorf("Gmin(4000) = %g, want cap %g", g, consts.GminStepMax)
	}
}

func TestDiodeModelUpdate(t *testing.T) {
	ctx := NewSimulationContext()
	m := mustModel(t, ctx, "default")
	d := NewDiode("D1", m)
	before := d.Model().vscale

	p := m.DiodeParams
	p.EmissionCoefficient = 1
	if err := ctx.UpdateDiodeModel("DEFAULT", p); err != nil {
		t.Fatal(err)
	}
	if d.Model().vscale == before {
		t.Error("vscale unchanged after UpdateDiodeModel")
	}
	if math.Abs(d.Model().vscale-consts.VT) > 1e-15 {
		t.Errorf("vscale = %g, want %g", d.Model().vscale, consts.VT)
	}

	if _, err := ctx.DiodeModel("no-such-model"); err == nil {
		t.Error("unknown model lookup succeeded")
	}
	if err := ctx.UpdateDiodeModel("default", DiodeParams{}); err == nil {
		t.Error("zero saturation current accepted")
	}
}

func TestDefineDiodeModelSharesPointer(t *testing.T) {
	ctx := NewSimulationContext()
	a, err := ctx.DefineDiodeModel("mine", DiodeParams{SaturationCurrent: 1e-14, EmissionCoefficient: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctx.DefineDiodeModel("MINE", DiodeParams{SaturationCurrent: 2e-14, EmissionCoefficient: 1})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("redefinition created a new model")
	}
	if a.SaturationCurrent != 2e-14 {
		t.Errorf("Is = %g, want 2e-14", a.SaturationCurrent)
	}

	names := ctx.DiodeModelNames()
	found := false
	for _, n := range names {
		if n == "mine" {
			found = true
		}
	}
	if !found || len(names) != len(builtinDiodeModels)+1 {
		t.Errorf("DiodeModelNames = %v", names)
	}
}

func TestDiodeForwardBias(t *testing.T) {
	for _, backend := range backends {
		c := newTestCircuit(backend)
		ctx := NewSimulationContext()
		d := NewDiode("D1", mustModel(t, ctx, "default"))
		r := mustResistor(t, "R1", 1000)
		mustAdd(t, c, NewDCVoltageSource("V1", 5), 1, 0)
		mustAdd(t, c, r, 1, 2)
		mustAdd(t, c, d, 2, 0)

		if err := c.SolveOperatingPoint(); err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		vd := c.NodeVoltage(2)
		if vd < 0.4 || vd > 0.8 {
			t.Errorf("%s: Vd = %g, want a forward drop", backend, vd)
		}
		if math.Abs(d.Current()-r.Current()) > 0.01*r.Current() {
			t.Errorf("%s: I(D) = %g, I(R) = %g", backend, d.Current(), r.Current())
		}
	}
}

func TestDiodeSeriesResistanceAddsNode(t *testing.T) {
	c := newTestCircuit(matrix.BackendSparse)
	ctx := NewSimulationContext()
	d := NewDiode("D1", mustModel(t, ctx, "1N4148"))
	r := mustResistor(t, "R1", 1000)
	mustAdd(t, c, NewDCVoltageSource("V1", 5), 1, 0)
	mustAdd(t, c, r, 1, 2)
	mustAdd(t, c, d, 2, 0)

	if err := c.SolveOperatingPoint(); err != nil {
		t.Fatal(err)
	}
	if c.NodeCount() != 4 {
		t.Errorf("NodeCount = %d, want 4 with the internal node", c.NodeCount())
	}
	if math.Abs(d.Current()-r.Current()) > 0.01*r.Current() {
		t.Errorf("I(D) = %g, I(R) = %g", d.Current(), r.Current())
	}
	// the internal node sits below the anode by the junction drop
	internal := c.NodeVoltage(d.GetNode(2))
	if internal >= c.NodeVoltage(2) || internal <= 0 {
		t.Errorf("internal node at %g, anode at %g", internal, c.NodeVoltage(2))
	}
}

func TestZenerRegulator(t *testing.T) {
	c := newTestCircuit(matrix.BackendSparse)
	ctx := NewSimulationContext()
	d := NewDiode("D1", mustModel(t, ctx, "default-zener"))
	mustAdd(t, c, NewDCVoltageSource("V1", 10), 1, 0)
	mustAdd(t, c, mustResistor(t, "R1", 1000), 1, 2)
	mustAdd(t, c, d, 0, 2)

	if err := c.SolveOperatingPoint(); err != nil {
		t.Fatal(err)
	}
	if v := c.NodeVoltage(2); v < 5.5 || v > 5.7 {
		t.Errorf("V(2) = %g, want about 5.6", v)
	}
}

func TestAntiSeriesDiodesDoNotConverge(t *testing.T) {
	for _, backend := range backends {
		cfg := circuit.DefaultConfig()
		cfg.Backend = backend
		cfg.MaxSubIterations = 3
		c := circuit.New(cfg)
		ctx := NewSimulationContext()
		model := mustModel(t, ctx, "default")
		// cathodes meet at node 2, so D2 takes nearly the full 1000 V in reverse
		mustAdd(t, c, NewDCVoltageSource("V1", 1000), 1, 0)
		mustAdd(t, c, NewDiode("D1", model), 1, 2)
		mustAdd(t, c, NewDiode("D2", model), 0, 2)

		err := c.SolveOperatingPoint()
		if !errors.Is(err, circuit.ErrNonConvergence) {
			t.Fatalf("%s: err = %v, want ErrNonConvergence", backend, err)
		}
		var simErr *circuit.SimulationError
		if errors.As(err, &simErr) && simErr.SubIterations != cfg.MaxSubIterations {
			t.Errorf("%s: SubIterations = %d, want %d", backend, simErr.SubIterations, cfg.MaxSubIterations)
		}
	}
}
