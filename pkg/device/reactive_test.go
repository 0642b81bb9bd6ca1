package device

import (
	"math"
	"testing"

	"github.com/edp1096/circuitsim/pkg/matrix"
	"github.com/edp1096/circuitsim/pkg/util"
)

func TestCompanionResistance(t *testing.T) {
	cc := CapacitorCompanion{Capacitance: 1e-6, Method: util.BackwardEuler}
	if r := cc.Stamp(1e-5); math.Abs(r-10) > 1e-12 {
		t.Errorf("capacitor BE R = %g, want 10", r)
	}
	cc.Method = util.Trapezoidal
	if r := cc.Stamp(1e-5); math.Abs(r-5) > 1e-12 {
		t.Errorf("capacitor trap R = %g, want 5", r)
	}

	ic := InductorCompanion{Inductance: 1e-3, Method: util.BackwardEuler}
	if r := ic.Stamp(1e-5); math.Abs(r-100) > 1e-9 {
		t.Errorf("inductor BE R = %g, want 100", r)
	}
	ic.Method = util.Trapezoidal
	if r := ic.Stamp(1e-5); math.Abs(r-200) > 1e-9 {
		t.Errorf("inductor trap R = %g, want 200", r)
	}
}

func TestCapacitorCompanionSource(t *testing.T) {
	cc := CapacitorCompanion{Capacitance: 1e-6, Method: util.Trapezoidal}
	cc.Stamp(1e-5)
	cc.Current = 2e-3
	cc.StartIteration(1)
	if want := -1/5.0 - 2e-3; math.Abs(cc.CurSource-want) > 1e-15 {
		t.Errorf("trap source = %g, want %g", cc.CurSource, want)
	}

	cc.Method = util.BackwardEuler
	cc.Stamp(1e-5)
	cc.StartIteration(1)
	if want := -1 / 10.0; math.Abs(cc.CurSource-want) > 1e-15 {
		t.Errorf("BE source = %g, want %g", cc.CurSource, want)
	}
	cc.CalculateCurrent(1.5)
	if want := 1.5/10 - 0.1; math.Abs(cc.Current-want) > 1e-15 {
		t.Errorf("current = %g, want %g", cc.Current, want)
	}
}

func TestRCCharge(t *testing.T) {
	const (
		vin   = 5.0
		rv    = 1000.0
		cv    = 1e-6
		dt    = 1e-5
		steps = 500
	)
	tau := rv * cv

	for _, backend := range backends {
		for _, method := range []util.IntegrationMethod{util.Trapezoidal, util.BackwardEuler} {
			c := newTestCircuit(backend)
			c.TimeStep = dt
			cp, err := NewCapacitor("C1", cv, method)
			if err != nil {
				t.Fatal(err)
			}
			mustAdd(t, c, NewDCVoltageSource("V1", vin), 1, 0)
			mustAdd(t, c, mustResistor(t, "R1", rv), 1, 2)
			mustAdd(t, c, cp, 2, 0)

			for i := 0; i < steps; i++ {
				if err := c.DoIteration(); err != nil {
					t.Fatalf("%s/%s step %d: %v", backend, method, i, err)
				}
				want := vin * (1 - math.Exp(-c.Time/tau))
				if got := c.NodeVoltage(2); math.Abs(got-want) > 0.01*vin {
					t.Fatalf("%s/%s t=%g: V = %g, want %g", backend, method, c.Time, got, want)
				}
			}

			want := vin * (1 - math.Exp(-5))
			if got := cp.Voltage(); math.Abs(got-want) > 0.01*want {
				t.Errorf("%s/%s: V(5RC) = %g, want %g", backend, method, got, want)
			}
			if c.Factorizations != 1 {
				t.Errorf("%s/%s: %d factorizations, want 1", backend, method, c.Factorizations)
			}
		}
	}
}

func TestCapacitorMethodSwitch(t *testing.T) {
	c := newTestCircuit(matrix.BackendSparse)
	c.TimeStep = 1e-5
	cp, err := NewCapacitor("C1", 1e-6, util.BackwardEuler)
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, c, NewDCVoltageSource("V1", 1), 1, 0)
	mustAdd(t, c, mustResistor(t, "R1", 100), 1, 2)
	mustAdd(t, c, cp, 2, 0)

	if err := c.DoIteration(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(cp.CompResistance-10) > 1e-12 {
		t.Errorf("BE R = %g, want 10", cp.CompResistance)
	}

	cp.Method = util.Trapezoidal
	c.Invalidate()
	if err := c.DoIteration(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(cp.CompResistance-5) > 1e-12 {
		t.Errorf("trap R = %g, want 5", cp.CompResistance)
	}
}

func TestCapacitorOperatingPointIsOpen(t *testing.T) {
	c := newTestCircuit(matrix.BackendSparse)
	cp, err := NewCapacitor("C1", 1e-6, util.Trapezoidal)
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, c, NewDCVoltageSource("V1", 5), 1, 0)
	mustAdd(t, c, mustResistor(t, "R1", 1000), 1, 2)
	mustAdd(t, c, cp, 2, 0)

	if err := c.SolveOperatingPoint(); err != nil {
		t.Fatal(err)
	}
	if c.Time != 0 {
		t.Errorf("operating point moved time to %g", c.Time)
	}
	if v := c.NodeVoltage(2); math.Abs(v-5) > 1e-3 {
		t.Errorf("V(C) = %g, want 5", v)
	}

	// starting from the operating point the capacitor stays charged
	for i := 0; i < 10; i++ {
		if err := c.DoIteration(); err != nil {
			t.Fatal(err)
		}
	}
	if v := c.NodeVoltage(2); math.Abs(v-5) > 1e-3 {
		t.Errorf("V(C) after 10 steps = %g, want 5", v)
	}
}

func TestCapacitorInitialVoltage(t *testing.T) {
	c := newTestCircuit(matrix.BackendSparse)
	c.TimeStep = 1e-6
	cp, err := NewCapacitor("C1", 1e-6, util.BackwardEuler)
	if err != nil {
		t.Fatal(err)
	}
	cp.InitialVoltage = 2
	mustAdd(t, c, cp, 1, 0)
	mustAdd(t, c, mustResistor(t, "R1", 1000), 1, 0)

	if err := c.DoIteration(); err != nil {
		t.Fatal(err)
	}
	// one BE step of a 1 ms discharge from 2 V
	want := 2 / (1 + 1e-6/1e-3)
	if v := c.NodeVoltage(1); math.Abs(v-want) > 1e-9 {
		t.Errorf("V = %g, want %g", v, want)
	}
}

func TestRLCurrentRise(t *testing.T) {
	const (
		vin = 1.0
		rv  = 10.0
		lv  = 10e-3
		dt  = 1e-5
	)
	tau := lv / rv

	for _, method := range []util.IntegrationMethod{util.Trapezoidal, util.BackwardEuler} {
		c := newTestCircuit(matrix.BackendSparse)
		c.TimeStep = dt
		ind, err := NewInductor("L1", lv, method)
		if err != nil {
			t.Fatal(err)
		}
		mustAdd(t, c, NewDCVoltageSource("V1", vin), 1, 0)
		mustAdd(t, c, mustResistor(t, "R1", rv), 1, 2)
		mustAdd(t, c, ind, 2, 0)

		if err := c.Run(3*tau, nil); err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		want := vin / rv * (1 - math.Exp(-c.Time/tau))
		if math.Abs(ind.Current-want) > 0.01*vin/rv {
			t.Errorf("%s: I(L) = %g, want %g", method, ind.Current, want)
		}
	}
}

func TestInductorOperatingPointIsShort(t *testing.T) {
	c := newTestCircuit(matrix.BackendSparse)
	ind, err := NewInductor("L1", 1e-3, util.Trapezoidal)
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, c, NewDCVoltageSource("V1", 1), 1, 0)
	mustAdd(t, c, mustResistor(t, "R1", 100), 1, 2)
	mustAdd(t, c, ind, 2, 0)

	if err := c.SolveOperatingPoint(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(ind.Current-0.01) > 1e-6 {
		t.Errorf("I(L) = %g, want 0.01", ind.Current)
	}
}
