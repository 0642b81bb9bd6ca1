package analysis

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/device"
	"github.com/edp1096/circuitsim/pkg/util"
)

type rcCircuit struct {
	ckt *circuit.Circuit
	r   *device.Resistor
	cp  *device.Capacitor
}

func newRC(t *testing.T) rcCircuit {
	t.Helper()
	ckt := circuit.New(circuit.DefaultConfig())
	r, err := device.NewResistor("R1", 1000)
	if err != nil {
		t.Fatal(err)
	}
	cp, err := device.NewCapacitor("C1", 1e-6, util.Trapezoidal)
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []struct {
		e     circuit.Element
		nodes []int
	}{
		{device.NewDCVoltageSource("V1", 5), []int{1, 0}},
		{r, []int{1, 2}},
		{cp, []int{2, 0}},
	} {
		if err := ckt.AddElement(w.e, w.nodes...); err != nil {
			t.Fatal(err)
		}
	}
	return rcCircuit{ckt: ckt, r: r, cp: cp}
}

func run(t *testing.T, a Analysis, ckt *circuit.Circuit) map[string][]float64 {
	t.Helper()
	if err := a.Setup(ckt); err != nil {
		t.Fatal(err)
	}
	if err := a.Execute(); err != nil {
		t.Fatal(err)
	}
	return a.GetResults()
}

func TestOperatingPoint(t *testing.T) {
	ckt := circuit.New(circuit.DefaultConfig())
	r1, _ := device.NewResistor("R1", 3000)
	r2, _ := device.NewResistor("R2", 2000)
	v1 := device.NewDCVoltageSource("V1", 10)
	ckt.AddElement(v1, 1, 0)
	ckt.AddElement(r1, 1, 2)
	ckt.AddElement(r2, 2, 0)

	probes := append([]Probe{NodeVoltage("mid", 2)}, ElementCurrents(v1)...)
	res := run(t, NewOP(probes...), ckt)

	if got := res["V(mid)"]; len(got) != 1 || math.Abs(got[0]-4) > 1e-9 {
		t.Errorf("V(mid) = %v, want [4]", got)
	}
	// the source delivers 2 mA out of its positive terminal
	if got := res["I(V1)"]; len(got) != 1 || math.Abs(got[0]+2e-3) > 1e-12 {
		t.Errorf("I(V1) = %v, want [-2e-3]", got)
	}
	if got := res["TIME"]; len(got) != 1 || got[0] != 0 {
		t.Errorf("TIME = %v, want [0]", got)
	}
}

func TestTransientRCFromInitialConditions(t *testing.T) {
	rc := newRC(t)
	probes := append([]Probe{NodeVoltage("out", 2)}, ElementCurrents(rc.r)...)
	tr := NewTransient(0, 5e-3, 1e-5, true, probes...)
	res := run(t, tr, rc.ckt)

	times := res["TIME"]
	if len(times) != 500 {
		t.Fatalf("%d samples, want 500", len(times))
	}
	vout, ir := res["V(out)"], res["I(R1)"]
	for i, tm := range times {
		want := 5 * (1 - math.Exp(-tm/1e-3))
		if math.Abs(vout[i]-want) > 0.05 {
			t.Fatalf("t=%g: V(out) = %g, want %g", tm, vout[i], want)
		}
		if math.Abs(ir[i]-(5-vout[i])/1000) > 1e-12 {
			t.Fatalf("t=%g: I(R1) = %g, want %g", tm, ir[i], (5-vout[i])/1000)
		}
	}
	if !slices.Equal(tr.TraceNames(), []string{"V(out)", "I(R1)"}) {
		t.Errorf("TraceNames = %v", tr.TraceNames())
	}
}

func TestTransientStartsFromOperatingPoint(t *testing.T) {
	rc := newRC(t)
	res := run(t, NewTransient(0, 1e-3, 1e-5, false, NodeVoltage("out", 2)), rc.ckt)

	times, vout := res["TIME"], res["V(out)"]
	if len(times) != 101 || times[0] != 0 {
		t.Fatalf("%d samples starting at %v", len(times), times[:1])
	}
	for i, v := range vout {
		if math.Abs(v-5) > 1e-3 {
			t.Fatalf("t=%g: V(out) = %g, want 5", times[i], v)
		}
	}
}

func TestTransientStartTime(t *testing.T) {
	rc := newRC(t)
	res := run(t, NewTransient(2e-3, 3e-3, 1e-5, true, NodeVoltage("out", 2)), rc.ckt)

	times := res["TIME"]
	if len(times) != 101 {
		t.Fatalf("%d samples, want 101", len(times))
	}
	if math.Abs(times[0]-2e-3) > 1e-9 || math.Abs(times[len(times)-1]-3e-3) > 1e-9 {
		t.Errorf("samples span [%g, %g]", times[0], times[len(times)-1])
	}
}

func TestTransientRerunResetsTime(t *testing.T) {
	rc := newRC(t)
	run(t, NewTransient(0, 1e-3, 1e-5, true), rc.ckt)
	res := run(t, NewTransient(0, 1e-3, 1e-5, true, NodeVoltage("out", 2)), rc.ckt)
	if first := res["TIME"][0]; math.Abs(first-1e-5) > 1e-12 {
		t.Errorf("second run starts at %g", first)
	}
}

func TestSetupValidation(t *testing.T) {
	rc := newRC(t)
	tests := []struct {
		name string
		a    Analysis
	}{
		{"zero step", NewTransient(0, 1e-3, 0, true)},
		{"start after stop", NewTransient(2e-3, 1e-3, 1e-5, true)},
		{"empty interval", NewTransient(1e-3, 1e-3, 1e-5, true)},
		{"reserved name", NewOP(Probe{Name: "TIME", Read: func(*circuit.Circuit) float64 { return 0 }})},
		{"reserved sweep name", NewOP(Probe{Name: "SWEEP1", Read: func(*circuit.Circuit) float64 { return 0 }})},
		{"no sweep", NewDCSweep(nil)},
		{"unknown source", NewDCSweep([]Sweep{{"V9", 0, 1, 0.1}})},
		{"not a source", NewDCSweep([]Sweep{{"R1", 0, 1, 0.1}})},
		{"zero increment", NewDCSweep([]Sweep{{"V1", 0, 1, 0}})},
		{"wrong direction", NewDCSweep([]Sweep{{"V1", 0, 1, -0.1}})},
	}
	for _, tt := range tests {
		if err := tt.a.Setup(rc.ckt); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%s: Setup err = %v, want ErrInvalidParameter", tt.name, err)
		}
	}
	if err := NewOP().Setup(nil); err == nil {
		t.Error("nil circuit accepted")
	}
}

func TestElementCurrentsPerPost(t *testing.T) {
	q, err := device.NewBJT("Q1", device.TransistorParams{Beta: 100})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range ElementCurrents(q) {
		names = append(names, p.Name)
	}
	if !slices.Equal(names, []string{"I(Q1:0)", "I(Q1:1)", "I(Q1:2)"}) {
		t.Errorf("names = %v", names)
	}
}

func TestSweepValues(t *testing.T) {
	tests := []struct {
		sweep Sweep
		want  []float64
	}{
		{Sweep{"V1", 0, 1, 0.25}, []float64{0, 0.25, 0.5, 0.75, 1}},
		{Sweep{"V1", 0, 0.3, 0.1}, []float64{0, 0.1, 0.2, 0.30000000000000004}},
		{Sweep{"V1", 2, 0, -1}, []float64{2, 1, 0}},
		{Sweep{"V1", 0, 1, 0.4}, []float64{0, 0.4, 0.8}},
		{Sweep{"V1", 3, 3, 1}, []float64{3}},
	}
	for _, tt := range tests {
		got, err := tt.sweep.Values()
		if err != nil {
			t.Errorf("%+v: %v", tt.sweep, err)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("%+v: values = %v, want %v", tt.sweep, got, tt.want)
		}
	}
}

func TestDCSweepDivider(t *testing.T) {
	ckt := circuit.New(circuit.DefaultConfig())
	r1, _ := device.NewResistor("R1", 3000)
	r2, _ := device.NewResistor("R2", 2000)
	v1 := device.NewDCVoltageSource("V1", 10)
	ckt.AddElement(v1, 1, 0)
	ckt.AddElement(r1, 1, 2)
	ckt.AddElement(r2, 2, 0)

	res := run(t, NewDCSweep([]Sweep{{"v1", 0, 10, 1}}, NodeVoltage("mid", 2)), ckt)

	sweep, mid := res["SWEEP1"], res["V(mid)"]
	if len(sweep) != 11 || len(mid) != 11 {
		t.Fatalf("%d sweep points, %d samples, want 11", len(sweep), len(mid))
	}
	for i, v := range sweep {
		if v != float64(i) {
			t.Errorf("SWEEP1[%d] = %g", i, v)
		}
		if math.Abs(mid[i]-0.4*v) > 1e-9 {
			t.Errorf("V1=%g: V(mid) = %g, want %g", v, mid[i], 0.4*v)
		}
	}
	if _, ok := res["TIME"]; ok {
		t.Error("sweep recorded a TIME trace")
	}

	// the source is restored and the next operating point uses it
	if v1.Value() != 10 {
		t.Errorf("V1 left at %g", v1.Value())
	}
	if err := ckt.SolveOperatingPoint(); err != nil {
		t.Fatal(err)
	}
	if v := ckt.NodeVoltage(2); math.Abs(v-4) > 1e-9 {
		t.Errorf("V(mid) after sweep = %g, want 4", v)
	}
}

func TestDCSweepNested(t *testing.T) {
	ckt := circuit.New(circuit.DefaultConfig())
	r1, _ := device.NewResistor("R1", 1000)
	r2, _ := device.NewResistor("R2", 1000)
	ckt.AddElement(device.NewDCVoltageSource("V1", 0), 1, 0)
	ckt.AddElement(r1, 1, 2)
	ckt.AddElement(r2, 2, 3)
	ckt.AddElement(device.NewDCVoltageSource("V2", 0), 3, 0)

	res := run(t, NewDCSweep([]Sweep{{"V1", 0, 2, 1}, {"V2", 0, 1, 0.5}}, NodeVoltage("mid", 2)), ckt)

	s1, s2, mid := res["SWEEP1"], res["SWEEP2"], res["V(mid)"]
	if len(mid) != 9 {
		t.Fatalf("%d samples, want 9", len(mid))
	}
	if !slices.Equal(s1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2}) || !slices.Equal(s2, []float64{0, 0.5, 1, 0, 0.5, 1, 0, 0.5, 1}) {
		t.Errorf("SWEEP1 = %v, SWEEP2 = %v", s1, s2)
	}
	for i := range mid {
		if want := (s1[i] + s2[i]) / 2; math.Abs(mid[i]-want) > 1e-9 {
			t.Errorf("V1=%g V2=%g: V(mid) = %g, want %g", s1[i], s2[i], mid[i], want)
		}
	}
}
