package plot

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleResults() map[string][]float64 {
	const n = 50
	res := map[string][]float64{
		"TIME":   make([]float64, n),
		"V(out)": make([]float64, n),
		"V(in)":  make([]float64, n),
		"I(R1)":  make([]float64, n),
	}
	for i := range n {
		t := float64(i) * 1e-4
		res["TIME"][i] = t
		res["V(in)"][i] = 5
		res["V(out)"][i] = 5 * (1 - math.Exp(-t/1e-3))
		res["I(R1)"][i] = (5 - res["V(out)"][i]) / 1000
	}
	return res
}

func TestFromResults(t *testing.T) {
	res := sampleResults()
	c, err := FromResults("RC", res, []string{"V(in)", "V(out)", "I(R1)"})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Traces) != 3 || c.Traces[1].Name != "V(out)" {
		t.Errorf("traces = %+v", c.Traces)
	}
	if v := c.Select("V("); len(v.Traces) != 2 || len(v.X) != 50 {
		t.Errorf("Select(V() kept %d traces", len(v.Traces))
	}

	if _, err := FromResults("RC", res, []string{"V(missing)"}); err == nil {
		t.Error("missing trace accepted")
	}
	res["V(short)"] = []float64{1}
	if _, err := FromResults("RC", res, []string{"V(short)"}); err == nil {
		t.Error("short trace accepted")
	}
	if _, err := FromResults("RC", map[string][]float64{}, nil); err == nil {
		t.Error("results without TIME accepted")
	}
}

func TestFromSweepResults(t *testing.T) {
	res := map[string][]float64{
		"SWEEP1": {0, 1, 2, 3},
		"V(mid)": {0, 0.4, 0.8, 1.2},
	}
	c, err := FromResults("divider", res, []string{"V(mid)"})
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsSweep() || len(c.X) != 4 || c.X[3] != 3 {
		t.Errorf("axis %s, x = %v", c.Axis, c.X)
	}

	var buf bytes.Buffer
	if err := c.RenderHTML(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "sweep") {
		t.Error("page has no sweep axis")
	}

	res["SWEEP2"] = []float64{0, 1, 0, 1}
	if _, err := FromResults("divider", res, []string{"V(mid)"}); err == nil {
		t.Error("nested sweep accepted")
	}
}

func TestSavePNG(t *testing.T) {
	c, err := FromResults("RC charge", sampleResults(), []string{"V(in)", "V(out)"})
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(t.TempDir(), "rc.png")
	if err := c.Save(file); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("%s is not a PNG", file)
	}

	empty := c.Select("I(")
	if err := empty.Save(filepath.Join(t.TempDir(), "empty.png")); err == nil {
		t.Error("chart without traces saved")
	}
}

func TestRenderHTML(t *testing.T) {
	c, err := FromResults("RC charge", sampleResults(), []string{"V(out)", "I(R1)"})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := c.RenderHTML(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<title>RC charge</title>", "V(out)", "I(R1)", "Node voltages", "Element currents"} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
