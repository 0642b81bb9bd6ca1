// Package plot renders recorded analysis traces as waveform charts.
package plot

import (
	"fmt"
	"strings"
)

type Trace struct {
	Name   string
	Values []float64
}

// Chart is a set of traces sharing one x axis, either the TIME trace of an
// operating point or transient run or the SWEEP1 trace of a DC sweep.
type Chart struct {
	Title  string
	Axis   string // trace name of X
	X      []float64
	Traces []Trace
}

// FromResults builds a chart from analysis results keyed by trace name.
// names selects and orders the traces drawn against the x axis.
func FromResults(title string, results map[string][]float64, names []string) (*Chart, error) {
	if _, nested := results["SWEEP2"]; nested {
		return nil, fmt.Errorf("nested sweeps have no single x axis")
	}
	axis := "TIME"
	if _, ok := results["SWEEP1"]; ok {
		axis = "SWEEP1"
	}
	x := results[axis]
	if len(x) == 0 {
		return nil, fmt.Errorf("results have no %s samples", axis)
	}

	c := &Chart{Title: title, Axis: axis, X: x}
	for _, name := range names {
		values, ok := results[name]
		if !ok {
			return nil, fmt.Errorf("no trace named %s", name)
		}
		if len(values) != len(x) {
			return nil, fmt.Errorf("trace %s has %d samples, want %d", name, len(values), len(x))
		}
		c.Traces = append(c.Traces, Trace{Name: name, Values: values})
	}
	return c, nil
}

// IsSweep reports whether the x axis is a swept source value.
func (c *Chart) IsSweep() bool { return c.Axis == "SWEEP1" }

// Select returns a chart holding only the traces whose name starts with prefix.
func (c *Chart) Select(prefix string) *Chart {
	sub := &Chart{Title: c.Title, Axis: c.Axis, X: c.X}
	for _, tr := range c.Traces {
		if strings.HasPrefix(tr.Name, prefix) {
			sub.Traces = append(sub.Traces, tr)
		}
	}
	return sub
}
