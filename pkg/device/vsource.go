package device

import (
	"fmt"
	"math"

	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/expr"
)

type SourceType int

const (
	DC SourceType = iota
	SIN
	SQUARE
	TRIANGLE
	SAWTOOTH
	PULSE
	PWL
	EXPR
)

// VoltageSource forces V(post 0) - V(post 1) to its waveform value.
type VoltageSource struct {
	BaseDevice
	vtype SourceType

	dcValue float64
	// periodic
	amplitude float64
	freq      float64
	phase     float64 // degrees
	duty      float64
	// PULSE
	v1, v2                            float64
	delay, rise, fall, pWidth, period float64
	// PWL
	times  []float64
	values []float64
	// EXPR, a function of t
	formula *expr.Expression
	state   expr.State

	vs      int
	current float64 // entering post 0
}

var _ circuit.Element = (*VoltageSource)(nil)

func NewDCVoltageSource(name string, value float64) *VoltageSource {
	return &VoltageSource{BaseDevice: newBaseDevice(name, KindVoltageSource, 2), vtype: DC, dcValue: value}
}

func NewSinVoltageSource(name string, offset, amplitude, freq, phase float64) *VoltageSource {
	v := NewDCVoltageSource(name, offset)
	v.vtype = SIN
	v.amplitude, v.freq, v.phase = amplitude, freq, phase
	return v
}

// NewPeriodicVoltageSource builds a SQUARE, TRIANGLE or SAWTOOTH source
// swinging ±amplitude around bias. duty only applies to SQUARE.
func NewPeriodicVoltageSource(name string, vtype SourceType, bias, amplitude, freq, phase, duty float64) (*VoltageSource, error) {
	switch vtype {
	case SQUARE, TRIANGLE, SAWTOOTH:
	default:
		return nil, fmt.Errorf("voltage source %s: source type %d is not periodic", name, vtype)
	}
	if !(freq > 0) {
		return nil, fmt.Errorf("voltage source %s: frequency must be positive", name)
	}
	if duty <= 0 || duty >= 1 {
		duty = 0.5
	}
	v := NewDCVoltageSource(name, bias)
	v.vtype = vtype
	v.amplitude, v.freq, v.phase, v.duty = amplitude, freq, phase, duty
	return v, nil
}

func NewPulseVoltageSource(name string, v1, v2, delay, rise, fall, pWidth, period float64) *VoltageSource {
	v := NewDCVoltageSource(name, v1)
	v.vtype = PULSE
	v.v1, v.v2 = v1, v2
	v.delay, v.rise, v.fall, v.pWidth, v.period = delay, rise, fall, pWidth, period
	return v
}

func NewPWLVoltageSource(name string, times, values []float64) (*VoltageSource, error) {
	if len(times) == 0 || len(times) != len(values) {
		return nil, fmt.Errorf("voltage source %s: PWL needs matching non-empty time and value lists", name)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("voltage source %s: PWL times must increase", name)
		}
	}
	v := NewDCVoltageSource(name, values[0])
	v.vtype = PWL
	v.times, v.values = times, values
	return v, nil
}

// NewExprVoltageSource drives the source with a formula of t.
func NewExprVoltageSource(name string, formula *expr.Expression) (*VoltageSource, error) {
	if formula.Inputs() > 0 {
		return nil, fmt.Errorf("voltage source %s: formula may only use t", name)
	}
	v := NewDCVoltageSource(name, 0)
	v.vtype = EXPR
	v.formula = formula
	return v, nil
}

func (v *VoltageSource) SourceType() SourceType { return v.vtype }

func (v *VoltageSource) VoltageSourceCount() int { return 1 }

func (v *VoltageSource) SetVoltageSource(idx, vs int) { v.vs = vs }

func (v *VoltageSource) GetVoltage(t float64) float64 {
	w := 2*math.Pi*v.freq*t + v.phase*math.Pi/180
	switch v.vtype {
	case DC:
		return v.dcValue
	case SIN:
		return v.dcValue + v.amplitude*math.Sin(w)
	case SQUARE:
		if posMod(w, 2*math.Pi) > 2*math.Pi*v.duty {
			return v.dcValue - v.amplitude
		}
		return v.dcValue + v.amplitude
	case TRIANGLE:
		return v.dcValue + v.amplitude*triangle(posMod(w, 2*math.Pi))
	case SAWTOOTH:
		return v.dcValue + posMod(w, 2*math.Pi)*(v.amplitude/math.Pi) - v.amplitude
	case PULSE:
		return v.getPulseVoltage(t)
	case PWL:
		return v.getPWLVoltage(t)
	case EXPR:
		v.state.T = t
		return v.formula.Eval(&v.state)
	default:
		return 0
	}
}

func posMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// triangle maps [0, 2pi) to a wave rising from -1 to 1 and back.
func triangle(x float64) float64 {
	if x < math.Pi {
		return x*(2/math.Pi) - 1
	}
	return 1 - (x-math.Pi)*(2/math.Pi)
}

func (v *VoltageSource) Stamp(c *circuit.Circuit) {
	if v.vtype == DC {
		c.StampVoltageSource(v.Nodes[0], v.Nodes[1], v.vs, v.dcValue)
		return
	}
	c.StampVaryingVoltageSource(v.Nodes[0], v.Nodes[1], v.vs)
}

func (v *VoltageSource) DoStep(c *circuit.Circuit) {
	if v.vtype != DC {
		c.UpdateVoltageSource(v.vs, v.GetVoltage(c.SolveTime()))
	}
}

func (v *VoltageSource) SetCurrent(vs int, amps float64) { v.current = amps }

func (v *VoltageSource) Reset() {
	v.BaseDevice.Reset()
	v.current = 0
}

// Current is the current delivered out of the positive terminal.
func (v *VoltageSource) Current() float64 { return -v.current }

func (v *VoltageSource) GetCurrentIntoNode(n int) float64 {
	if n == 0 {
		return -v.current
	}
	return v.current
}

// Value is the DC level, or the offset of a waveform source.
func (v *VoltageSource) Value() float64 { return v.dcValue }

// SetValue changes the DC level (the offset for waveform sources) and has c
// restamp before its next iteration.
func (v *VoltageSource) SetValue(c *circuit.Circuit, value float64) {
	v.dcValue = value
	c.Restamp()
}

func (v *VoltageSource) getPulseVoltage(t float64) float64 {
	if t < v.delay {
		return v.v1
	}

	t = t - v.delay
	if v.period > 0 {
		t = math.Mod(t, v.period)
	}

	if t < v.rise {
		return v.v1 + (v.v2-v.v1)*t/v.rise
	}
	if t < v.rise+v.pWidth {
		return v.v2
	}
	fallStart := v.rise + v.pWidth
	if t < fallStart+v.fall {
		return v.v2 - (v.v2-v.v1)*(t-fallStart)/v.fall
	}
	return v.v1
}

func (v *VoltageSource) getPWLVoltage(t float64) float64 {
	if t <= v.times[0] {
		return v.values[0]
	}
	last := len(v.times) - 1
	if t >= v.times[last] {
		return v.values[last]
	}
	for i := 1; i < len(v.times); i++ {
		if t <= v.times[i] {
			t1, t2 := v.times[i-1], v.times[i]
			v1, v2 := v.values[i-1], v.values[i]
			return v1 + (v2-v1)*(t-t1)/(t2-t1)
		}
	}
	return v.values[last]
}
